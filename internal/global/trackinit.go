package global

import (
	"context"
	"fmt"

	"github.com/roach88/trackloop/internal/track"
)

// ValidatePrimaries checks that a primary batch fits the initializer queue
// and that every primary can start a track: event id in range, a track id,
// a known particle and a non-negative energy. Nothing is modified.
func ValidatePrimaries(params *CoreParams, state *CoreState, primaries []track.Primary) error {
	q := state.init.Initializers
	if q.Size()+len(primaries) > q.Capacity() {
		return newCapacityError(q.Capacity(), q.Size(), len(primaries), "primaries")
	}
	return checkPrimaries(params, primaries)
}

func checkPrimaries(params *CoreParams, primaries []track.Primary) error {
	maxEvents := params.Init().MaxEvents
	var maxEvent track.EventID
	for _, p := range primaries {
		maxEvent = max(maxEvent, p.EventID)
	}
	if len(primaries) > 0 && int(maxEvent) >= maxEvents {
		return NewEventRangeError(maxEvent, maxEvents)
	}
	for i, p := range primaries {
		if !p.TrackID.Valid() {
			return newInvalidPrimaryError(i, p, "has no track id")
		}
		if reason := checkParticle(params.Particles(), p.ParticleID, p.Energy); reason != "" {
			return newInvalidPrimaryError(i, p, reason)
		}
	}
	return nil
}

// ReservePrimaryTrackIDs raises each event's track counter past the largest
// track id any of the primaries holds. A run that feeds one event in several
// batches calls it with the whole list first, so secondaries created
// between batches never take an id a later primary carries. The primaries
// are checked first and nothing is modified if any is invalid.
func ReservePrimaryTrackIDs(params *CoreParams, state *CoreState, primaries []track.Primary) error {
	if err := checkPrimaries(params, primaries); err != nil {
		return err
	}
	for _, p := range primaries {
		state.init.RaiseTrackCounter(p.EventID, uint32(p.TrackID)+1)
	}
	return nil
}

// ExtendFromPrimaries appends one initializer per primary, in input order,
// to the back of the queue. It fails without modifying anything if the
// batch does not fit or any primary fails ValidatePrimaries. Each event's track
// counter is raised past the largest primary track id so that later
// secondaries never reuse a primary id.
func ExtendFromPrimaries(ctx context.Context, params *CoreParams, state *CoreState, primaries []track.Primary) error {
	if err := ValidatePrimaries(params, state, primaries); err != nil {
		return err
	}
	q := state.init.Initializers
	start, err := q.Reserve(len(primaries))
	if err != nil {
		return newCapacityError(q.Capacity(), q.Size(), len(primaries), "primaries")
	}
	return launchN(ctx, state, "extend-from-primaries", len(primaries),
		func(int) track.TrackSlotID { return track.NoSlot },
		func(i int) error {
			p := primaries[i]
			q.Set(start+i, track.FromPrimary(p), track.NoSlot)
			state.init.RaiseTrackCounter(p.EventID, uint32(p.TrackID)+1)
			return nil
		})
}

// InitializeTracks moves the oldest queued initializers into the lowest
// vacant slots. min(vacancies, queued) tracks are created; the remainder
// stays queued (or vacant).
func InitializeTracks(ctx context.Context, params *CoreParams, state *CoreState) error {
	init := state.init
	vacancies := init.Vacancies.Data()
	q := init.Initializers
	n := min(len(vacancies), q.Size())

	init.NumInitialized = n
	init.NumActive = state.Size() - len(vacancies) + n

	err := launchN(ctx, state, params.Actions().Label(params.ids.InitializeTracks), n,
		func(i int) track.TrackSlotID { return vacancies[i] },
		func(i int) error {
			ini, _ := q.Front(i)
			return state.initializeSlot(vacancies[i], ini)
		})
	if err != nil {
		return err
	}
	q.PopFront(n)
	init.Vacancies.DropFront(n)
	return nil
}

// ExtendFromSecondaries turns the secondaries produced this step into
// initializers and recycles the slots of tracks that died.
//
// A track that died keeps its slot for its first secondary, which is
// initialized in place and never queued. All other secondaries are queued
// in slot order with fresh track ids from their event's counter. The
// capacity check happens before anything is modified. Afterwards every
// slot without a live track is vacant and the vacancy list is rebuilt in
// ascending order.
func ExtendFromSecondaries(ctx context.Context, params *CoreParams, state *CoreState) error {
	init := state.init
	label := params.Actions().Label(params.ids.ExtendSecondary)

	// Count the secondaries each slot adds to the queue. Every secondary is
	// checked here so that nothing below can fail after the queue grows.
	err := Launch(ctx, state, label, func(slot track.TrackSlotID) error {
		for j, sec := range state.step[slot].Secondaries {
			if reason := checkParticle(params.Particles(), sec.ParticleID, sec.Energy); reason != "" {
				return fmt.Errorf("secondary %d %s", j, reason)
			}
		}
		n := len(state.step[slot].Secondaries)
		if n > 0 && state.sim[slot].Status != track.StatusAlive {
			n--
		}
		init.SecondaryCounts[slot] = uint32(n)
		return nil
	})
	if err != nil {
		return err
	}

	total := 0
	for _, c := range init.SecondaryCounts {
		total += int(c)
	}
	q := init.Initializers
	if q.Size()+total > q.Capacity() {
		return newCapacityError(q.Capacity(), q.Size(), total, "secondaries")
	}
	start, err := q.Reserve(total)
	if err != nil {
		return fmt.Errorf("reserve secondaries: %w", err)
	}

	// Queue offsets and track id blocks, in slot order so that ids are
	// independent of scheduling.
	offset := start
	for slot := range state.sim {
		state.offsets[slot] = offset
		offset += int(init.SecondaryCounts[slot])
		if n := len(state.step[slot].Secondaries); n > 0 {
			state.firstTrack[slot] = init.AllocateTrackIDs(state.sim[slot].EventID, uint32(n))
		}
	}

	err = Launch(ctx, state, label, func(slot track.TrackSlotID) error {
		sim := state.sim[slot]
		parentPos := state.geo[slot].Pos
		secondaries := state.step[slot].Secondaries
		state.step[slot].Secondaries = state.step[slot].buf[:0]

		dead := sim.Status != track.StatusAlive
		if dead {
			state.sim[slot].Status = track.StatusInactive
		}
		pos := state.offsets[slot]
		for j, sec := range secondaries {
			ini := track.Initializer{
				Sim: track.SimInitializer{
					TrackID:  state.firstTrack[slot] + track.TrackID(j),
					ParentID: sim.TrackID,
					EventID:  sim.EventID,
					Time:     sim.Time,
				},
				Geo: track.GeoInitializer{Position: parentPos, Direction: sec.Direction},
				Particle: track.ParticleInitializer{
					ParticleID: sec.ParticleID,
					Energy:     sec.Energy,
				},
			}
			if dead && j == 0 {
				if err := state.initializeSlot(slot, ini); err != nil {
					return err
				}
				continue
			}
			q.Set(pos, ini, slot)
			pos++
		}
		return nil
	})
	if err != nil {
		return err
	}

	init.NumSecondaries = total
	_ = init.Vacancies.Resize(0)
	for slot := range state.sim {
		if state.sim[slot].Status != track.StatusAlive {
			_ = init.Vacancies.Push(track.TrackSlotID(slot))
		}
	}
	return nil
}
