package track

import "sync/atomic"

// InitParams are the fixed limits of the track initializer subsystem.
type InitParams struct {
	// Capacity is the maximum number of queued initializers.
	Capacity int
	// MaxEvents bounds event ids: every event id must be < MaxEvents.
	MaxEvents int
}

// InitState is the mutable bookkeeping for turning initializers into live
// tracks. One per stream.
type InitState struct {
	Initializers *InitializerQueue

	// Vacancies lists the vacant slots in ascending order after a rebuild.
	Vacancies ResizableData[TrackSlotID]

	// SecondaryCounts is per slot: the number of initializers that slot
	// contributes to the queue at the current extension.
	SecondaryCounts []uint32

	// TrackCounters is per event: the next unused track id.
	TrackCounters []atomic.Uint32

	// NumSecondaries is the number of secondaries queued at the last
	// extension (excluding those initialized in their parent's slot).
	NumSecondaries int

	// NumActive is the number of tracks alive at the start of the last step.
	NumActive int

	// NumInitialized is the number of initializers materialized into slots
	// at the start of the last step.
	NumInitialized int
}

// NewInitState allocates bookkeeping for numSlots slots. Every slot starts
// vacant and every track counter starts at zero.
func NewInitState(p InitParams, numSlots int) *InitState {
	s := &InitState{
		Initializers:    NewInitializerQueue(p.Capacity),
		Vacancies:       NewResizableData[TrackSlotID](numSlots),
		SecondaryCounts: make([]uint32, numSlots),
		TrackCounters:   make([]atomic.Uint32, p.MaxEvents),
	}
	s.Reset()
	return s
}

// Reset marks every slot vacant, empties the queue and zeroes the counters.
func (s *InitState) Reset() {
	s.Initializers.Clear()
	n := s.Vacancies.Capacity()
	_ = s.Vacancies.Resize(n)
	for i := 0; i < n; i++ {
		*s.Vacancies.At(i) = TrackSlotID(i)
	}
	for i := range s.SecondaryCounts {
		s.SecondaryCounts[i] = 0
	}
	for i := range s.TrackCounters {
		s.TrackCounters[i].Store(0)
	}
	s.NumSecondaries = 0
	s.NumActive = 0
	s.NumInitialized = 0
}

// TrackCounter returns the next unused track id of an event.
func (s *InitState) TrackCounter(e EventID) TrackID {
	return TrackID(s.TrackCounters[e].Load())
}

// AllocateTrackIDs claims n consecutive track ids for an event and returns
// the first.
func (s *InitState) AllocateTrackIDs(e EventID, n uint32) TrackID {
	return TrackID(s.TrackCounters[e].Add(n) - n)
}

// RaiseTrackCounter makes the event's counter at least next. Safe for
// concurrent use; the counter never decreases.
func (s *InitState) RaiseTrackCounter(e EventID, next uint32) {
	c := &s.TrackCounters[e]
	for {
		cur := c.Load()
		if cur >= next || c.CompareAndSwap(cur, next) {
			return
		}
	}
}
