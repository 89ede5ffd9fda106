package global

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/track"
)

// StreamID identifies an independent CoreState driven by one Stepper.
type StreamID uint32

// StepState is per-slot scratch that lives for one step.
type StepState struct {
	PhysStep      float64        // distance to the sampled interaction
	Process       phys.ProcessID // process selected at pre-step
	StepLength    float64        // distance actually travelled
	PostStep      ActionID       // what limited the step
	EnergyDeposit float64        // [MeV] deposited locally this step
	Secondaries   []phys.Secondary

	buf []phys.Secondary
}

func (s *StepState) reset() {
	s.PhysStep = math.Inf(1)
	s.Process = phys.NoProcess
	s.StepLength = 0
	s.PostStep = NoAction
	s.EnergyDeposit = 0
	s.Secondaries = s.buf[:0]
}

// TrackView is a read-only copy of one slot, for diagnostics and tests.
type TrackView struct {
	Slot          track.TrackSlotID
	Sim           track.SimState
	Particle      phys.ParticleState
	Geo           geo.State
	StepLength    float64
	EnergyDeposit float64
	PostStep      ActionID
	Process       phys.ProcessID
	Secondaries   int
}

// CoreState is the mutable per-stream track storage: fixed arrays indexed
// by slot, plus the initializer bookkeeping.
type CoreState struct {
	params  *CoreParams
	stream  StreamID
	threads int
	logger  *slog.Logger

	sim      []track.SimState
	particle []phys.ParticleState
	geo      []geo.State
	rngSrc   []rand.PCG
	rng      []*rand.Rand
	step     []StepState
	init     *track.InitState

	// Scratch for secondary extension, indexed by slot.
	offsets    []int
	firstTrack []track.TrackID

	numSteps uint64
}

// NewCoreState allocates storage for numSlots tracks. Every slot starts
// vacant. numThreads <= 0 selects one worker.
func NewCoreState(params *CoreParams, stream StreamID, numSlots, numThreads int) (*CoreState, error) {
	if params == nil {
		return nil, &ConfigError{Code: ErrCodeMissingCollaborator, Message: "core state needs params"}
	}
	if numSlots <= 0 {
		return nil, &ConfigError{
			Code:    ErrCodeZeroSlots,
			Message: fmt.Sprintf("number of track slots must be positive, got %d", numSlots),
		}
	}
	if numThreads <= 0 {
		numThreads = 1
	}

	s := &CoreState{
		params:     params,
		stream:     stream,
		threads:    numThreads,
		logger:     params.Logger().With("stream", uint32(stream)),
		sim:        make([]track.SimState, numSlots),
		particle:   make([]phys.ParticleState, numSlots),
		geo:        make([]geo.State, numSlots),
		rngSrc:     make([]rand.PCG, numSlots),
		rng:        make([]*rand.Rand, numSlots),
		step:       make([]StepState, numSlots),
		init:       track.NewInitState(params.Init(), numSlots),
		offsets:    make([]int, numSlots),
		firstTrack: make([]track.TrackID, numSlots),
	}
	secStack := params.SecondaryStackSize()
	for i := range s.step {
		s.rngSrc[i].Seed(params.Seed(), uint64(i))
		s.rng[i] = rand.New(&s.rngSrc[i])
		s.step[i].buf = make([]phys.Secondary, 0, secStack)
		s.step[i].reset()
		s.sim[i] = track.SimState{TrackID: track.NoTrack, ParentID: track.NoTrack}
	}
	return s, nil
}

// Size returns the number of track slots.
func (s *CoreState) Size() int { return len(s.sim) }

// StreamID returns the stream this state belongs to.
func (s *CoreState) StreamID() StreamID { return s.stream }

// NumThreads returns the number of workers used per action.
func (s *CoreState) NumThreads() int { return s.threads }

// InitState exposes the initializer bookkeeping.
func (s *CoreState) InitState() *track.InitState { return s.init }

// NumSteps returns how many steps have completed on this state.
func (s *CoreState) NumSteps() uint64 { return s.numSteps }

// NumAlive returns the number of occupied slots.
func (s *CoreState) NumAlive() int { return s.Size() - s.init.Vacancies.Size() }

// NumQueued returns the number of pending initializers.
func (s *CoreState) NumQueued() int { return s.init.Initializers.Size() }

// Sim returns a copy of the sim state of a slot.
func (s *CoreState) Sim(slot track.TrackSlotID) track.SimState { return s.sim[slot] }

// View returns a copy of everything known about a slot.
func (s *CoreState) View(slot track.TrackSlotID) TrackView {
	st := &s.step[slot]
	return TrackView{
		Slot:          slot,
		Sim:           s.sim[slot],
		Particle:      s.particle[slot],
		Geo:           s.geo[slot],
		StepLength:    st.StepLength,
		EnergyDeposit: st.EnergyDeposit,
		PostStep:      st.PostStep,
		Process:       st.Process,
		Secondaries:   len(st.Secondaries),
	}
}

// Reset vacates every slot and clears the initializer bookkeeping.
func (s *CoreState) Reset() {
	for i := range s.sim {
		s.sim[i] = track.SimState{TrackID: track.NoTrack, ParentID: track.NoTrack}
		s.particle[i] = phys.ParticleState{}
		s.geo[i] = geo.State{}
		s.step[i].reset()
	}
	s.init.Reset()
	s.numSteps = 0
}

func (s *CoreState) physTrack(slot track.TrackSlotID) phys.Track {
	sim := &s.sim[slot]
	return phys.Track{
		Slot:     slot,
		TrackID:  sim.TrackID,
		EventID:  sim.EventID,
		NumSteps: sim.NumSteps,
		Particle: s.particle[slot].ParticleID,
		Energy:   s.particle[slot].Energy,
		Geo:      s.geo[slot],
	}
}

// checkParticle reports why a particle cannot start a track, or "".
func checkParticle(p *phys.ParticleParams, id phys.ParticleID, energy float64) string {
	if !p.Valid(id) {
		return fmt.Sprintf("has invalid particle %d", id)
	}
	if energy < 0 || math.IsNaN(energy) {
		return fmt.Sprintf("has invalid energy %g", energy)
	}
	return ""
}

// initializeSlot overwrites a slot with a new track.
func (s *CoreState) initializeSlot(slot track.TrackSlotID, init track.Initializer) error {
	p := s.params
	if reason := checkParticle(p.Particles(), init.Particle.ParticleID, init.Particle.Energy); reason != "" {
		return fmt.Errorf("initializer for track %s %s", init.Sim.TrackID, reason)
	}
	s.sim[slot] = init.Sim.Materialize()
	s.particle[slot] = phys.ParticleState{ParticleID: init.Particle.ParticleID, Energy: init.Particle.Energy}
	s.geo[slot] = geo.Initialize(p.Geometry(), init.Geo.Position, init.Geo.Direction)
	s.step[slot].reset()
	// Seed from track identity so results do not depend on slot assignment.
	s.rngSrc[slot].Seed(mixSeed(p.Seed(), uint64(init.Sim.EventID)), uint64(init.Sim.TrackID))
	return nil
}

func (s *CoreState) kernelContext(label string, slot track.TrackSlotID, err error) *KernelContextError {
	ke := &KernelContextError{Action: label, Slot: slot, Err: err}
	if int(slot) < len(s.sim) {
		ke.TrackID = s.sim[slot].TrackID
		ke.EventID = s.sim[slot].EventID
		ke.ParticleID = s.particle[slot].ParticleID
		ke.Energy = s.particle[slot].Energy
	}
	return ke
}

// mixSeed is the splitmix64 finalizer applied to seed+event.
func mixSeed(seed, event uint64) uint64 {
	z := seed + 0x9e3779b97f4a7c15*(event+1)
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
