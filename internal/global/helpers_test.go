package global

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/track"
)

type scriptKey struct {
	event track.EventID
	track track.TrackID
	step  uint32
}

type scriptRule struct {
	kill        bool
	secondaries int
	fail        bool
	panic       bool
	nanEnergy   bool
}

// scriptedPhysics moves every track one unit per step and applies the rule
// for (event, track, step) at the interaction.
type scriptedPhysics struct {
	rules map[scriptKey]scriptRule
}

func (p *scriptedPhysics) PreStep(phys.Track, *rand.Rand) phys.Step {
	return phys.Step{Length: 1, Process: 0}
}

func (p *scriptedPhysics) Range(phys.Track) float64 { return math.Inf(1) }

func (p *scriptedPhysics) EnergyLoss(phys.Track, float64) float64 { return 0 }

func (p *scriptedPhysics) Interact(t phys.Track, _ phys.ProcessID, _ *rand.Rand, out *phys.Interaction) error {
	rule := p.rules[scriptKey{t.EventID, t.TrackID, t.NumSteps}]
	if rule.panic {
		panic("scripted panic")
	}
	if rule.fail {
		return errors.New("scripted failure")
	}
	if rule.kill {
		out.Action = phys.Absorbed
	}
	energy := 1.0
	if rule.nanEnergy {
		energy = math.NaN()
	}
	for i := 0; i < rule.secondaries; i++ {
		if err := out.AddSecondary(phys.Secondary{ParticleID: 0, Energy: energy, Direction: r3.Vec{Z: 1}}); err != nil {
			return err
		}
	}
	return nil
}

func (p *scriptedPhysics) EnergyCutoff(phys.ParticleID) float64 { return 0 }
func (p *scriptedPhysics) ProcessLabel(phys.ProcessID) string { return "scripted" }
func (p *scriptedPhysics) NumProcesses() int { return 1 }

type stepperConfig struct {
	slots     int
	capacity  int
	maxEvents int
	threads   int
	rules     map[scriptKey]scriptRule
}

func newTestParams(t *testing.T, cfg stepperConfig) *CoreParams {
	t.Helper()
	particles, err := phys.NewParticleParams(phys.StandardParticles())
	require.NoError(t, err)
	params, err := NewCoreParams(ParamsInput{
		Particles: particles,
		Physics:   &scriptedPhysics{rules: cfg.rules},
		Geometry:  geo.Infinite{},
		Init:      track.InitParams{Capacity: cfg.capacity, MaxEvents: cfg.maxEvents},
	})
	require.NoError(t, err)
	return params
}

func newTestStepper(t *testing.T, cfg stepperConfig) *Stepper {
	t.Helper()
	if cfg.maxEvents == 0 {
		cfg.maxEvents = 1
	}
	s, err := NewStepper(StepperInput{
		Params:        newTestParams(t, cfg),
		NumTrackSlots: cfg.slots,
		NumThreads:    cfg.threads,
	})
	require.NoError(t, err)
	return s
}

func makePrimaries(event track.EventID, first track.TrackID, n int) []track.Primary {
	out := make([]track.Primary, n)
	for i := range out {
		out[i] = track.Primary{
			ParticleID: 0,
			Energy:     1,
			Direction:  r3.Vec{Z: 1},
			EventID:    event,
			TrackID:    first + track.TrackID(i),
		}
	}
	return out
}

func slotTrackIDs(s *Stepper) []track.TrackID {
	var ids []track.TrackID
	for i := 0; i < s.State().Size(); i++ {
		sim := s.State().Sim(track.TrackSlotID(i))
		if sim.Status == track.StatusAlive {
			ids = append(ids, sim.TrackID)
		}
	}
	return ids
}

func queuedTrackIDs(s *Stepper) []track.TrackID {
	var ids []track.TrackID
	for _, init := range s.State().InitState().Initializers.Snapshot() {
		ids = append(ids, init.Sim.TrackID)
	}
	return ids
}

var bg = context.Background()
