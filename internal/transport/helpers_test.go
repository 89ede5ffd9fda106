package transport

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/track"
)

// absorbAfter absorbs every track at the end of its nth step; n == 0 never
// absorbs.
type absorbAfter struct{ n uint32 }

func (absorbAfter) PreStep(phys.Track, *rand.Rand) phys.Step { return phys.Step{Length: 1} }
func (absorbAfter) Range(phys.Track) float64 { return math.Inf(1) }
func (absorbAfter) EnergyLoss(phys.Track, float64) float64 { return 0 }
func (absorbAfter) EnergyCutoff(phys.ParticleID) float64 { return 0 }
func (absorbAfter) ProcessLabel(phys.ProcessID) string { return "absorb" }
func (absorbAfter) NumProcesses() int { return 1 }

func (a absorbAfter) Interact(t phys.Track, _ phys.ProcessID, _ *rand.Rand, out *phys.Interaction) error {
	if a.n > 0 && t.NumSteps >= a.n {
		out.Action = phys.Absorbed
		out.EnergyDeposit = t.Energy
	}
	return nil
}

// splitOnce absorbs every track after one step. Track 0 of event 0 also
// emits one secondary when it is absorbed. Each track's steps are counted.
type splitOnce struct {
	absorbAfter
	mu    sync.Mutex
	steps map[track.TrackID]int
}

func newSplitOnce() *splitOnce {
	return &splitOnce{absorbAfter: absorbAfter{n: 1}, steps: make(map[track.TrackID]int)}
}

func (p *splitOnce) Interact(t phys.Track, id phys.ProcessID, rng *rand.Rand, out *phys.Interaction) error {
	p.mu.Lock()
	p.steps[t.TrackID]++
	p.mu.Unlock()
	if t.EventID == 0 && t.TrackID == 0 {
		if err := out.AddSecondary(phys.Secondary{ParticleID: 0, Energy: 1, Direction: r3.Vec{Z: 1}}); err != nil {
			return err
		}
	}
	return p.absorbAfter.Interact(t, id, rng, out)
}

type testConfig struct {
	physics   phys.Physics
	slots     int
	capacity  int
	maxEvents int
	diags     []global.Diagnostic
}

func newTestStepper(t *testing.T, cfg testConfig) *global.Stepper {
	t.Helper()
	if cfg.physics == nil {
		cfg.physics = absorbAfter{n: 1}
	}
	if cfg.maxEvents == 0 {
		cfg.maxEvents = 2
	}
	particles, err := phys.NewParticleParams(phys.StandardParticles())
	require.NoError(t, err)
	params, err := global.NewCoreParams(global.ParamsInput{
		Particles: particles,
		Physics:   cfg.physics,
		Geometry:  geo.Infinite{},
		Init:      track.InitParams{Capacity: cfg.capacity, MaxEvents: cfg.maxEvents},
	})
	require.NoError(t, err)
	for _, d := range cfg.diags {
		_, err := params.AddDiagnostic(d)
		require.NoError(t, err)
	}
	s, err := global.NewStepper(global.StepperInput{Params: params, NumTrackSlots: cfg.slots, NumThreads: 2})
	require.NoError(t, err)
	return s
}

func makePrimaries(n int, event track.EventID) []track.Primary {
	out := make([]track.Primary, n)
	for i := range out {
		out[i] = track.Primary{
			ParticleID: 0,
			Energy:     1,
			Direction:  r3.Vec{Z: 1},
			EventID:    event,
			TrackID:    track.TrackID(i),
		}
	}
	return out
}
