package diag

import (
	"context"
	"sync/atomic"

	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/track"
)

// StepDiagnostic histograms the number of steps each track took, per
// particle type. Bins 0..maxSteps are exact; bin maxSteps+1 collects
// everything longer.
type StepDiagnostic struct {
	particles *phys.ParticleParams
	maxSteps  int
	counts    [][]atomic.Uint64
}

// NewStepDiagnostic creates a step-count histogram.
func NewStepDiagnostic(particles *phys.ParticleParams, maxSteps int) *StepDiagnostic {
	counts := make([][]atomic.Uint64, particles.Size())
	for i := range counts {
		counts[i] = make([]atomic.Uint64, maxSteps+2)
	}
	return &StepDiagnostic{particles: particles, maxSteps: maxSteps, counts: counts}
}

// Label implements global.Diagnostic.
func (d *StepDiagnostic) Label() string { return "step-diagnostic" }

// MidStep tallies every track that finished during this step.
func (d *StepDiagnostic) MidStep(ctx context.Context, _ *global.CoreParams, state *global.CoreState) error {
	return global.Launch(ctx, state, d.Label(), func(slot track.TrackSlotID) error {
		sim := state.Sim(slot)
		if sim.Status != track.StatusKilled {
			return nil
		}
		p := state.View(slot).Particle.ParticleID
		bin := min(int(sim.NumSteps), d.maxSteps+1)
		d.counts[p][bin].Add(1)
		return nil
	})
}

// Counts returns the histogram of one particle.
func (d *StepDiagnostic) Counts(p phys.ParticleID) []uint64 {
	out := make([]uint64, len(d.counts[p]))
	for i := range out {
		out[i] = d.counts[p][i].Load()
	}
	return out
}

// Result maps particle labels to their histogram. Particles that never
// finished a track are omitted.
func (d *StepDiagnostic) Result() any {
	out := make(map[string][]uint64)
	for i := range d.counts {
		counts := d.Counts(phys.ParticleID(i))
		var total uint64
		for _, c := range counts {
			total += c
		}
		if total > 0 {
			out[d.particles.Label(phys.ParticleID(i))] = counts
		}
	}
	return out
}
