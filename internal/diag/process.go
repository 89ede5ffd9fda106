package diag

import (
	"context"
	"sync"

	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/track"
)

// ProcessDiagnostic counts what limited each step, per particle: the
// discrete process that interacted, or the label of the post-step action
// (geo-boundary, eloss-range).
type ProcessDiagnostic struct {
	mu     sync.Mutex
	counts map[string]map[string]uint64
}

// NewProcessDiagnostic creates an empty tally.
func NewProcessDiagnostic() *ProcessDiagnostic {
	return &ProcessDiagnostic{counts: make(map[string]map[string]uint64)}
}

// Label implements global.Diagnostic.
func (d *ProcessDiagnostic) Label() string { return "process-diagnostic" }

// MidStep implements global.Diagnostic.
func (d *ProcessDiagnostic) MidStep(_ context.Context, params *global.CoreParams, state *global.CoreState) error {
	ids := params.ActionIDs()
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < state.Size(); i++ {
		v := state.View(track.TrackSlotID(i))
		if v.PostStep == global.NoAction {
			continue
		}
		key := params.Actions().Label(v.PostStep)
		if v.PostStep == ids.PhysicsInteract {
			key = params.Physics().ProcessLabel(v.Process)
		}
		particle := params.Particles().Label(v.Particle.ParticleID)
		if d.counts[particle] == nil {
			d.counts[particle] = make(map[string]uint64)
		}
		d.counts[particle][key]++
	}
	return nil
}

// Count returns the tally for one particle and limiting action.
func (d *ProcessDiagnostic) Count(particle, key string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[particle][key]
}

// Result implements global.Diagnostic.
func (d *ProcessDiagnostic) Result() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]map[string]uint64, len(d.counts))
	for p, m := range d.counts {
		inner := make(map[string]uint64, len(m))
		for k, v := range m {
			inner[k] = v
		}
		out[p] = inner
	}
	return out
}
