package problem

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/trackloop/internal/phys"
)

// validate checks what the schema cannot express: cross references between
// sections and ordering of ranges. It reports every failure.
func validate(def *Definition) Errors {
	var errs Errors
	fail := func(field, format string, args ...any) {
		errs = append(errs, &Error{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	known := particleLabels()
	checkParticle := func(field, label string) {
		if !slices.Contains(known, label) {
			fail(field, "unknown particle %q (known: %v)", label, known)
		}
	}

	if def.Primaries.NumEvents > def.MaxEvents {
		fail("primaries.num_events", "%d events exceed max_events=%d", def.Primaries.NumEvents, def.MaxEvents)
	}

	if g := def.Geometry; g.Kind == "slab" {
		for i := 1; i < len(g.Planes); i++ {
			if !(g.Planes[i] > g.Planes[i-1]) {
				fail("geometry.planes", "planes must increase: %g after %g", g.Planes[i], g.Planes[i-1])
				break
			}
		}
		if g.Labels != nil && len(g.Labels) != len(g.Planes)-1 {
			fail("geometry.labels", "%d layers need %d labels, got %d", len(g.Planes)-1, len(g.Planes)-1, len(g.Labels))
		}
	}

	for _, p := range def.Physics.Processes {
		checkParticle("physics.processes", p.Particle)
	}
	for _, label := range slices.Sorted(maps.Keys(def.Physics.DEDX)) {
		checkParticle("physics.dedx", label)
	}
	for _, label := range slices.Sorted(maps.Keys(def.Physics.Cutoffs)) {
		checkParticle("physics.cutoffs", label)
	}
	for _, label := range def.Primaries.Particles {
		checkParticle("primaries.particles", label)
	}

	if e := def.Primaries.Energy; e.Kind == "uniform" && !(e.Min < e.Max) {
		fail("primaries.energy", "uniform energy needs min < max, got [%g, %g]", e.Min, e.Max)
	}
	if p := def.Primaries.Position; p.Kind == "box" {
		for i := range 3 {
			if p.Min[i] > p.Max[i] {
				fail("primaries.position", "box min exceeds max along axis %d", i)
				break
			}
		}
	}
	if d := def.Primaries.Direction; d.Kind == "delta" && d.Value[0] == 0 && d.Value[1] == 0 && d.Value[2] == 0 {
		fail("primaries.direction", "direction must be non-zero")
	}

	if diags := def.Diagnostics; diags != nil && diags.Energy != nil && !(diags.Energy.Min < diags.Energy.Max) {
		fail("diagnostics.energy", "energy diagnostic needs min < max, got [%g, %g]", diags.Energy.Min, diags.Energy.Max)
	}

	return errs
}

func particleLabels() []string {
	defs := phys.StandardParticles()
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Label
	}
	return out
}
