// Package primary generates batches of primary tracks, one event at a time.
package primary

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/track"
)

// Sampler draws one value from a distribution.
type Sampler[T any] func(rng *rand.Rand) T

// DeltaEnergy always returns e.
func DeltaEnergy(e float64) Sampler[float64] {
	return func(*rand.Rand) float64 { return e }
}

// UniformEnergy samples uniformly in [lo, hi).
func UniformEnergy(lo, hi float64) Sampler[float64] {
	return func(rng *rand.Rand) float64 { return lo + (hi-lo)*rng.Float64() }
}

// DeltaPosition always returns p.
func DeltaPosition(p r3.Vec) Sampler[r3.Vec] {
	return func(*rand.Rand) r3.Vec { return p }
}

// BoxPosition samples uniformly inside the box [lo, hi).
func BoxPosition(lo, hi r3.Vec) Sampler[r3.Vec] {
	return func(rng *rand.Rand) r3.Vec {
		return r3.Vec{
			X: lo.X + (hi.X-lo.X)*rng.Float64(),
			Y: lo.Y + (hi.Y-lo.Y)*rng.Float64(),
			Z: lo.Z + (hi.Z-lo.Z)*rng.Float64(),
		}
	}
}

// DeltaDirection always returns the unit vector along d.
func DeltaDirection(d r3.Vec) Sampler[r3.Vec] {
	u := r3.Unit(d)
	return func(*rand.Rand) r3.Vec { return u }
}

// IsotropicDirection samples uniformly on the unit sphere.
func IsotropicDirection() Sampler[r3.Vec] {
	return geo.SampleIsotropic
}

// Input configures a Generator.
type Input struct {
	// Particles cycles over all generated primaries in order.
	Particles         []track.ParticleID
	NumEvents         int
	PrimariesPerEvent int
	Energy            Sampler[float64]
	Position          Sampler[r3.Vec]
	Direction         Sampler[r3.Vec]
	Seed              uint64
}

// Generator produces the primaries of one event per call to Next. Track
// ids restart at zero in every event.
type Generator struct {
	in    Input
	rng   *rand.Rand
	event int
	count int
}

// New validates the input and creates a generator.
func New(in Input) (*Generator, error) {
	if len(in.Particles) == 0 {
		return nil, errors.New("primary generator needs at least one particle")
	}
	if in.NumEvents <= 0 || in.PrimariesPerEvent <= 0 {
		return nil, fmt.Errorf("primary generator needs positive events (%d) and primaries per event (%d)",
			in.NumEvents, in.PrimariesPerEvent)
	}
	if in.Energy == nil || in.Position == nil || in.Direction == nil {
		return nil, errors.New("primary generator needs energy, position and direction samplers")
	}
	g := &Generator{in: in}
	g.Reset()
	return g, nil
}

// NumEvents returns the number of events the generator produces.
func (g *Generator) NumEvents() int { return g.in.NumEvents }

// Next returns the primaries of the next event, or nil once every event
// has been generated.
func (g *Generator) Next() []track.Primary {
	if g.event >= g.in.NumEvents {
		return nil
	}
	out := make([]track.Primary, g.in.PrimariesPerEvent)
	for i := range out {
		out[i] = track.Primary{
			ParticleID: g.in.Particles[g.count%len(g.in.Particles)],
			Energy:     g.in.Energy(g.rng),
			Position:   g.in.Position(g.rng),
			Direction:  g.in.Direction(g.rng),
			EventID:    track.EventID(g.event),
			TrackID:    track.TrackID(i),
		}
		g.count++
	}
	g.event++
	return out
}

// All returns the primaries of every remaining event.
func (g *Generator) All() []track.Primary {
	var out []track.Primary
	for batch := g.Next(); batch != nil; batch = g.Next() {
		out = append(out, batch...)
	}
	return out
}

// Reset rewinds to the first event with the original seed.
func (g *Generator) Reset() {
	g.rng = rand.New(rand.NewPCG(g.in.Seed, 0x5eed))
	g.event = 0
	g.count = 0
}
