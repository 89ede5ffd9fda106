package phys

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Model samples the final state of one discrete process.
type Model interface {
	Label() string
	Sample(t Track, rng *rand.Rand, out *Interaction) error
}

// ProcessDef binds a model to a particle with a constant macroscopic cross
// section.
type ProcessDef struct {
	Particle     ParticleID
	Model        Model
	CrossSection float64 // [1/cm]
}

// ToyInput configures Toy physics.
type ToyInput struct {
	Particles *ParticleParams
	Processes []ProcessDef
	// DEDX is the constant stopping power per particle [MeV/cm]. Particles
	// without an entry have no continuous losses.
	DEDX map[ParticleID]float64
	// Cutoffs is the tracking cutoff per particle [MeV].
	Cutoffs map[ParticleID]float64
}

// Toy is a homogeneous-material physics with constant cross sections and
// constant stopping power. It is accurate to nothing but exercises every
// path of the stepping loop.
type Toy struct {
	processes  []ProcessDef
	byParticle [][]ProcessID
	totalXS    []float64
	dedx       []float64
	cutoff     []float64
}

// NewToy validates the input and builds per-particle lookup tables.
func NewToy(in ToyInput) (*Toy, error) {
	if in.Particles == nil {
		return nil, fmt.Errorf("toy physics: missing particle table")
	}
	n := in.Particles.Size()
	p := &Toy{
		processes:  append([]ProcessDef(nil), in.Processes...),
		byParticle: make([][]ProcessID, n),
		totalXS:    make([]float64, n),
		dedx:       make([]float64, n),
		cutoff:     make([]float64, n),
	}
	for i, proc := range in.Processes {
		if !in.Particles.Valid(proc.Particle) {
			return nil, fmt.Errorf("toy physics: process %d has invalid particle %d", i, proc.Particle)
		}
		if proc.Model == nil {
			return nil, fmt.Errorf("toy physics: process %d has no model", i)
		}
		if proc.CrossSection < 0 {
			return nil, fmt.Errorf("toy physics: process %q has negative cross section", proc.Model.Label())
		}
		p.byParticle[proc.Particle] = append(p.byParticle[proc.Particle], ProcessID(i))
		p.totalXS[proc.Particle] += proc.CrossSection
	}
	for id, v := range in.DEDX {
		if !in.Particles.Valid(id) || v < 0 {
			return nil, fmt.Errorf("toy physics: bad stopping power %g for particle %d", v, id)
		}
		p.dedx[id] = v
	}
	for id, v := range in.Cutoffs {
		if !in.Particles.Valid(id) || v < 0 {
			return nil, fmt.Errorf("toy physics: bad cutoff %g for particle %d", v, id)
		}
		p.cutoff[id] = v
	}
	return p, nil
}

// PreStep implements Physics.
func (p *Toy) PreStep(t Track, rng *rand.Rand) Step {
	total := p.totalXS[t.Particle]
	if total == 0 {
		return Step{Length: math.Inf(1), Process: NoProcess}
	}
	length := rng.ExpFloat64() / total

	// Select the process proportionally to its cross section.
	u := rng.Float64() * total
	procs := p.byParticle[t.Particle]
	for _, id := range procs {
		u -= p.processes[id].CrossSection
		if u < 0 {
			return Step{Length: length, Process: id}
		}
	}
	return Step{Length: length, Process: procs[len(procs)-1]}
}

// Range implements Physics.
func (p *Toy) Range(t Track) float64 {
	dedx := p.dedx[t.Particle]
	if dedx == 0 {
		return math.Inf(1)
	}
	return math.Max(0, t.Energy-p.cutoff[t.Particle]) / dedx
}

// EnergyLoss implements Physics.
func (p *Toy) EnergyLoss(t Track, step float64) float64 {
	return math.Min(t.Energy, p.dedx[t.Particle]*step)
}

// Interact implements Physics.
func (p *Toy) Interact(t Track, id ProcessID, rng *rand.Rand, out *Interaction) error {
	if id < 0 || int(id) >= len(p.processes) {
		return fmt.Errorf("invalid process %d", id)
	}
	return p.processes[id].Model.Sample(t, rng, out)
}

// EnergyCutoff implements Physics.
func (p *Toy) EnergyCutoff(id ParticleID) float64 { return p.cutoff[id] }

// ProcessLabel implements Physics.
func (p *Toy) ProcessLabel(id ProcessID) string {
	if id < 0 || int(id) >= len(p.processes) {
		return "[none]"
	}
	return p.processes[id].Model.Label()
}

// NumProcesses implements Physics.
func (p *Toy) NumProcesses() int { return len(p.processes) }
