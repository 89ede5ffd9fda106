// Package phys holds the particle table and the physics collaborator that
// proposes step lengths, continuous energy loss and discrete interactions.
package phys

import (
	"fmt"
	"math"

	"github.com/roach88/trackloop/internal/track"
)

// ParticleID indexes the particle table.
type ParticleID = track.ParticleID

const (
	// ElectronMass is m_e c^2.
	ElectronMass = 0.51099895000 // [MeV]
	// CLight is the speed of light.
	CLight = 2.99792458e10 // [cm/s]
)

// ParticleDef describes one particle type.
type ParticleDef struct {
	Label  string
	PDG    int
	Mass   float64 // [MeV]
	Charge float64 // [e]
}

// StandardParticles is the photon and light-lepton table used by the toy
// EM physics.
func StandardParticles() []ParticleDef {
	return []ParticleDef{
		{Label: "gamma", PDG: 22},
		{Label: "e-", PDG: 11, Mass: ElectronMass, Charge: -1},
		{Label: "e+", PDG: -11, Mass: ElectronMass, Charge: 1},
	}
}

// ParticleParams is the immutable particle table.
type ParticleParams struct {
	defs    []ParticleDef
	byLabel map[string]ParticleID
	byPDG   map[int]ParticleID
}

// NewParticleParams builds a particle table. Labels and PDG codes must be unique.
func NewParticleParams(defs []ParticleDef) (*ParticleParams, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("particle table is empty")
	}
	p := &ParticleParams{
		defs:    append([]ParticleDef(nil), defs...),
		byLabel: make(map[string]ParticleID, len(defs)),
		byPDG:   make(map[int]ParticleID, len(defs)),
	}
	for i, d := range defs {
		if d.Label == "" {
			return nil, fmt.Errorf("particle %d has no label", i)
		}
		if _, dup := p.byLabel[d.Label]; dup {
			return nil, fmt.Errorf("duplicate particle label %q", d.Label)
		}
		if _, dup := p.byPDG[d.PDG]; dup {
			return nil, fmt.Errorf("duplicate particle PDG %d (%s)", d.PDG, d.Label)
		}
		if d.Mass < 0 {
			return nil, fmt.Errorf("particle %q has negative mass", d.Label)
		}
		p.byLabel[d.Label] = ParticleID(i)
		p.byPDG[d.PDG] = ParticleID(i)
	}
	return p, nil
}

// Size returns the number of particle types.
func (p *ParticleParams) Size() int { return len(p.defs) }

// Get returns a particle definition. The id must be valid.
func (p *ParticleParams) Get(id ParticleID) ParticleDef { return p.defs[id] }

// Valid reports whether id is in the table.
func (p *ParticleParams) Valid(id ParticleID) bool { return int(id) < len(p.defs) }

// Find looks up a particle by label.
func (p *ParticleParams) Find(label string) (ParticleID, bool) {
	id, ok := p.byLabel[label]
	return id, ok
}

// FindPDG looks up a particle by PDG code.
func (p *ParticleParams) FindPDG(pdg int) (ParticleID, bool) {
	id, ok := p.byPDG[pdg]
	return id, ok
}

// Label returns the label of a particle, or a placeholder for invalid ids.
func (p *ParticleParams) Label(id ParticleID) string {
	if !p.Valid(id) {
		return fmt.Sprintf("[invalid particle %d]", id)
	}
	return p.defs[id].Label
}

// ParticleState is the particle part of one track slot.
type ParticleState struct {
	ParticleID ParticleID
	Energy     float64 // kinetic [MeV]
}

// Speed returns the track speed for a particle of the given mass.
func Speed(mass, energy float64) float64 {
	if mass == 0 {
		return CLight
	}
	gamma := (energy + mass) / mass
	return CLight * math.Sqrt(math.Max(0, 1-1/(gamma*gamma)))
}

// Momentum returns |p| c for a particle of the given mass.
func Momentum(mass, energy float64) float64 {
	return math.Sqrt(energy * (energy + 2*mass))
}
