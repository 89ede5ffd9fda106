package phys

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/trackloop/internal/geo"
)

// EMParticles are the particle ids the EM models produce.
type EMParticles struct {
	Gamma    ParticleID
	Electron ParticleID
	Positron ParticleID
}

// NewModel returns the EM model with the given label.
func NewModel(label string, ids EMParticles) (Model, error) {
	switch label {
	case "compton":
		return compton{ids}, nil
	case "photoelectric":
		return photoelectric{ids}, nil
	case "pair":
		return pairProduction{ids}, nil
	case "annihilation":
		return annihilation{ids}, nil
	case "brems":
		return bremsstrahlung{ids}, nil
	default:
		return nil, fmt.Errorf("unknown model %q", label)
	}
}

// ModelLabels lists the labels accepted by NewModel.
func ModelLabels() []string {
	return []string{"annihilation", "brems", "compton", "pair", "photoelectric"}
}

func randomPhi(rng *rand.Rand) float64 { return 2 * math.Pi * rng.Float64() }

// compton scatters a photon off a free electron. The energy fraction is
// sampled flat between the kinematic limits.
type compton struct{ ids EMParticles }

func (compton) Label() string { return "compton" }

func (m compton) Sample(t Track, rng *rand.Rand, out *Interaction) error {
	k := t.Energy / ElectronMass
	eps0 := 1 / (1 + 2*k)
	eps := eps0 + (1-eps0)*rng.Float64()
	costheta := math.Max(-1, math.Min(1, 1-(1/eps-1)/k))

	out.Action = Scattered
	out.Energy = eps * t.Energy
	out.Direction = geo.Rotate(t.Geo.Dir, costheta, randomPhi(rng))

	eElectron := t.Energy - out.Energy
	if eElectron <= 0 {
		return nil
	}
	// Momentum balance: p_e = p_in - p_out.
	pe := r3.Sub(r3.Scale(t.Energy, t.Geo.Dir), r3.Scale(out.Energy, out.Direction))
	dir := t.Geo.Dir
	if r3.Norm(pe) > 0 {
		dir = r3.Unit(pe)
	}
	return out.AddSecondary(Secondary{ParticleID: m.ids.Electron, Energy: eElectron, Direction: dir})
}

// photoelectric absorbs the photon and emits an electron along its
// direction, neglecting binding energy.
type photoelectric struct{ ids EMParticles }

func (photoelectric) Label() string { return "photoelectric" }

func (m photoelectric) Sample(t Track, _ *rand.Rand, out *Interaction) error {
	out.Action = Absorbed
	return out.AddSecondary(Secondary{ParticleID: m.ids.Electron, Energy: t.Energy, Direction: t.Geo.Dir})
}

// pairProduction converts a photon above threshold into an electron and a
// positron sharing the available energy.
type pairProduction struct{ ids EMParticles }

func (pairProduction) Label() string { return "pair" }

func (m pairProduction) Sample(t Track, rng *rand.Rand, out *Interaction) error {
	avail := t.Energy - 2*ElectronMass
	if avail <= 0 {
		out.Action = Unchanged
		return nil
	}
	out.Action = Absorbed
	eps := rng.Float64()
	for _, s := range []struct {
		id     ParticleID
		energy float64
	}{
		{m.ids.Electron, eps * avail},
		{m.ids.Positron, (1 - eps) * avail},
	} {
		costheta := 1 - ElectronMass/(s.energy+ElectronMass)
		err := out.AddSecondary(Secondary{
			ParticleID: s.id,
			Energy:     s.energy,
			Direction:  geo.Rotate(t.Geo.Dir, costheta, randomPhi(rng)),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// annihilation converts a positron in flight into two photons.
type annihilation struct{ ids EMParticles }

func (annihilation) Label() string { return "annihilation" }

func (m annihilation) Sample(t Track, rng *rand.Rand, out *Interaction) error {
	out.Action = Absorbed
	total := t.Energy + 2*ElectronMass
	eps := 0.25 + 0.5*rng.Float64()

	e1 := eps * total
	dir1 := geo.SampleIsotropic(rng)
	p := r3.Scale(Momentum(ElectronMass, t.Energy), t.Geo.Dir)
	p2 := r3.Sub(p, r3.Scale(e1, dir1))
	dir2 := r3.Scale(-1, dir1)
	if r3.Norm(p2) > 0 {
		dir2 = r3.Unit(p2)
	}
	if err := out.AddSecondary(Secondary{ParticleID: m.ids.Gamma, Energy: e1, Direction: dir1}); err != nil {
		return err
	}
	return out.AddSecondary(Secondary{ParticleID: m.ids.Gamma, Energy: total - e1, Direction: dir2})
}

// bremsstrahlung emits a photon from a charged lepton. The photon energy
// fraction is sampled with a soft-biased u^2 spectrum.
type bremsstrahlung struct{ ids EMParticles }

func (bremsstrahlung) Label() string { return "brems" }

func (m bremsstrahlung) Sample(t Track, rng *rand.Rand, out *Interaction) error {
	u := rng.Float64()
	k := t.Energy * u * u
	out.Action = Scattered
	out.Energy = t.Energy - k
	out.Direction = t.Geo.Dir
	if k <= 0 {
		return nil
	}
	costheta := 1 - ElectronMass/(t.Energy+ElectronMass)
	return out.AddSecondary(Secondary{
		ParticleID: m.ids.Gamma,
		Energy:     k,
		Direction:  geo.Rotate(t.Geo.Dir, costheta, randomPhi(rng)),
	})
}
