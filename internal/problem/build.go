package problem

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/trackloop/internal/canon"
	"github.com/roach88/trackloop/internal/diag"
	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/primary"
	"github.com/roach88/trackloop/internal/track"
)

// Problem is a definition turned into runnable parts.
type Problem struct {
	Definition  *Definition
	Hash        string
	Params      *global.CoreParams
	Diagnostics []global.Diagnostic
	Generator   *primary.Generator
}

// Hash returns the domain-separated hash of a definition's canonical form.
func Hash(def *Definition) (string, error) {
	return canon.Hash(canon.DomainProblem, def)
}

// Build constructs the particle table, toy physics, geometry, core params,
// diagnostics and primary generator of a validated definition.
func Build(def *Definition, logger *slog.Logger) (*Problem, error) {
	hash, err := Hash(def)
	if err != nil {
		return nil, fmt.Errorf("failed to hash problem: %w", err)
	}

	particles, err := phys.NewParticleParams(phys.StandardParticles())
	if err != nil {
		return nil, err
	}
	physics, err := buildPhysics(def.Physics, particles)
	if err != nil {
		return nil, err
	}
	geometry, err := buildGeometry(def.Geometry)
	if err != nil {
		return nil, err
	}

	params, err := global.NewCoreParams(global.ParamsInput{
		Particles:          particles,
		Physics:            physics,
		Geometry:           geometry,
		Init:               track.InitParams{Capacity: def.InitializerCapacity, MaxEvents: def.MaxEvents},
		SecondaryStackSize: def.SecondaryStackSize,
		Seed:               def.Seed,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	diags, err := buildDiagnostics(def.Diagnostics, particles)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		if _, err := params.AddDiagnostic(d); err != nil {
			return nil, err
		}
	}

	gen, err := buildGenerator(def, particles)
	if err != nil {
		return nil, err
	}

	return &Problem{
		Definition:  def,
		Hash:        hash,
		Params:      params,
		Diagnostics: diags,
		Generator:   gen,
	}, nil
}

// NewStepper builds a stepper over the problem's params.
func (p *Problem) NewStepper(threads int, sync bool, observer global.ActionObserver) (*global.Stepper, error) {
	return global.NewStepper(global.StepperInput{
		Params:        p.Params,
		NumTrackSlots: p.Definition.NumTrackSlots,
		NumThreads:    threads,
		Sync:          sync,
		Observer:      observer,
	})
}

func buildPhysics(def PhysicsDef, particles *phys.ParticleParams) (*phys.Toy, error) {
	lookup := func(label string) phys.ParticleID {
		id, _ := particles.Find(label)
		return id
	}
	ids := phys.EMParticles{
		Gamma:    lookup("gamma"),
		Electron: lookup("e-"),
		Positron: lookup("e+"),
	}

	in := phys.ToyInput{
		Particles: particles,
		DEDX:      make(map[phys.ParticleID]float64, len(def.DEDX)),
		Cutoffs:   make(map[phys.ParticleID]float64, len(def.Cutoffs)),
	}
	for _, p := range def.Processes {
		model, err := phys.NewModel(p.Model, ids)
		if err != nil {
			return nil, err
		}
		in.Processes = append(in.Processes, phys.ProcessDef{
			Particle:     lookup(p.Particle),
			Model:        model,
			CrossSection: p.CrossSection,
		})
	}
	for label, v := range def.DEDX {
		in.DEDX[lookup(label)] = v
	}
	for label, v := range def.Cutoffs {
		in.Cutoffs[lookup(label)] = v
	}
	return phys.NewToy(in)
}

func buildGeometry(def GeometryDef) (geo.Geometry, error) {
	switch def.Kind {
	case "slab":
		return geo.NewSlab(def.HalfWidth, def.Planes, def.Labels)
	case "infinite":
		return geo.Infinite{}, nil
	default:
		return nil, fmt.Errorf("unknown geometry kind %q", def.Kind)
	}
}

func buildDiagnostics(def *DiagnosticsDef, particles *phys.ParticleParams) ([]global.Diagnostic, error) {
	if def == nil {
		return nil, nil
	}
	var out []global.Diagnostic
	if def.Step != nil {
		out = append(out, diag.NewStepDiagnostic(particles, def.Step.MaxSteps))
	}
	if e := def.Energy; e != nil {
		axis, err := diag.ParseAxis(e.Axis)
		if err != nil {
			return nil, err
		}
		d, err := diag.NewEnergyDiagnostic(axis, diag.UniformEdges(e.Min, e.Max, e.Bins))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if def.Process {
		out = append(out, diag.NewProcessDiagnostic())
	}
	return out, nil
}

func buildGenerator(def *Definition, particles *phys.ParticleParams) (*primary.Generator, error) {
	pd := def.Primaries
	in := primary.Input{
		NumEvents:         pd.NumEvents,
		PrimariesPerEvent: pd.PerEvent,
		Seed:              def.Seed,
	}
	for _, label := range pd.Particles {
		id, _ := particles.Find(label)
		in.Particles = append(in.Particles, id)
	}

	switch pd.Energy.Kind {
	case "delta":
		in.Energy = primary.DeltaEnergy(pd.Energy.Value)
	case "uniform":
		in.Energy = primary.UniformEnergy(pd.Energy.Min, pd.Energy.Max)
	}
	switch pd.Position.Kind {
	case "delta":
		in.Position = primary.DeltaPosition(vec(pd.Position.Value))
	case "box":
		in.Position = primary.BoxPosition(vec(pd.Position.Min), vec(pd.Position.Max))
	}
	switch pd.Direction.Kind {
	case "delta":
		in.Direction = primary.DeltaDirection(vec(pd.Direction.Value))
	case "isotropic":
		in.Direction = primary.IsotropicDirection()
	}
	return primary.New(in)
}

func vec(v []float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
