package global

import (
	"fmt"
	"log/slog"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/track"
)

// DefaultSecondaryStackSize is the per-slot secondary buffer used when
// ParamsInput leaves it unset.
const DefaultSecondaryStackSize = 8

// ParamsInput collects the shared, immutable problem data.
type ParamsInput struct {
	Particles *phys.ParticleParams
	Physics   phys.Physics
	Geometry  geo.Geometry
	Init      track.InitParams

	// SecondaryStackSize bounds the secondaries one interaction may produce.
	SecondaryStackSize int

	// Seed is mixed with event and track ids to seed each track's RNG.
	Seed uint64

	Logger *slog.Logger
}

// BuiltinActionIDs are the ids of the actions every CoreParams registers.
type BuiltinActionIDs struct {
	InitializeTracks ActionID
	PreStep          ActionID
	AlongStep        ActionID
	ElossRange       ActionID
	GeoBoundary      ActionID
	PhysicsInteract  ActionID
	ExtendSecondary  ActionID
	EndStep          ActionID
}

// CoreParams is the shared, read-only problem description. It is safe to
// use from any number of streams once built; only diagnostics may be added
// afterwards, before the first Stepper is constructed.
type CoreParams struct {
	particles *phys.ParticleParams
	physics   phys.Physics
	geometry  geo.Geometry
	init      track.InitParams
	secStack  int
	seed      uint64
	logger    *slog.Logger

	actions     *ActionRegistry
	ids         BuiltinActionIDs
	diagnostics []Diagnostic
}

// NewCoreParams validates the input and registers the built-in actions.
func NewCoreParams(in ParamsInput) (*CoreParams, error) {
	if in.Particles == nil || in.Physics == nil || in.Geometry == nil {
		return nil, &ConfigError{
			Code:    ErrCodeMissingCollaborator,
			Message: "core params need particles, physics and geometry",
		}
	}
	if in.Init.Capacity <= 0 {
		return nil, &ConfigError{
			Code:    ErrCodeZeroCapacity,
			Message: fmt.Sprintf("initializer capacity must be positive, got %d", in.Init.Capacity),
		}
	}
	if in.Init.MaxEvents <= 0 {
		return nil, &ConfigError{
			Code:    ErrCodeZeroEvents,
			Message: fmt.Sprintf("max_events must be positive, got %d", in.Init.MaxEvents),
		}
	}
	if in.SecondaryStackSize < 0 {
		return nil, fmt.Errorf("secondary stack size must not be negative, got %d", in.SecondaryStackSize)
	}
	if in.SecondaryStackSize == 0 {
		in.SecondaryStackSize = DefaultSecondaryStackSize
	}
	if in.Logger == nil {
		in.Logger = slog.Default()
	}

	p := &CoreParams{
		particles: in.Particles,
		physics:   in.Physics,
		geometry:  in.Geometry,
		init:      in.Init,
		secStack:  in.SecondaryStackSize,
		seed:      in.Seed,
		logger:    in.Logger,
		actions:   NewActionRegistry(),
	}
	if err := p.registerBuiltins(); err != nil {
		return nil, fmt.Errorf("failed to register built-in actions: %w", err)
	}
	return p, nil
}

func (p *CoreParams) registerBuiltins() error {
	reg := p.actions
	steps := []struct {
		id   *ActionID
		make func(ActionID) Action
	}{
		{&p.ids.InitializeTracks, func(id ActionID) Action { return newInitializeTracksAction(id) }},
		{&p.ids.PreStep, func(id ActionID) Action { return newPreStepAction(id) }},
		{&p.ids.AlongStep, func(id ActionID) Action { return newAlongStepAction(id) }},
		{&p.ids.ElossRange, func(id ActionID) Action {
			return ImplicitAction{NewConcreteAction(id, "eloss-range", "stop a track whose range ends within the step")}
		}},
		{&p.ids.GeoBoundary, func(id ActionID) Action { return newGeoBoundaryAction(id) }},
		{&p.ids.PhysicsInteract, func(id ActionID) Action { return newPhysicsInteractAction(id) }},
		{&p.ids.ExtendSecondary, func(id ActionID) Action { return newExtendSecondariesAction(id) }},
		{&p.ids.EndStep, func(id ActionID) Action { return newEndStepAction(id) }},
	}
	for _, s := range steps {
		id := reg.NextID()
		if err := reg.Insert(s.make(id)); err != nil {
			return err
		}
		*s.id = id
	}
	return nil
}

// AddDiagnostic registers a diagnostic to run between the post-step
// actions and secondary extension.
func (p *CoreParams) AddDiagnostic(d Diagnostic) (ActionID, error) {
	id := p.actions.NextID()
	if err := p.actions.Insert(NewDiagnosticAction(id, d)); err != nil {
		return NoAction, fmt.Errorf("failed to add diagnostic %q: %w", d.Label(), err)
	}
	p.diagnostics = append(p.diagnostics, d)
	return id, nil
}

// Particles returns the particle table.
func (p *CoreParams) Particles() *phys.ParticleParams { return p.particles }

// Physics returns the physics collaborator.
func (p *CoreParams) Physics() phys.Physics { return p.physics }

// Geometry returns the geometry collaborator.
func (p *CoreParams) Geometry() geo.Geometry { return p.geometry }

// Init returns the initializer limits.
func (p *CoreParams) Init() track.InitParams { return p.init }

// SecondaryStackSize returns the per-slot secondary buffer size.
func (p *CoreParams) SecondaryStackSize() int { return p.secStack }

// Seed returns the base RNG seed.
func (p *CoreParams) Seed() uint64 { return p.seed }

// Logger returns the logger used by actions.
func (p *CoreParams) Logger() *slog.Logger { return p.logger }

// Actions returns the action registry.
func (p *CoreParams) Actions() *ActionRegistry { return p.actions }

// ActionIDs returns the ids of the built-in actions.
func (p *CoreParams) ActionIDs() BuiltinActionIDs { return p.ids }

// Diagnostics returns the diagnostics added with AddDiagnostic.
func (p *CoreParams) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), p.diagnostics...)
}
