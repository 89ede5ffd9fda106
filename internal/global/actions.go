package global

import (
	"context"
	"errors"
	"math"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/track"
)

// errUnlimitedStep is a per-slot fault: nothing limits the step of a track
// (no process, no boundary, no continuous loss), so it would never finish.
var errUnlimitedStep = errors.New("track step is not limited by physics, geometry or range")

type initializeTracksAction struct{ ConcreteAction }

func newInitializeTracksAction(id ActionID) *initializeTracksAction {
	return &initializeTracksAction{NewConcreteAction(id, "initialize-tracks",
		"fill vacant slots from queued initializers")}
}

func (a *initializeTracksAction) Order() ActionOrder { return OrderStart }

func (a *initializeTracksAction) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	return InitializeTracks(ctx, params, state)
}

type preStepAction struct{ ConcreteAction }

func newPreStepAction(id ActionID) *preStepAction {
	return &preStepAction{NewConcreteAction(id, "pre-step",
		"reset step state and sample the distance to interaction")}
}

func (a *preStepAction) Order() ActionOrder { return OrderPre }

func (a *preStepAction) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	physics := params.Physics()
	return Launch(ctx, state, a.Label(), func(slot track.TrackSlotID) error {
		step := &state.step[slot]
		step.reset()
		sim := &state.sim[slot]
		if sim.Status != track.StatusAlive {
			return nil
		}
		if state.geo[slot].IsOutside() {
			// Started outside the world.
			sim.Status = track.StatusKilled
			step.PostStep = params.ids.GeoBoundary
			return nil
		}
		s := physics.PreStep(state.physTrack(slot), state.rng[slot])
		step.PhysStep = s.Length
		step.Process = s.Process
		return nil
	})
}

type alongStepAction struct{ ConcreteAction }

func newAlongStepAction(id ActionID) *alongStepAction {
	return &alongStepAction{NewConcreteAction(id, "along-step",
		"propagate and apply continuous energy loss")}
}

func (a *alongStepAction) Order() ActionOrder { return OrderAlong }

func (a *alongStepAction) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	physics := params.Physics()
	geometry := params.Geometry()
	particles := params.Particles()
	ids := params.ids

	return Launch(ctx, state, a.Label(), func(slot track.TrackSlotID) error {
		sim := &state.sim[slot]
		if sim.Status != track.StatusAlive {
			return nil
		}
		step := &state.step[slot]
		par := &state.particle[slot]
		t := state.physTrack(slot)

		length, post := step.PhysStep, ids.PhysicsInteract
		if d := geometry.DistanceToBoundary(state.geo[slot]); d < length {
			length, post = d, ids.GeoBoundary
		}
		if r := physics.Range(t); r <= length {
			length, post = r, ids.ElossRange
		}
		if math.IsInf(length, 1) {
			return errUnlimitedStep
		}

		eloss := par.Energy
		if post != ids.ElossRange {
			eloss = physics.EnergyLoss(t, length)
		}
		if v := phys.Speed(particles.Get(par.ParticleID).Mass, par.Energy); v > 0 {
			sim.Time += length / v
		}
		geo.Move(&state.geo[slot], length)
		par.Energy -= eloss
		step.EnergyDeposit += eloss
		step.StepLength = length
		step.PostStep = post
		sim.NumSteps++

		if post == ids.ElossRange || par.Energy < physics.EnergyCutoff(par.ParticleID) {
			step.EnergyDeposit += par.Energy
			par.Energy = 0
			step.PostStep = ids.ElossRange
			sim.Status = track.StatusKilled
		}
		return nil
	})
}

type geoBoundaryAction struct{ ConcreteAction }

func newGeoBoundaryAction(id ActionID) *geoBoundaryAction {
	return &geoBoundaryAction{NewConcreteAction(id, "geo-boundary",
		"cross into the next volume, killing tracks that leave the world")}
}

func (a *geoBoundaryAction) Order() ActionOrder { return OrderPost }

func (a *geoBoundaryAction) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	geometry := params.Geometry()
	return Launch(ctx, state, a.Label(), func(slot track.TrackSlotID) error {
		sim := &state.sim[slot]
		if sim.Status != track.StatusAlive || state.step[slot].PostStep != a.ActionID() {
			return nil
		}
		g := &state.geo[slot]
		geo.CrossBoundary(geometry, g)
		if g.IsOutside() {
			sim.Status = track.StatusKilled
		}
		return nil
	})
}

type physicsInteractAction struct{ ConcreteAction }

func newPhysicsInteractAction(id ActionID) *physicsInteractAction {
	return &physicsInteractAction{NewConcreteAction(id, "physics-interact",
		"sample the discrete interaction selected at pre-step")}
}

func (a *physicsInteractAction) Order() ActionOrder { return OrderPost }

func (a *physicsInteractAction) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	physics := params.Physics()
	particles := params.Particles()

	return Launch(ctx, state, a.Label(), func(slot track.TrackSlotID) error {
		sim := &state.sim[slot]
		step := &state.step[slot]
		if sim.Status != track.StatusAlive || step.PostStep != a.ActionID() {
			return nil
		}
		par := &state.particle[slot]

		var out phys.Interaction
		out.Reset(step.buf)
		if err := physics.Interact(state.physTrack(slot), step.Process, state.rng[slot], &out); err != nil {
			return err
		}

		switch out.Action {
		case phys.Absorbed:
			par.Energy = 0
			sim.Status = track.StatusKilled
		case phys.Scattered:
			par.Energy = out.Energy
			state.geo[slot].Dir = out.Direction
		}
		step.EnergyDeposit += out.EnergyDeposit
		if sim.Status == track.StatusAlive && par.Energy < physics.EnergyCutoff(par.ParticleID) {
			step.EnergyDeposit += par.Energy
			par.Energy = 0
			sim.Status = track.StatusKilled
		}

		// Secondaries below their cutoff deposit locally instead of being tracked.
		kept := out.Secondaries[:0]
		for _, sec := range out.Secondaries {
			if !particles.Valid(sec.ParticleID) {
				return errors.New("interaction produced an invalid particle")
			}
			if math.IsNaN(sec.Energy) {
				return errors.New("interaction produced a secondary with NaN energy")
			}
			if sec.Energy <= 0 || sec.Energy < physics.EnergyCutoff(sec.ParticleID) {
				step.EnergyDeposit += max(sec.Energy, 0)
				continue
			}
			kept = append(kept, sec)
		}
		step.Secondaries = kept
		return nil
	})
}

type extendSecondariesAction struct{ ConcreteAction }

func newExtendSecondariesAction(id ActionID) *extendSecondariesAction {
	return &extendSecondariesAction{NewConcreteAction(id, "extend-from-secondaries",
		"queue secondaries and recycle the slots of dead tracks")}
}

func (a *extendSecondariesAction) Order() ActionOrder { return OrderExtend }

func (a *extendSecondariesAction) Execute(ctx context.Context, params *CoreParams, state *CoreState) error {
	return ExtendFromSecondaries(ctx, params, state)
}

type endStepAction struct{ ConcreteAction }

func newEndStepAction(id ActionID) *endStepAction {
	return &endStepAction{NewConcreteAction(id, "end-step", "end-of-step bookkeeping")}
}

func (a *endStepAction) Order() ActionOrder { return OrderEnd }

func (a *endStepAction) Execute(_ context.Context, _ *CoreParams, state *CoreState) error {
	state.numSteps++
	state.logger.Debug("step complete",
		"step", state.numSteps,
		"active", state.init.NumActive,
		"alive", state.NumAlive(),
		"queued", state.NumQueued(),
		"secondaries", state.init.NumSecondaries)
	return nil
}
