package harness

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/phys"
	"github.com/roach88/trackloop/internal/track"
)

var errScripted = errors.New("scripted failure")

type ruleKey struct {
	event track.EventID
	track track.TrackID
	step  uint32
}

// scriptedPhysics moves every track one unit per step and always ends the
// step with an interaction, where the script decides what happens.
type scriptedPhysics struct {
	rules     map[ruleKey]ScriptRule
	lifetime  uint32
	secondary phys.ParticleID
}

func (p *scriptedPhysics) PreStep(phys.Track, *rand.Rand) phys.Step {
	return phys.Step{Length: 1, Process: 0}
}

func (p *scriptedPhysics) Range(phys.Track) float64 { return math.Inf(1) }

func (p *scriptedPhysics) EnergyLoss(phys.Track, float64) float64 { return 0 }

func (p *scriptedPhysics) Interact(t phys.Track, _ phys.ProcessID, _ *rand.Rand, out *phys.Interaction) error {
	rule, ok := p.rules[ruleKey{t.EventID, t.TrackID, t.NumSteps}]
	if !ok {
		if p.lifetime > 0 && t.NumSteps >= p.lifetime {
			out.Action = phys.Absorbed
		}
		return nil
	}
	if rule.Panic {
		panic(fmt.Sprintf("scripted panic in track %d", t.TrackID))
	}
	if rule.Fail {
		return errScripted
	}
	if rule.Kill {
		out.Action = phys.Absorbed
	}
	for i := 0; i < rule.Secondaries; i++ {
		sec := phys.Secondary{ParticleID: p.secondary, Energy: 1, Direction: r3.Vec{Z: 1}}
		if err := out.AddSecondary(sec); err != nil {
			return err
		}
	}
	return nil
}

func (p *scriptedPhysics) EnergyCutoff(phys.ParticleID) float64 { return 0 }

func (p *scriptedPhysics) ProcessLabel(phys.ProcessID) string { return "scripted" }

func (p *scriptedPhysics) NumProcesses() int { return 1 }

// buildScripted creates the params and primaries of a scripted scenario.
func buildScripted(s *Scenario, opts global.ParamsInput) (*global.CoreParams, []track.Primary, error) {
	particles, err := phys.NewParticleParams(phys.StandardParticles())
	if err != nil {
		return nil, nil, err
	}
	gamma, ok := particles.Find("gamma")
	if !ok {
		return nil, nil, fmt.Errorf("standard particles have no gamma")
	}

	physics := &scriptedPhysics{
		rules:     make(map[ruleKey]ScriptRule, len(s.Script)),
		lifetime:  s.Lifetime,
		secondary: gamma,
	}
	for _, r := range s.Script {
		physics.rules[ruleKey{track.EventID(r.Event), track.TrackID(r.Track), r.Step}] = r
	}

	maxEvents := s.MaxEvents
	if maxEvents == 0 {
		maxEvents = 1
	}
	opts.Particles = particles
	opts.Physics = physics
	opts.Geometry = geo.Infinite{}
	opts.Init = track.InitParams{Capacity: s.Capacity, MaxEvents: maxEvents}
	opts.SecondaryStackSize = s.SecondaryStackSize
	params, err := global.NewCoreParams(opts)
	if err != nil {
		return nil, nil, err
	}

	primaries := make([]track.Primary, len(s.Primaries))
	for i, ps := range s.Primaries {
		pid := gamma
		if ps.Particle != "" {
			if pid, ok = particles.Find(ps.Particle); !ok {
				return nil, nil, fmt.Errorf("primaries[%d]: unknown particle %q", i, ps.Particle)
			}
		}
		energy := ps.Energy
		if energy == 0 {
			energy = 1
		}
		primaries[i] = track.Primary{
			ParticleID: pid,
			Energy:     energy,
			Direction:  r3.Vec{Z: 1},
			EventID:    track.EventID(ps.Event),
			TrackID:    track.TrackID(ps.Track),
		}
	}
	return params, primaries, nil
}
