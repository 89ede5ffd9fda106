package phys

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/roach88/trackloop/internal/geo"
	"github.com/roach88/trackloop/internal/track"
)

// ProcessID indexes the processes of a Physics implementation.
type ProcessID int32

// NoProcess means no discrete interaction limits the step.
const NoProcess ProcessID = -1

// ErrSecondaryOverflow is returned when an interaction produces more
// secondaries than the per-slot buffer holds.
var ErrSecondaryOverflow = errors.New("secondary buffer overflow")

// Track is the read-only view of a track handed to physics.
type Track struct {
	Slot     track.TrackSlotID
	TrackID  track.TrackID
	EventID  track.EventID
	NumSteps uint32
	Particle ParticleID
	Energy   float64
	Geo      geo.State
}

// Step is the physics proposal for the next step.
type Step struct {
	Length  float64 // [cm], +Inf if no discrete process applies
	Process ProcessID
}

// InteractionAction is the outcome of a discrete interaction for the
// incident track.
type InteractionAction uint8

const (
	// Unchanged leaves the incident track as it was.
	Unchanged InteractionAction = iota
	// Scattered updates the incident energy and direction.
	Scattered
	// Absorbed kills the incident track.
	Absorbed
)

// Secondary is a particle produced by an interaction.
type Secondary struct {
	ParticleID ParticleID
	Energy     float64
	Direction  r3.Vec
}

// Interaction is the result of a discrete interaction. Secondaries is a
// view over a fixed per-slot buffer; AddSecondary fails once it is full.
type Interaction struct {
	Action        InteractionAction
	Energy        float64
	Direction     r3.Vec
	EnergyDeposit float64
	Secondaries   []Secondary
}

// Reset prepares the interaction to receive results into buf.
func (i *Interaction) Reset(buf []Secondary) {
	*i = Interaction{Secondaries: buf[:0]}
}

// AddSecondary appends a secondary without growing the buffer.
func (i *Interaction) AddSecondary(s Secondary) error {
	if len(i.Secondaries) == cap(i.Secondaries) {
		return fmt.Errorf("%w: capacity %d", ErrSecondaryOverflow, cap(i.Secondaries))
	}
	i.Secondaries = append(i.Secondaries, s)
	return nil
}

// Physics is implemented by physics collaborators. Implementations must be
// safe for concurrent use; all randomness comes from the per-slot rng.
type Physics interface {
	// PreStep samples the distance to the next discrete interaction.
	PreStep(t Track, rng *rand.Rand) Step
	// Range returns the distance over which continuous losses bring the
	// track down to its energy cutoff; +Inf when there are none.
	Range(t Track) float64
	// EnergyLoss returns the continuous energy loss over a step.
	EnergyLoss(t Track, step float64) float64
	// Interact samples the discrete process selected at pre-step.
	Interact(t Track, p ProcessID, rng *rand.Rand, out *Interaction) error
	// EnergyCutoff is the energy below which a track is killed and its
	// energy deposited locally.
	EnergyCutoff(p ParticleID) float64
	// ProcessLabel names a process.
	ProcessLabel(p ProcessID) string
	// NumProcesses returns the number of processes.
	NumProcesses() int
}
