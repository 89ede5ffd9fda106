package track

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// ParticleID indexes the particle table.
type ParticleID uint32

// Primary is an externally generated track that enters the simulation.
type Primary struct {
	ParticleID ParticleID
	Energy     float64 // [MeV]
	Position   r3.Vec  // [cm]
	Direction  r3.Vec
	Time       float64 // [s]
	EventID    EventID
	TrackID    TrackID
}

// GeoInitializer seeds the geometry state of a new track.
type GeoInitializer struct {
	Position  r3.Vec
	Direction r3.Vec
}

// ParticleInitializer seeds the particle state of a new track.
type ParticleInitializer struct {
	ParticleID ParticleID
	Energy     float64
}

// Initializer is a pending track: everything needed to construct it in a
// slot. It is consumed exactly once.
type Initializer struct {
	Sim      SimInitializer
	Geo      GeoInitializer
	Particle ParticleInitializer
}

// FromPrimary builds the initializer for a primary. Primaries have no parent.
func FromPrimary(p Primary) Initializer {
	return Initializer{
		Sim: SimInitializer{
			TrackID:  p.TrackID,
			ParentID: NoTrack,
			EventID:  p.EventID,
			Time:     p.Time,
		},
		Geo: GeoInitializer{
			Position:  p.Position,
			Direction: p.Direction,
		},
		Particle: ParticleInitializer{
			ParticleID: p.ParticleID,
			Energy:     p.Energy,
		},
	}
}
