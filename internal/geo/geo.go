// Package geo provides the navigation collaborator used to move tracks
// through a detector: locating points, distances to the next boundary and
// boundary crossing.
package geo

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// VolumeID indexes the volumes of a geometry.
type VolumeID int32

// Outside is the volume of any point not inside the world.
const Outside VolumeID = -1

// Bump is the distance a track is pushed past a boundary when crossing it.
const Bump = 1e-8 // [cm]

// State is the geometry state of one track slot.
type State struct {
	Pos    r3.Vec
	Dir    r3.Vec
	Volume VolumeID
}

// IsOutside reports whether the track has left the world.
func (s State) IsOutside() bool { return s.Volume == Outside }

// Geometry is implemented by navigators. Implementations must be safe for
// concurrent readers.
type Geometry interface {
	// Locate returns the volume containing pos, or Outside.
	Locate(pos r3.Vec) VolumeID
	// DistanceToBoundary returns the distance along the direction to the
	// surface of the current volume; +Inf when the volume is unbounded.
	DistanceToBoundary(s State) float64
	// VolumeLabel names a volume.
	VolumeLabel(v VolumeID) string
	// NumVolumes returns the number of volumes.
	NumVolumes() int
}

// Initialize builds the state for a new track at pos moving along dir.
func Initialize(g Geometry, pos, dir r3.Vec) State {
	return State{Pos: pos, Dir: r3.Unit(dir), Volume: g.Locate(pos)}
}

// Move advances the position by dist along the direction.
func Move(s *State, dist float64) {
	s.Pos = r3.Add(s.Pos, r3.Scale(dist, s.Dir))
}

// CrossBoundary pushes a track that sits on a boundary into the next volume.
func CrossBoundary(g Geometry, s *State) {
	Move(s, Bump)
	s.Volume = g.Locate(s.Pos)
}

// Rotate returns dir deflected by polar angle acos(costheta) and azimuth phi.
func Rotate(dir r3.Vec, costheta, phi float64) r3.Vec {
	sintheta := math.Sqrt(math.Max(0, 1-costheta*costheta))
	a := sintheta * math.Cos(phi)
	b := sintheta * math.Sin(phi)

	alpha := math.Sqrt(math.Max(0, 1-dir.Z*dir.Z))
	if alpha < 1e-8 {
		return r3.Unit(r3.Vec{X: a, Y: b, Z: costheta * math.Copysign(1, dir.Z)})
	}
	return r3.Unit(r3.Vec{
		X: dir.X*costheta + (dir.X*dir.Z*a-dir.Y*b)/alpha,
		Y: dir.Y*costheta + (dir.Y*dir.Z*a+dir.X*b)/alpha,
		Z: dir.Z*costheta - a*alpha,
	})
}

// SampleIsotropic returns a direction uniform on the unit sphere.
func SampleIsotropic(rng *rand.Rand) r3.Vec {
	costheta := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	sintheta := math.Sqrt(1 - costheta*costheta)
	return r3.Vec{X: sintheta * math.Cos(phi), Y: sintheta * math.Sin(phi), Z: costheta}
}
