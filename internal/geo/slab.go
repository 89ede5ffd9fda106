package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Slab is a stack of layers perpendicular to z inside a square world of
// half-width HalfWidth in x and y. Layer i spans [planes[i], planes[i+1]).
type Slab struct {
	halfWidth float64
	planes    []float64
	labels    []string
}

// NewSlab builds a slab geometry. planes must be strictly increasing and
// hold at least two values; labels name the len(planes)-1 layers and may be
// nil.
func NewSlab(halfWidth float64, planes []float64, labels []string) (*Slab, error) {
	if halfWidth <= 0 {
		return nil, fmt.Errorf("slab half-width must be positive, got %g", halfWidth)
	}
	if len(planes) < 2 {
		return nil, errors.New("slab needs at least two planes")
	}
	for i := 1; i < len(planes); i++ {
		if !(planes[i] > planes[i-1]) {
			return nil, fmt.Errorf("slab planes must increase: planes[%d]=%g <= planes[%d]=%g",
				i, planes[i], i-1, planes[i-1])
		}
	}
	n := len(planes) - 1
	if labels == nil {
		labels = make([]string, n)
		for i := range labels {
			labels[i] = fmt.Sprintf("layer%d", i)
		}
	}
	if len(labels) != n {
		return nil, fmt.Errorf("slab has %d layers but %d labels", n, len(labels))
	}
	return &Slab{
		halfWidth: halfWidth,
		planes:    append([]float64(nil), planes...),
		labels:    append([]string(nil), labels...),
	}, nil
}

// Locate implements Geometry.
func (g *Slab) Locate(pos r3.Vec) VolumeID {
	if math.Abs(pos.X) >= g.halfWidth || math.Abs(pos.Y) >= g.halfWidth {
		return Outside
	}
	last := len(g.planes) - 1
	if pos.Z < g.planes[0] || pos.Z >= g.planes[last] {
		return Outside
	}
	// First plane strictly above z, minus one, is the layer.
	i := sort.Search(len(g.planes), func(i int) bool { return g.planes[i] > pos.Z })
	return VolumeID(i - 1)
}

// DistanceToBoundary implements Geometry.
func (g *Slab) DistanceToBoundary(s State) float64 {
	if s.IsOutside() {
		return math.Inf(1)
	}
	d := math.Min(
		distanceToPlanes(s.Pos.X, s.Dir.X, -g.halfWidth, g.halfWidth),
		distanceToPlanes(s.Pos.Y, s.Dir.Y, -g.halfWidth, g.halfWidth),
	)
	lo, hi := g.planes[s.Volume], g.planes[s.Volume+1]
	return math.Min(d, distanceToPlanes(s.Pos.Z, s.Dir.Z, lo, hi))
}

// VolumeLabel implements Geometry.
func (g *Slab) VolumeLabel(v VolumeID) string {
	if v < 0 || int(v) >= len(g.labels) {
		return "[outside]"
	}
	return g.labels[v]
}

// NumVolumes implements Geometry.
func (g *Slab) NumVolumes() int { return len(g.labels) }

func distanceToPlanes(x, u, lo, hi float64) float64 {
	switch {
	case u > 0:
		return math.Max(0, (hi-x)/u)
	case u < 0:
		return math.Max(0, (lo-x)/u)
	default:
		return math.Inf(1)
	}
}

// Infinite is a single unbounded volume. Tracks never reach a boundary.
type Infinite struct{}

// Locate implements Geometry.
func (Infinite) Locate(r3.Vec) VolumeID { return 0 }

// DistanceToBoundary implements Geometry.
func (Infinite) DistanceToBoundary(State) float64 { return math.Inf(1) }

// VolumeLabel implements Geometry.
func (Infinite) VolumeLabel(v VolumeID) string {
	if v == 0 {
		return "world"
	}
	return "[outside]"
}

// NumVolumes implements Geometry.
func (Infinite) NumVolumes() int { return 1 }
