package diag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/trackloop/internal/global"
	"github.com/roach88/trackloop/internal/track"
)

// Axis selects a coordinate.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis converts "x", "y" or "z".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	default:
		return 0, fmt.Errorf("unknown axis %q", s)
	}
}

func (a Axis) String() string { return [...]string{"x", "y", "z"}[a] }

// EnergyResult is the JSON form of an energy deposition profile.
type EnergyResult struct {
	Axis    string    `json:"axis"`
	Edges   []float64 `json:"edges"`
	Deposit []float64 `json:"deposit"`
}

// EnergyDiagnostic bins the energy deposited each step by the post-step
// position along one axis. Deposits outside the edges are dropped.
type EnergyDiagnostic struct {
	axis  Axis
	edges []float64

	mu      sync.Mutex
	deposit []float64
}

// NewEnergyDiagnostic creates a profile with the given increasing bin edges.
func NewEnergyDiagnostic(axis Axis, edges []float64) (*EnergyDiagnostic, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("energy diagnostic needs at least two edges")
	}
	if !sort.Float64sAreSorted(edges) {
		return nil, fmt.Errorf("energy diagnostic edges must increase")
	}
	return &EnergyDiagnostic{
		axis:    axis,
		edges:   append([]float64(nil), edges...),
		deposit: make([]float64, len(edges)-1),
	}, nil
}

// UniformEdges returns n+1 evenly spaced edges over [lo, hi].
func UniformEdges(lo, hi float64, n int) []float64 {
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	return edges
}

// Label implements global.Diagnostic.
func (d *EnergyDiagnostic) Label() string { return "energy-diagnostic" }

// MidStep accumulates deposits in slot order, so totals do not depend on
// the number of workers.
func (d *EnergyDiagnostic) MidStep(_ context.Context, _ *global.CoreParams, state *global.CoreState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < state.Size(); i++ {
		v := state.View(track.TrackSlotID(i))
		if v.EnergyDeposit == 0 {
			continue
		}
		x := [...]float64{v.Geo.Pos.X, v.Geo.Pos.Y, v.Geo.Pos.Z}[d.axis]
		if bin := d.bin(x); bin >= 0 {
			d.deposit[bin] += v.EnergyDeposit
		}
	}
	return nil
}

func (d *EnergyDiagnostic) bin(x float64) int {
	if x < d.edges[0] || x >= d.edges[len(d.edges)-1] {
		return -1
	}
	return sort.Search(len(d.edges), func(i int) bool { return d.edges[i] > x }) - 1
}

// Result implements global.Diagnostic.
func (d *EnergyDiagnostic) Result() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return EnergyResult{
		Axis:    d.axis.String(),
		Edges:   append([]float64(nil), d.edges...),
		Deposit: append([]float64(nil), d.deposit...),
	}
}
