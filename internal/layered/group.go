package layered

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/graph"
	"github.com/banshee-data/gridcrf/internal/monitoring"
)

// sideOf returns the sign of a*x + b*y + c: -1, 0 or +1. Sites exactly on
// the line form their own side.
func sideOf(a, b, c float64, x, y int) int {
	v := a*float64(x) + b*float64(y) + c
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// DefineEdgeGroup tags every grid and diagonal arc whose two sites lie on
// different sides of the line a*x + b*y + c = 0 with group, on every layer.
// Link edges are never tagged. Calling it again with the same arguments
// changes nothing.
func (g *Graph) DefineEdgeGroup(a, b, c float64, group graph.Group) error {
	if a == 0 && b == 0 {
		return ErrLine
	}
	if group == graph.NoGroup {
		return ErrGroup
	}
	if err := g.checkLayout(); err != nil {
		return err
	}
	grid := g.cfg.Flags.Has(EdgesGrid)
	diag := g.cfg.Flags.Has(EdgesDiag)
	if !grid && !diag {
		return nil
	}

	tagged := 0
	defer func() {
		monitoring.Logf("define edge group: %gx%+gy%+g=0, group %d, %d arcs", a, b, c, group, tagged)
	}()

	L, w := g.cfg.Layers, g.width
	tag := func(x, y, nx, ny, a0, b0 int) error {
		if sideOf(a, b, c, x, y) == sideOf(a, b, c, nx, ny) {
			return nil
		}
		for l := 0; l < L; l++ {
			if err := g.store.SetArcGroup(a0+l, b0+l, group); err != nil {
				return fmt.Errorf("site (%d,%d): %w", x, y, err)
			}
		}
		tagged++
		return nil
	}

	for y := 0; y < g.height; y++ {
		for x := 0; x < w; x++ {
			idx := g.NodeIndex(x, y, 0)
			if grid {
				if x > 0 {
					if err := tag(x, y, x-1, y, idx, idx-L); err != nil {
						return err
					}
				}
				if y > 0 {
					if err := tag(x, y, x, y-1, idx, idx-L*w); err != nil {
						return err
					}
				}
			}
			if diag && y > 0 {
				if x > 0 {
					if err := tag(x, y, x-1, y-1, idx, idx-L*(w+1)); err != nil {
						return err
					}
				}
				if x < w-1 {
					if err := tag(x, y, x+1, y-1, idx, idx-L*(w-1)); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// SetGroupPot replaces the potential of every directed edge tagged with
// group by pot, which is stored as given on each direction. It returns the
// number of directed edges updated.
func (g *Graph) SetGroupPot(group graph.Group, pot *mat.Dense) (int, error) {
	if group == graph.NoGroup {
		return 0, ErrGroup
	}
	if pot != nil {
		n := g.store.NumStates()
		if r, c := pot.Dims(); r != n || c != n {
			return 0, fmt.Errorf("potential is %dx%d, want %dx%d: %w", r, c, n, n, ErrStates)
		}
	}

	updated := 0
	for n := 0; n < g.store.NumNodes(); n++ {
		for _, child := range g.store.ChildNodes(n) {
			if g.store.EdgeGroup(n, child) != group {
				continue
			}
			if err := g.store.SetEdge(n, child, pot); err != nil {
				return updated, err
			}
			updated++
		}
	}
	monitoring.Logf("set group pot: group %d, %d edges", group, updated)
	return updated, nil
}
