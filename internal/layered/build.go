package layered

import (
	"fmt"

	"github.com/banshee-data/gridcrf/internal/monitoring"
)

// Build resets the store and creates width*height*layers nodes with empty
// potentials, plus the edges selected by the configured flags. All edges
// are created with empty potentials and graph.NoGroup.
func (g *Graph) Build(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("build %dx%d: %w", width, height, ErrSize)
	}
	defer monitoring.Timed("build", "%dx%d sites, %d layers, edges %s", width, height, g.cfg.Layers, g.cfg.Flags)()

	g.store.Reset()
	g.width, g.height = width, height
	if err := g.build(); err != nil {
		g.width, g.height = 0, 0
		return err
	}
	return nil
}

func (g *Graph) build() error {
	L, w := g.cfg.Layers, g.width
	link := g.cfg.Flags.Has(EdgesLink)
	grid := g.cfg.Flags.Has(EdgesGrid)

	for y := 0; y < g.height; y++ {
		for x := 0; x < w; x++ {
			idx := g.NodeIndex(x, y, 0)
			for l := 0; l < L; l++ {
				n, err := g.store.AddNode(nil)
				if err != nil {
					return err
				}
				if n != idx+l {
					return fmt.Errorf("node (%d,%d,%d) got index %d, want %d: %w", x, y, l, n, idx+l, ErrNodeCount)
				}
			}

			if link && L >= 2 {
				if err := g.store.AddArc(idx, idx+1, nil); err != nil {
					return fmt.Errorf("link at (%d,%d): %w", x, y, err)
				}
				for l := 2; l < L; l++ {
					if err := g.store.AddEdge(idx+l-1, idx+l, nil); err != nil {
						return fmt.Errorf("link at (%d,%d,%d): %w", x, y, l, err)
					}
				}
			}

			if grid {
				if x > 0 {
					if err := g.addLayerArcs(idx, idx-L); err != nil {
						return fmt.Errorf("grid at (%d,%d): %w", x, y, err)
					}
				}
				if y > 0 {
					if err := g.addLayerArcs(idx, idx-L*w); err != nil {
						return fmt.Errorf("grid at (%d,%d): %w", x, y, err)
					}
				}
			}
		}
	}

	if !g.cfg.Flags.Has(EdgesDiag) {
		return nil
	}
	for y := 1; y < g.height; y++ {
		for x := 0; x < w; x++ {
			idx := g.NodeIndex(x, y, 0)
			if x > 0 {
				if err := g.addLayerArcs(idx, idx-L*(w+1)); err != nil {
					return fmt.Errorf("diag at (%d,%d): %w", x, y, err)
				}
			}
			if x < w-1 {
				if err := g.addLayerArcs(idx, idx-L*(w-1)); err != nil {
					return fmt.Errorf("diag at (%d,%d): %w", x, y, err)
				}
			}
		}
	}
	return nil
}

// addLayerArcs connects every layer of the site starting at a with the same
// layer of the site starting at b.
func (g *Graph) addLayerArcs(a, b int) error {
	for l := 0; l < g.cfg.Layers; l++ {
		if err := g.store.AddArc(a+l, b+l, nil); err != nil {
			return err
		}
	}
	return nil
}
