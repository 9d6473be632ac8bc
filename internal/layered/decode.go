package layered

import (
	"fmt"

	"github.com/banshee-data/gridcrf/internal/graph"
	"github.com/banshee-data/gridcrf/internal/potential"
)

// Decode returns, for every site, the state with the largest node
// potential on layer l, skipping states whose mask entry is false. Sites
// without a potential decode to -1. The result is indexed [y][x].
func (g *Graph) Decode(l int, mask []bool) ([][]int, error) {
	if err := g.checkLayout(); err != nil {
		return nil, err
	}
	if l < 0 || l >= g.cfg.Layers {
		return nil, fmt.Errorf("layer %d of %d: %w", l, g.cfg.Layers, graph.ErrNodeRange)
	}
	out := make([][]int, g.height)
	for y := range out {
		out[y] = make([]int, g.width)
		for x := range out[y] {
			pot, err := g.store.Node(g.NodeIndex(x, y, l))
			if err != nil {
				return nil, err
			}
			out[y][x] = potential.Argmax(pot, mask)
		}
	}
	return out, nil
}
