package layered

import (
	"fmt"

	"github.com/banshee-data/gridcrf/internal/graph"
	"github.com/banshee-data/gridcrf/internal/monitoring"
	"github.com/banshee-data/gridcrf/internal/potential"
)

// Marginalize eliminates nodes, in the given order, by rewiring their
// neighbours around them:
//
//   - every child of z that is not also a parent of z and not itself being
//     eliminated becomes a manager;
//   - every parent p of z not being eliminated gets p->m for each manager m,
//     holding the sum of the p->z and z->m potentials (an existing p->m is
//     overwritten; with two empty potentials p->m is only created);
//   - every pair of managers gets an arc holding the sum of their z->m
//     potentials with the square root convention;
//   - all edges into and out of z are removed.
//
// Eliminated nodes keep their index and potential but end up without edges.
// Results depend on the order of nodes. Indices are validated before the
// graph is modified.
func (g *Graph) Marginalize(nodes []int) error {
	n := g.store.NumNodes()
	eliminate := make(map[int]bool, len(nodes))
	for _, z := range nodes {
		if z < 0 || z >= n {
			return fmt.Errorf("marginalize node %d of %d: %w", z, n, graph.ErrNodeRange)
		}
		eliminate[z] = true
	}
	defer monitoring.Timed("marginalize", "%d nodes", len(nodes))()

	for _, z := range nodes {
		if err := g.eliminate(z, eliminate); err != nil {
			return fmt.Errorf("marginalize node %d: %w", z, err)
		}
	}
	return nil
}

func (g *Graph) eliminate(z int, skip map[int]bool) error {
	s := g.store
	parents := s.ParentNodes(z)
	children := s.ChildNodes(z)

	isParent := make(map[int]bool, len(parents))
	for _, p := range parents {
		isParent[p] = true
	}

	var managers []int
	for _, m := range children {
		if isParent[m] || skip[m] {
			continue
		}
		managers = append(managers, m)
		for _, p := range parents {
			if skip[p] {
				continue
			}
			pot := potential.Sum(s.Edge(p, z), s.Edge(z, m))
			if pot == nil {
				if !s.EdgeExists(p, m) {
					if err := s.AddEdge(p, m, nil); err != nil {
						return err
					}
				}
				continue
			}
			if err := s.SetEdge(p, m, pot); err != nil {
				return err
			}
		}
	}

	for i := 0; i < len(managers); i++ {
		for j := i + 1; j < len(managers); j++ {
			mi, mj := managers[i], managers[j]
			pot := potential.Sum(s.Edge(z, mi), s.Edge(z, mj))
			if pot != nil {
				if err := s.SetArc(mi, mj, pot); err != nil {
					return err
				}
				continue
			}
			for _, e := range [][2]int{{mi, mj}, {mj, mi}} {
				if s.EdgeExists(e[0], e[1]) {
					continue
				}
				if err := s.AddEdge(e[0], e[1], nil); err != nil {
					return err
				}
			}
		}
	}

	for _, p := range parents {
		s.RemoveEdge(p, z)
	}
	for _, c := range children {
		s.RemoveEdge(z, c)
	}
	return nil
}
