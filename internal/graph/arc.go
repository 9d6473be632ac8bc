package graph

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/potential"
)

// AddArc adds both directions of n1--n2. With a nil potential both edges are
// created without one.
func (s *Store) AddArc(n1, n2 int, pot *mat.Dense) error {
	if err := s.checkMat(pot); err != nil {
		return err
	}
	root := potential.Sqrt(pot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPair(n1, n2); err != nil {
		return err
	}
	if _, ok := s.edge(n1, n2); ok {
		return fmt.Errorf("%d->%d: %w", n1, n2, ErrEdgeExists)
	}
	if _, ok := s.edge(n2, n1); ok {
		return fmt.Errorf("%d->%d: %w", n2, n1, ErrEdgeExists)
	}
	s.insertEdge(n1, n2, root)
	s.insertEdge(n2, n1, potential.Clone(root))
	return nil
}

func (s *Store) SetArc(n1, n2 int, pot *mat.Dense) error {
	if err := s.checkMat(pot); err != nil {
		return err
	}
	root := potential.Sqrt(pot)
	if err := s.SetEdge(n1, n2, root); err != nil {
		return err
	}
	return s.SetEdge(n2, n1, root)
}

func (s *Store) SetArcGroup(n1, n2 int, group Group) error {
	if err := s.SetEdgeGroup(n1, n2, group); err != nil {
		return err
	}
	return s.SetEdgeGroup(n2, n1, group)
}

func (s *Store) RemoveArc(n1, n2 int) {
	s.RemoveEdge(n1, n2)
	s.RemoveEdge(n2, n1)
}

func (s *Store) ArcExists(n1, n2 int) bool {
	return s.EdgeExists(n1, n2) && s.EdgeExists(n2, n1)
}
