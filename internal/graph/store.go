package graph

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/sets/treeset"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/potential"
)

type edge struct {
	pot   *mat.Dense
	group Group
}

type node struct {
	pot      *mat.VecDense
	children *treemap.Map // dst -> *edge
	parents  *treeset.Set // src
}

func newNode(pot *mat.VecDense) *node {
	return &node{
		pot:      pot,
		children: treemap.NewWithIntComparator(),
		parents:  treeset.NewWithIntComparator(),
	}
}

// Store is an in-memory Graph backed by per-node ordered adjacency maps.
//
// Topology changes take the write lock. Replacing the potential of an
// existing node or edge only takes the read lock, so goroutines that own
// disjoint sets of nodes and edges may fill potentials concurrently.
type Store struct {
	mu      sync.RWMutex
	nStates int
	nodes   []*node
	nEdges  int
}

// NewStore returns an empty store for potentials over nStates states.
func NewStore(nStates int) *Store {
	return &Store{nStates: nStates}
}

var _ Graph = (*Store)(nil)

func (s *Store) NumStates() int { return s.nStates }

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nil
	s.nEdges = 0
}

func (s *Store) AddNode(pot *mat.VecDense) (int, error) {
	if err := s.checkVec(pot); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = append(s.nodes, newNode(potential.CloneVec(pot)))
	return len(s.nodes) - 1, nil
}

func (s *Store) SetNode(idx int, pot *mat.VecDense) error {
	if err := s.checkVec(pot); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkNode(idx); err != nil {
		return err
	}
	s.nodes[idx].pot = potential.CloneVec(pot)
	return nil
}

func (s *Store) Node(idx int) (*mat.VecDense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkNode(idx); err != nil {
		return nil, err
	}
	return potential.CloneVec(s.nodes[idx].pot), nil
}

func (s *Store) ChildNodes(idx int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkNode(idx) != nil {
		return nil
	}
	return toInts(s.nodes[idx].children.Keys())
}

func (s *Store) ParentNodes(idx int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkNode(idx) != nil {
		return nil
	}
	return toInts(s.nodes[idx].parents.Values())
}

func (s *Store) AddEdge(src, dst int, pot *mat.Dense) error {
	if err := s.checkMat(pot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPair(src, dst); err != nil {
		return err
	}
	if _, ok := s.edge(src, dst); ok {
		return fmt.Errorf("%d->%d: %w", src, dst, ErrEdgeExists)
	}
	s.insertEdge(src, dst, potential.Clone(pot))
	return nil
}

func (s *Store) SetEdge(src, dst int, pot *mat.Dense) error {
	if err := s.checkMat(pot); err != nil {
		return err
	}
	s.mu.RLock()
	if err := s.checkPair(src, dst); err != nil {
		s.mu.RUnlock()
		return err
	}
	if e, ok := s.edge(src, dst); ok {
		e.pot = potential.Clone(pot)
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another writer may have created it between the two locks.
	if e, ok := s.edge(src, dst); ok {
		e.pot = potential.Clone(pot)
		return nil
	}
	s.insertEdge(src, dst, potential.Clone(pot))
	return nil
}

func (s *Store) Edge(src, dst int) *mat.Dense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkPair(src, dst) != nil {
		return nil
	}
	e, ok := s.edge(src, dst)
	if !ok {
		return nil
	}
	return potential.Clone(e.pot)
}

func (s *Store) SetEdgeGroup(src, dst int, group Group) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkPair(src, dst); err != nil {
		return err
	}
	e, ok := s.edge(src, dst)
	if !ok {
		return fmt.Errorf("%d->%d: %w", src, dst, ErrNoEdge)
	}
	e.group = group
	return nil
}

func (s *Store) EdgeGroup(src, dst int) Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkPair(src, dst) != nil {
		return NoGroup
	}
	if e, ok := s.edge(src, dst); ok {
		return e.group
	}
	return NoGroup
}

func (s *Store) RemoveEdge(src, dst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkPair(src, dst) != nil {
		return
	}
	if _, ok := s.edge(src, dst); !ok {
		return
	}
	s.nodes[src].children.Remove(dst)
	s.nodes[dst].parents.Remove(src)
	s.nEdges--
}

func (s *Store) EdgeExists(src, dst int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkPair(src, dst) != nil {
		return false
	}
	_, ok := s.edge(src, dst)
	return ok
}

func (s *Store) IsEdgeArc(src, dst int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.checkNode(src) != nil {
		return false
	}
	n := s.nodes[src]
	if !n.parents.Contains(dst) {
		return false
	}
	_, ok := n.children.Get(dst)
	return ok
}

func (s *Store) NumNodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

func (s *Store) NumEdges() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nEdges
}

// edge looks up src->dst. Callers hold the lock and have range-checked src.
func (s *Store) edge(src, dst int) (*edge, bool) {
	v, ok := s.nodes[src].children.Get(dst)
	if !ok {
		return nil, false
	}
	return v.(*edge), true
}

func (s *Store) insertEdge(src, dst int, pot *mat.Dense) {
	s.nodes[src].children.Put(dst, &edge{pot: pot, group: NoGroup})
	s.nodes[dst].parents.Add(src)
	s.nEdges++
}

func (s *Store) checkNode(idx int) error {
	if idx < 0 || idx >= len(s.nodes) {
		return fmt.Errorf("node %d of %d: %w", idx, len(s.nodes), ErrNodeRange)
	}
	return nil
}

func (s *Store) checkPair(src, dst int) error {
	if err := s.checkNode(src); err != nil {
		return err
	}
	if err := s.checkNode(dst); err != nil {
		return err
	}
	if src == dst {
		return fmt.Errorf("node %d: %w", src, ErrSelfLoop)
	}
	return nil
}

func (s *Store) checkVec(pot *mat.VecDense) error {
	if pot == nil {
		return nil
	}
	if pot.Len() != s.nStates {
		return fmt.Errorf("node potential length %d, want %d: %w", pot.Len(), s.nStates, ErrDimension)
	}
	return nil
}

func (s *Store) checkMat(pot *mat.Dense) error {
	if pot == nil {
		return nil
	}
	if r, c := pot.Dims(); r != s.nStates || c != s.nStates {
		return fmt.Errorf("edge potential %dx%d, want %dx%d: %w", r, c, s.nStates, s.nStates, ErrDimension)
	}
	return nil
}

func toInts(vs []interface{}) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = v.(int)
	}
	return out
}
