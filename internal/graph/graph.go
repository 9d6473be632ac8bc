// Package graph defines the pairwise graphical model store used by the
// layered grid builder and its concrete in-memory implementation.
//
// Nodes are addressed by a zero-based, contiguous index that never changes
// for the lifetime of the store (until Reset). Each node carries an optional
// potential vector of length NumStates. Directed edges carry an optional
// NumStates x NumStates potential matrix and a group tag. An undirected edge
// (arc) is emulated by the two directed edges (a,b) and (b,a).
package graph

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Group tags an edge for bulk potential overrides.
type Group uint8

// NoGroup is the tag of every newly created edge.
const NoGroup Group = 0

// Errors
var (
	ErrNodeRange  = errors.New("node index out of range")
	ErrDimension  = errors.New("potential has wrong dimensions")
	ErrEdgeExists = errors.New("edge already exists")
	ErrNoEdge     = errors.New("edge does not exist")
	ErrSelfLoop   = errors.New("self loops are not allowed")
)

// Graph is the contract between the grid builder and the adjacency storage.
// Potentials passed in are copied; potentials returned are copies. A nil
// potential means "not set".
type Graph interface {
	// NumStates returns the length of node potentials.
	NumStates() int

	// Reset deletes all nodes and edges; the next node gets index 0.
	Reset()

	AddNode(pot *mat.VecDense) (int, error)
	SetNode(node int, pot *mat.VecDense) error
	Node(node int) (*mat.VecDense, error)

	// ChildNodes returns the destinations of node's outgoing edges in
	// ascending order.
	ChildNodes(node int) []int
	// ParentNodes returns the sources of node's incoming edges in ascending
	// order.
	ParentNodes(node int) []int

	AddEdge(src, dst int, pot *mat.Dense) error
	// SetEdge replaces the potential of src->dst, creating the edge if
	// needed.
	SetEdge(src, dst int, pot *mat.Dense) error
	// Edge returns the potential of src->dst, or nil when the edge has no
	// potential or does not exist.
	Edge(src, dst int) *mat.Dense
	SetEdgeGroup(src, dst int, group Group) error
	EdgeGroup(src, dst int) Group
	RemoveEdge(src, dst int)
	EdgeExists(src, dst int) bool
	// IsEdgeArc reports whether src->dst is one half of an arc. It only
	// consults src's own adjacency, so it is cheaper than ArcExists.
	IsEdgeArc(src, dst int) bool

	// AddArc adds n1->n2 and n2->n1, each holding the elementwise square
	// root of pot, so that multiplying both directions yields pot.
	AddArc(n1, n2 int, pot *mat.Dense) error
	// SetArc is AddArc for arcs that may already exist.
	SetArc(n1, n2 int, pot *mat.Dense) error
	SetArcGroup(n1, n2 int, group Group) error
	RemoveArc(n1, n2 int)
	ArcExists(n1, n2 int) bool

	NumNodes() int
	// NumEdges counts directed edges; an arc counts twice.
	NumEdges() int
}
