package layered

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/banshee-data/gridcrf/internal/graph"
)

// Errors
var (
	ErrNotBuilt  = errors.New("graph has not been built")
	ErrSize      = errors.New("raster size does not match the graph")
	ErrStates    = errors.New("state counts do not match the graph")
	ErrFeatures  = errors.New("feature count does not match the trainer")
	ErrNodeCount = errors.New("node count does not match the layout")
	ErrLine      = errors.New("line coefficients a and b are both zero")
	ErrGroup     = errors.New("group must not be graph.NoGroup")
	ErrTrainer   = errors.New("trainer is required")
)

// Graph lays a graph.Graph out as a width x height grid of sites with a
// fixed number of layers per site.
type Graph struct {
	store graph.Graph
	cfg   Config

	width  int
	height int
}

// New wraps store with the given configuration. A nil cfg uses
// DefaultConfig. The store is not touched until Build.
func New(store graph.Graph, cfg *Config) (*Graph, error) {
	if store == nil {
		return nil, errors.New("nil graph store")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Graph{store: store, cfg: *cfg}, nil
}

// Store returns the underlying graph store.
func (g *Graph) Store() graph.Graph { return g.store }

func (g *Graph) Width() int     { return g.width }
func (g *Graph) Height() int    { return g.height }
func (g *Graph) Layers() int    { return g.cfg.Layers }
func (g *Graph) Flags() Flags   { return g.cfg.Flags }
func (g *Graph) Config() Config { return g.cfg }

// NodeIndex returns the index of layer l at site (x, y).
func (g *Graph) NodeIndex(x, y, l int) int {
	return (y*g.width+x)*g.cfg.Layers + l
}

// Site is the inverse of NodeIndex.
func (g *Graph) Site(node int) (x, y, l int) {
	l = node % g.cfg.Layers
	s := node / g.cfg.Layers
	return s % g.width, s / g.width, l
}

func (g *Graph) built() bool { return g.width > 0 && g.height > 0 }

// checkLayout verifies that the store still holds exactly the nodes Build
// created.
func (g *Graph) checkLayout() error {
	if !g.built() {
		return ErrNotBuilt
	}
	want := g.width * g.height * g.cfg.Layers
	if got := g.store.NumNodes(); got != want {
		return fmt.Errorf("store has %d nodes, layout needs %d: %w", got, want, ErrNodeCount)
	}
	return nil
}

func (g *Graph) workers() int {
	if g.cfg.Workers > 0 {
		return g.cfg.Workers
	}
	return runtime.GOMAXPROCS(0)
}
