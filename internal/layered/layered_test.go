package layered

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridcrf/internal/config"
	"github.com/banshee-data/gridcrf/internal/graph"
)

func newGraph(t *testing.T, nStates int, cfg *Config) (*Graph, *graph.Store) {
	t.Helper()
	store := graph.NewStore(nStates)
	g, err := New(store, cfg)
	require.NoError(t, err)
	return g, store
}

func TestFlags(t *testing.T) {
	t.Parallel()

	f, err := ParseFlags([]string{"link", " Grid "})
	require.NoError(t, err)
	assert.Equal(t, EdgesLink|EdgesGrid, f)
	assert.True(t, f.Has(EdgesGrid))
	assert.False(t, f.Has(EdgesDiag))
	assert.Equal(t, "link|grid", f.String())
	assert.Equal(t, "link|grid|diag", EdgesAll.String())
	assert.Equal(t, "none", Flags(0).String())

	_, err = ParseFlags([]string{"knight"})
	assert.Error(t, err)
}

func TestConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Layers)
	assert.Equal(t, EdgesLink|EdgesGrid, cfg.Flags)

	cfg = DefaultConfig().WithLayers(3).WithFlags(EdgesAll).WithLinkConsistency(7).WithIntermediatePriorMass(9).WithWorkers(2)
	assert.Equal(t, Config{Layers: 3, Flags: EdgesAll, LinkConsistency: 7, IntermediatePriorMass: 9, Workers: 2}, *cfg)

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"zero layers", DefaultConfig().WithLayers(0)},
		{"unknown flag", DefaultConfig().WithFlags(Flags(1 << 5))},
		{"negative consistency", DefaultConfig().WithLinkConsistency(-1)},
		{"negative prior", DefaultConfig().WithIntermediatePriorMass(-1)},
		{"negative workers", DefaultConfig().WithWorkers(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
			_, err := New(graph.NewStore(2), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfigFromFile(t *testing.T) {
	t.Parallel()

	layers := 3
	edges := []string{"grid", "diag"}
	cfg, err := ConfigFromFile(&config.GraphConfig{Layers: &layers, Edges: edges})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Layers)
	assert.Equal(t, EdgesGrid|EdgesDiag, cfg.Flags)
	assert.Equal(t, 100.0, cfg.LinkConsistency)

	_, err = ConfigFromFile(&config.GraphConfig{Edges: []string{"hex"}})
	assert.Error(t, err)
}

func TestNodeIndexSite(t *testing.T) {
	t.Parallel()
	g, _ := newGraph(t, 2, DefaultConfig().WithLayers(3))
	require.NoError(t, g.Build(4, 3))

	assert.Equal(t, 0, g.NodeIndex(0, 0, 0))
	assert.Equal(t, 2, g.NodeIndex(0, 0, 2))
	assert.Equal(t, 3, g.NodeIndex(1, 0, 0))
	assert.Equal(t, (2*4+3)*3+1, g.NodeIndex(3, 2, 1))

	for n := 0; n < 4*3*3; n++ {
		x, y, l := g.Site(n)
		assert.Equal(t, n, g.NodeIndex(x, y, l))
	}
}

func TestBuild_GridOnly(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(1).WithFlags(EdgesGrid))
	require.NoError(t, g.Build(3, 3))

	assert.Equal(t, 9, s.NumNodes())
	assert.Equal(t, 2*12, s.NumEdges())
	assert.True(t, s.ArcExists(g.NodeIndex(1, 1, 0), g.NodeIndex(0, 1, 0)))
	assert.True(t, s.ArcExists(g.NodeIndex(1, 1, 0), g.NodeIndex(1, 0, 0)))
	assert.False(t, s.EdgeExists(g.NodeIndex(1, 1, 0), g.NodeIndex(0, 0, 0)))
	assert.False(t, s.EdgeExists(g.NodeIndex(2, 0, 0), g.NodeIndex(0, 0, 0)))

	for n := 0; n < s.NumNodes(); n++ {
		pot, err := s.Node(n)
		require.NoError(t, err)
		assert.Nil(t, pot)
		for _, c := range s.ChildNodes(n) {
			assert.Nil(t, s.Edge(n, c))
			assert.Equal(t, graph.NoGroup, s.EdgeGroup(n, c))
		}
	}
}

func TestBuild_LinkGrid(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig())
	require.NoError(t, g.Build(2, 1))

	assert.Equal(t, 4, s.NumNodes())
	// One link arc per site plus one grid arc per layer.
	assert.Equal(t, 2*4, s.NumEdges())
	assert.True(t, s.ArcExists(0, 1))
	assert.True(t, s.ArcExists(2, 3))
	assert.True(t, s.ArcExists(2, 0))
	assert.True(t, s.ArcExists(3, 1))
	assert.False(t, s.EdgeExists(0, 3))
}

func TestBuild_Diag(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(1).WithFlags(EdgesAll))
	require.NoError(t, g.Build(3, 3))

	// 12 grid arcs and 8 diagonal arcs; a single layer has no links.
	assert.Equal(t, 2*20, s.NumEdges())
	assert.True(t, s.ArcExists(g.NodeIndex(1, 1, 0), g.NodeIndex(0, 0, 0)))
	assert.True(t, s.ArcExists(g.NodeIndex(1, 1, 0), g.NodeIndex(2, 0, 0)))
	assert.True(t, s.ArcExists(g.NodeIndex(0, 2, 0), g.NodeIndex(1, 1, 0)))
	assert.False(t, s.EdgeExists(g.NodeIndex(2, 2, 0), g.NodeIndex(0, 0, 0)))
}

func TestBuild_RefinementLayersAreDirected(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(4).WithFlags(EdgesLink))
	require.NoError(t, g.Build(1, 1))

	assert.True(t, s.ArcExists(0, 1))
	assert.True(t, s.EdgeExists(1, 2))
	assert.False(t, s.EdgeExists(2, 1))
	assert.True(t, s.EdgeExists(2, 3))
	assert.False(t, s.EdgeExists(3, 2))
	assert.True(t, s.IsEdgeArc(0, 1))
	assert.False(t, s.IsEdgeArc(1, 2))
	assert.Equal(t, 4, s.NumEdges())
}

func TestBuild_Rebuild(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig())
	require.NoError(t, g.Build(3, 2))
	require.NoError(t, g.Build(2, 1))

	assert.Equal(t, 4, s.NumNodes())
	assert.Equal(t, 8, s.NumEdges())
	assert.Equal(t, 2, g.Width())
	assert.Equal(t, 1, g.Height())
}

func TestBuild_InvalidSize(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig())

	for _, sz := range [][2]int{{0, 3}, {3, 0}, {-1, 2}} {
		err := g.Build(sz[0], sz[1])
		assert.True(t, errors.Is(err, ErrSize), "%v: %v", sz, err)
	}
	assert.Equal(t, 0, s.NumNodes())
}

func TestNotBuilt(t *testing.T) {
	t.Parallel()
	g, _ := newGraph(t, 2, DefaultConfig())

	assert.ErrorIs(t, g.SetNodes(nil, nil), ErrNotBuilt)
	assert.ErrorIs(t, g.FillEdges(nil, nil, nil, nil, 1, 1), ErrNotBuilt)
	assert.ErrorIs(t, g.DefineEdgeGroup(1, 0, 0, 1), ErrNotBuilt)
	_, err := g.Decode(0, nil)
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestLayoutChanged(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(1).WithFlags(EdgesGrid))
	require.NoError(t, g.Build(2, 2))
	_, err := s.AddNode(nil)
	require.NoError(t, err)

	_, err = g.Decode(0, nil)
	assert.ErrorIs(t, err, ErrNodeCount)
}
