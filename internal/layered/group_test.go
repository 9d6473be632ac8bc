package layered

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/graph"
	"github.com/banshee-data/gridcrf/internal/potential"
	"github.com/banshee-data/gridcrf/internal/testutil"
)

func countGroup(s graph.Graph, group graph.Group) int {
	n := 0
	for src := 0; src < s.NumNodes(); src++ {
		for _, dst := range s.ChildNodes(src) {
			if s.EdgeGroup(src, dst) == group {
				n++
			}
		}
	}
	return n
}

func TestSideOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, -1, sideOf(1, 0, -1, 0, 5))
	assert.Equal(t, 0, sideOf(1, 0, -1, 1, 5))
	assert.Equal(t, 1, sideOf(1, 0, -1, 2, 5))
	assert.Equal(t, 1, sideOf(0, -1, 0.5, 3, 0))
}

func TestDefineEdgeGroup_BetweenColumns(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(2).WithFlags(EdgesAll))
	require.NoError(t, g.Build(3, 3))

	// x = 1.5 separates column 2 from columns 0 and 1: three horizontal
	// and four diagonal site pairs, on both layers, in both directions.
	require.NoError(t, g.DefineEdgeGroup(1, 0, -1.5, 1))
	assert.Equal(t, 7*2*2, countGroup(s, 1))

	assert.Equal(t, graph.Group(1), s.EdgeGroup(g.NodeIndex(2, 0, 1), g.NodeIndex(1, 0, 1)))
	assert.Equal(t, graph.Group(1), s.EdgeGroup(g.NodeIndex(1, 0, 0), g.NodeIndex(2, 0, 0)))
	assert.Equal(t, graph.NoGroup, s.EdgeGroup(g.NodeIndex(1, 0, 0), g.NodeIndex(0, 0, 0)))
	assert.Equal(t, graph.NoGroup, s.EdgeGroup(g.NodeIndex(2, 1, 0), g.NodeIndex(2, 0, 0)))

	idx := g.NodeIndex(2, 0, 0)
	assert.Equal(t, graph.NoGroup, s.EdgeGroup(idx, idx+1), "link edges are never grouped")

	// Idempotent.
	require.NoError(t, g.DefineEdgeGroup(1, 0, -1.5, 1))
	assert.Equal(t, 7*2*2, countGroup(s, 1))
}

func TestDefineEdgeGroup_SitesOnTheLine(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(1).WithFlags(EdgesGrid|EdgesDiag))
	require.NoError(t, g.Build(3, 3))

	// Column 1 lies on x = 1 and forms its own side, so every horizontal
	// and diagonal pair crosses while vertical pairs do not.
	require.NoError(t, g.DefineEdgeGroup(1, 0, -1, 3))
	assert.Equal(t, (6+8)*2, countGroup(s, 3))
	assert.Equal(t, graph.NoGroup, s.EdgeGroup(g.NodeIndex(1, 1, 0), g.NodeIndex(1, 0, 0)))
}

func TestDefineEdgeGroup_LaterGroupWins(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(1).WithFlags(EdgesGrid))
	require.NoError(t, g.Build(4, 1))

	require.NoError(t, g.DefineEdgeGroup(1, 0, -0.5, 1))
	require.NoError(t, g.DefineEdgeGroup(1, 0, -2.5, 2))
	require.NoError(t, g.DefineEdgeGroup(1, 0, -0.5, 2))
	assert.Equal(t, 0, countGroup(s, 1))
	assert.Equal(t, 4, countGroup(s, 2))
}

func TestDefineEdgeGroup_Errors(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig())
	require.NoError(t, g.Build(2, 2))

	assert.ErrorIs(t, g.DefineEdgeGroup(0, 0, 1, 1), ErrLine)
	assert.ErrorIs(t, g.DefineEdgeGroup(1, 1, 0, graph.NoGroup), ErrGroup)
	assert.Equal(t, s.NumEdges(), countGroup(s, graph.NoGroup))
}

func TestSetGroupPot(t *testing.T) {
	t.Parallel()
	g, s := newGraph(t, 2, DefaultConfig().WithLayers(1).WithFlags(EdgesGrid))
	require.NoError(t, g.Build(3, 2))
	require.NoError(t, g.DefineEdgeGroup(1, 0, -1.5, 4))

	pot := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	n, err := g.SetGroupPot(4, pot)
	require.NoError(t, err)
	assert.Equal(t, 2*2, n)

	// Stored as given on each direction.
	testutil.AssertDenseEqual(t, s.Edge(g.NodeIndex(2, 1, 0), g.NodeIndex(1, 1, 0)), pot, 0)
	testutil.AssertDenseEqual(t, s.Edge(g.NodeIndex(1, 1, 0), g.NodeIndex(2, 1, 0)), pot, 0)
	assert.Nil(t, s.Edge(g.NodeIndex(1, 0, 0), g.NodeIndex(0, 0, 0)))

	// Empty groups are a no-op.
	n, err = g.SetGroupPot(9, pot)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = g.SetGroupPot(4, potential.Potts(2, 3))
	assert.ErrorIs(t, err, ErrStates)
	_, err = g.SetGroupPot(graph.NoGroup, pot)
	assert.ErrorIs(t, err, ErrGroup)
}
