package trainer

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/monitoring"
	"github.com/banshee-data/gridcrf/internal/raster"
)

func TestPottsEdge(t *testing.T) {
	t.Parallel()
	e := NewPottsEdge(3, 2)
	assert.Equal(t, 2, e.NumFeatures())

	p := e.EdgePotentials(nil, nil, []float64{4, 9}, 1)
	assert.Equal(t, 4.0, p.At(0, 0))
	assert.Equal(t, 9.0, p.At(1, 1))
	assert.Equal(t, 9.0, p.At(2, 2), "last param repeats")
	assert.Equal(t, 1.0, p.At(0, 2))

	half := e.EdgePotentials(nil, nil, []float64{4}, 0.5)
	assert.Equal(t, 2.0, half.At(1, 1))

	none := e.EdgePotentials(nil, nil, nil, 1)
	assert.True(t, mat.Equal(none, mat.NewDense(3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})))
}

func TestContrastEdge(t *testing.T) {
	t.Parallel()
	e := NewContrastEdge(2, 1, 10)

	same := e.EdgePotentials([]uint8{100}, []uint8{100}, []float64{5}, 1)
	assert.InDelta(t, 5.0, same.At(0, 0), 1e-12)

	far := e.EdgePotentials([]uint8{0}, []uint8{255}, []float64{5}, 1)
	assert.InDelta(t, 1.0, far.At(1, 1), 1e-9)

	mid := e.EdgePotentials([]uint8{100}, []uint8{110}, []float64{5}, 1)
	want := 1 + 4*math.Exp(-100.0/200.0)
	assert.InDelta(t, want, mid.At(0, 0), 1e-12)
	assert.Equal(t, 1.0, mid.At(0, 1))
}

func TestCooccurrenceLink(t *testing.T) {
	t.Parallel()
	l := NewCooccurrenceLink(2, 2, 3)
	assert.Equal(t, 3, l.NumFeatures())

	// Untrained: uniform over the base x occlusion block.
	p := l.LinkPotentials(nil, 1)
	r, c := p.Dims()
	require.Equal(t, 4, r)
	require.Equal(t, 4, c)
	assert.InDelta(t, 25.0, p.At(0, 2), 1e-12)
	assert.InDelta(t, 25.0, p.At(1, 3), 1e-12)
	assert.Equal(t, 0.0, p.At(2, 0))
	assert.Equal(t, 0.0, p.At(0, 1))

	for i := 0; i < 6; i++ {
		require.NoError(t, l.AddPair(0, 1))
	}
	p = l.LinkPotentials(nil, 1)
	assert.InDelta(t, 100*7.0/10.0, p.At(0, 3), 1e-12)
	assert.InDelta(t, 100*1.0/10.0, p.At(1, 2), 1e-12)

	assert.True(t, errors.Is(l.AddPair(2, 0), ErrState))
	assert.True(t, errors.Is(l.AddPair(0, -1), ErrState))

	l.Reset()
	assert.InDelta(t, 25.0, l.LinkPotentials(nil, 1).At(0, 3), 1e-12)
}

func trainedGMM(t *testing.T) *GMMNode {
	t.Helper()
	g := NewGMMNode(3, 1, DefaultGMMParams())
	for v := 45; v <= 55; v++ {
		require.NoError(t, g.AddFeatureVec([]uint8{uint8(v)}, 0))
		require.NoError(t, g.AddFeatureVec([]uint8{uint8(v + 150)}, 1))
	}
	require.NoError(t, g.Train())
	return g
}

func TestGMMNode_SeparatesStates(t *testing.T) {
	t.Parallel()
	g := trainedGMM(t)
	assert.True(t, g.IsTrained(0))
	assert.True(t, g.IsTrained(1))
	assert.False(t, g.IsTrained(2))

	pot, mask := g.NodePotentials([]uint8{50})
	assert.Equal(t, []bool{true, true, false}, mask)
	assert.Greater(t, pot.AtVec(0), pot.AtVec(1))
	assert.Equal(t, 0.0, pot.AtVec(2), "masked states score zero")

	pot, _ = g.NodePotentials([]uint8{201})
	assert.Greater(t, pot.AtVec(1), pot.AtVec(0))
	for s := 0; s < 3; s++ {
		assert.GreaterOrEqual(t, pot.AtVec(s), 0.0)
	}
}

func TestGMMNode_Errors(t *testing.T) {
	saved := monitoring.Logf
	defer func() { monitoring.Logf = saved }()
	monitoring.SetLogger(nil)

	g := NewGMMNode(2, 2, DefaultGMMParams())
	assert.True(t, errors.Is(g.AddFeatureVec([]uint8{1, 2}, 2), ErrState))
	assert.True(t, errors.Is(g.AddFeatureVec([]uint8{1}, 0), ErrFeatures))
	assert.True(t, errors.Is(g.Train(), ErrNoSamples))

	// A single constant sample still trains thanks to the variance floor.
	require.NoError(t, g.AddFeatureVec([]uint8{7, 7}, 1))
	require.NoError(t, g.Train())
	_, mask := g.NodePotentials([]uint8{7, 7})
	assert.Equal(t, []bool{false, true}, mask)

	g.Reset()
	assert.False(t, g.IsTrained(1))
}

func TestNodeScores(t *testing.T) {
	t.Parallel()
	g := trainedGMM(t)

	const w, h = 5, 4
	fm := raster.NewFeatureMap(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(50)
			if x >= 3 {
				v = 200
			}
			fm.Set(x, y, 0, v)
		}
	}

	scores, mask, err := NodeScores(g, []*raster.FeatureMap{fm}, 2)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, false}, mask)
	require.Equal(t, 3, scores.Channels)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := scores.Pixel(x, y)
			if x >= 3 {
				assert.Greater(t, p[1], p[0], "site (%d,%d)", x, y)
			} else {
				assert.Greater(t, p[0], p[1], "site (%d,%d)", x, y)
			}
		}
	}

	_, _, err = NodeScores(g, []*raster.FeatureMap{raster.NewFeatureMap(w, h, 2)}, 0)
	assert.True(t, errors.Is(err, ErrFeatures))

	_, _, err = NodeScores(g, nil, 0)
	assert.True(t, errors.Is(err, raster.ErrShape))
}
