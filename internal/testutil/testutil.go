// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/raster"
)

// TB is the subset of testing.TB the assertions use.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

// AssertDenseEqual checks that got and want have the same shape and that
// every entry differs by at most tol. A nil want expects a nil got.
func AssertDenseEqual(t TB, got, want *mat.Dense, tol float64) {
	t.Helper()
	if want == nil || got == nil {
		if want != got {
			t.Errorf("potential = %v, want %v", got, want)
		}
		return
	}
	gr, gc := got.Dims()
	wr, wc := want.Dims()
	if gr != wr || gc != wc {
		t.Errorf("potential is %dx%d, want %dx%d", gr, gc, wr, wc)
		return
	}
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			if g, w := got.At(i, j), want.At(i, j); math.Abs(g-w) > tol {
				t.Errorf("potential[%d][%d] = %g, want %g", i, j, g, w)
			}
		}
	}
}

// AssertVecEqual is AssertDenseEqual for node potentials.
func AssertVecEqual(t TB, got, want *mat.VecDense, tol float64) {
	t.Helper()
	if want == nil || got == nil {
		if want != got {
			t.Errorf("potential = %v, want %v", got, want)
		}
		return
	}
	if got.Len() != want.Len() {
		t.Errorf("potential has %d states, want %d", got.Len(), want.Len())
		return
	}
	for s := 0; s < want.Len(); s++ {
		if g, w := got.AtVec(s), want.AtVec(s); math.Abs(g-w) > tol {
			t.Errorf("potential[%d] = %g, want %g", s, g, w)
		}
	}
}

// Scores returns a ScoreMap whose every entry is f(x, y, c).
func Scores(width, height, channels int, f func(x, y, c int) float64) *raster.ScoreMap {
	m := raster.NewScoreMap(width, height, channels)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for c := 0; c < channels; c++ {
				m.Set(x, y, c, f(x, y, c))
			}
		}
	}
	return m
}

// SplitFeatures returns a single channel FeatureMap holding lo left of
// column split and hi from split onwards.
func SplitFeatures(width, height, split int, lo, hi uint8) *raster.FeatureMap {
	m := raster.NewFeatureMap(width, height, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := lo
			if x >= split {
				v = hi
			}
			m.Set(x, y, 0, v)
		}
	}
	return m
}
