// Package render draws decoded label grids: a static PNG heat map through
// gonum/plot and an interactive HTML site map through go-echarts.
package render

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrEmpty is returned for a label grid without sites.
var ErrEmpty = errors.New("empty label grid")

// labelGrid adapts a [y][x] label grid to plotter.GridXYZ.
type labelGrid [][]int

func (g labelGrid) Dims() (c, r int)   { return len(g[0]), len(g) }
func (g labelGrid) Z(c, r int) float64 { return float64(g[r][c]) }
func (g labelGrid) X(c int) float64    { return float64(c) }
func (g labelGrid) Y(r int) float64    { return float64(r) }

func checkGrid(decisions [][]int) error {
	if len(decisions) == 0 || len(decisions[0]) == 0 {
		return ErrEmpty
	}
	w := len(decisions[0])
	for y, row := range decisions {
		if len(row) != w {
			return fmt.Errorf("row %d has %d sites, want %d", y, len(row), w)
		}
	}
	return nil
}

// labelRange returns the smallest and largest label in decisions.
func labelRange(decisions [][]int) (lo, hi int) {
	lo, hi = decisions[0][0], decisions[0][0]
	for _, row := range decisions {
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// Heatmap plots decisions with row 0 at the top.
func Heatmap(decisions [][]int, title string) (*plot.Plot, error) {
	if err := checkGrid(decisions); err != nil {
		return nil, err
	}
	lo, hi := labelRange(decisions)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Y.Scale = plot.InvertedScale{Normalizer: p.Y.Scale}

	hm := plotter.NewHeatMap(labelGrid(decisions), palette.Heat(hi-lo+1, 1))
	hm.Min, hm.Max = float64(lo), float64(hi)
	if hm.Max == hm.Min {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)
	return p, nil
}

// HeatmapPNG renders decisions and writes the image to path.
func HeatmapPNG(decisions [][]int, title, path string) error {
	p, err := Heatmap(decisions, title)
	if err != nil {
		return err
	}
	w := vg.Length(len(decisions[0])) * 8 * vg.Millimeter
	h := vg.Length(len(decisions)) * 8 * vg.Millimeter
	if w < 4*vg.Inch {
		w = 4 * vg.Inch
	}
	if h < 4*vg.Inch {
		h = 4 * vg.Inch
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("failed to save heat map: %w", err)
	}
	return nil
}
