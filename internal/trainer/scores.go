package trainer

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/gridcrf/internal/raster"
)

// NodeScores classifies every site of the co-registered feature maps with nt
// and returns the scores as a ScoreMap with one channel per state. The
// returned mask is false for states that nt masked at any site. Rows are
// processed in parallel by up to workers goroutines (0 means one per CPU).
func NodeScores(nt NodeTrainer, features []*raster.FeatureMap, workers int) (*raster.ScoreMap, []bool, error) {
	if len(features) == 0 || features[0] == nil {
		return nil, nil, fmt.Errorf("no feature maps: %w", raster.ErrShape)
	}
	width, height := features[0].Width, features[0].Height
	nFeatures, err := raster.CheckFeatures(features, width, height)
	if err != nil {
		return nil, nil, err
	}
	if nFeatures != nt.NumFeatures() {
		return nil, nil, fmt.Errorf("maps hold %d features, trainer expects %d: %w", nFeatures, nt.NumFeatures(), ErrFeatures)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	nStates := nt.NumStates()
	out := raster.NewScoreMap(width, height, nStates)
	rowMasks := make([][]bool, height)

	var g errgroup.Group
	g.SetLimit(workers)
	for y := 0; y < height; y++ {
		y := y
		g.Go(func() error {
			fv := make([]uint8, nFeatures)
			rowMask := make([]bool, nStates)
			for s := range rowMask {
				rowMask[s] = true
			}
			for x := 0; x < width; x++ {
				raster.GatherFeatures(fv, features, x, y)
				pot, mask := nt.NodePotentials(fv)
				dst := out.Pixel(x, y)
				for s := 0; s < nStates; s++ {
					dst[s] = pot.AtVec(s)
					rowMask[s] = rowMask[s] && mask[s]
				}
			}
			rowMasks[y] = rowMask
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	mask := make([]bool, nStates)
	for s := range mask {
		mask[s] = true
		for _, rm := range rowMasks {
			mask[s] = mask[s] && rm[s]
		}
	}
	return out, mask, nil
}
