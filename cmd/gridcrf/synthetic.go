package main

import (
	"math/rand"

	"github.com/banshee-data/gridcrf/internal/raster"
)

// scene is a synthetic labelled image: vertical bands of base states and a
// centred rectangle of occlusion states, each observed through its own
// noisy intensity channel.
type scene struct {
	width, height int
	nBase, nOccl  int

	base      *raster.FeatureMap // intensity per base band
	occl      *raster.FeatureMap // intensity per occlusion state
	baseTruth [][]int
	occlTruth [][]int
}

const sceneNoise = 12

func level(state, n int) float64 {
	if n <= 1 {
		return 128
	}
	return 40 + float64(state)*175/float64(n-1)
}

func clampByte(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v + 0.5)
}

func newScene(width, height, nBase, nOccl int, seed int64) *scene {
	rng := rand.New(rand.NewSource(seed))
	s := &scene{
		width: width, height: height, nBase: nBase, nOccl: nOccl,
		base:      raster.NewFeatureMap(width, height, 1),
		occl:      raster.NewFeatureMap(width, height, 1),
		baseTruth: make([][]int, height),
		occlTruth: make([][]int, height),
	}
	for y := 0; y < height; y++ {
		s.baseTruth[y] = make([]int, width)
		s.occlTruth[y] = make([]int, width)
		for x := 0; x < width; x++ {
			b := x * nBase / width
			o := 0
			if nOccl > 1 && x >= width/4 && x < 3*width/4 && y >= height/4 && y < 3*height/4 {
				o = 1 + (x+y)%(nOccl-1)
			}
			s.baseTruth[y][x] = b
			s.occlTruth[y][x] = o
			s.base.Set(x, y, 0, clampByte(level(b, nBase)+rng.NormFloat64()*sceneNoise))
			s.occl.Set(x, y, 0, clampByte(level(o, nOccl)+rng.NormFloat64()*sceneNoise))
		}
	}
	return s
}

// accuracy returns the fraction of sites where decisions match truth.
func accuracy(decisions, truth [][]int) float64 {
	total, hits := 0, 0
	for y, row := range truth {
		for x, v := range row {
			total++
			if decisions[y][x] == v {
				hits++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
