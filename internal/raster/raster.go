// Package raster holds co-registered per-site maps: float score maps produced
// by node classifiers and byte feature maps consumed by trainers. Both are
// stored row-major with channels interleaved, so the channels of site (x, y)
// occupy Data[(y*Width+x)*Channels : (y*Width+x+1)*Channels].
package raster

import (
	"errors"
	"fmt"
)

// ErrShape is returned when maps do not share the same width and height.
var ErrShape = errors.New("raster shape mismatch")

// ScoreMap holds Channels float scores per site.
type ScoreMap struct {
	Width, Height, Channels int
	Data                    []float64
}

// NewScoreMap allocates a zeroed score map.
func NewScoreMap(width, height, channels int) *ScoreMap {
	return &ScoreMap{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]float64, width*height*channels),
	}
}

// Pixel returns the channels of site (x, y). The slice aliases Data.
func (m *ScoreMap) Pixel(x, y int) []float64 {
	i := (y*m.Width + x) * m.Channels
	return m.Data[i : i+m.Channels : i+m.Channels]
}

func (m *ScoreMap) At(x, y, c int) float64 { return m.Data[(y*m.Width+x)*m.Channels+c] }

func (m *ScoreMap) Set(x, y, c int, v float64) { m.Data[(y*m.Width+x)*m.Channels+c] = v }

// FeatureMap holds Channels byte features per site.
type FeatureMap struct {
	Width, Height, Channels int
	Data                    []uint8
}

// NewFeatureMap allocates a zeroed feature map.
func NewFeatureMap(width, height, channels int) *FeatureMap {
	return &FeatureMap{
		Width:    width,
		Height:   height,
		Channels: channels,
		Data:     make([]uint8, width*height*channels),
	}
}

// Pixel returns the channels of site (x, y). The slice aliases Data.
func (m *FeatureMap) Pixel(x, y int) []uint8 {
	i := (y*m.Width + x) * m.Channels
	return m.Data[i : i+m.Channels : i+m.Channels]
}

func (m *FeatureMap) At(x, y, c int) uint8 { return m.Data[(y*m.Width+x)*m.Channels+c] }

func (m *FeatureMap) Set(x, y, c int, v uint8) { m.Data[(y*m.Width+x)*m.Channels+c] = v }

// CheckFeatures verifies that maps is non-empty, every map is width x height
// and holds at least one channel. It returns the total channel count.
func CheckFeatures(maps []*FeatureMap, width, height int) (int, error) {
	if len(maps) == 0 {
		return 0, fmt.Errorf("no feature maps: %w", ErrShape)
	}
	total := 0
	for i, m := range maps {
		if m == nil {
			return 0, fmt.Errorf("feature map %d is nil: %w", i, ErrShape)
		}
		if m.Width != width || m.Height != height {
			return 0, fmt.Errorf("feature map %d is %dx%d, want %dx%d: %w", i, m.Width, m.Height, width, height, ErrShape)
		}
		if m.Channels <= 0 || len(m.Data) != m.Width*m.Height*m.Channels {
			return 0, fmt.Errorf("feature map %d has %d channels and %d bytes: %w", i, m.Channels, len(m.Data), ErrShape)
		}
		total += m.Channels
	}
	return total, nil
}

// GatherFeatures concatenates the channels of site (x, y) across maps into
// dst, which must hold the total channel count. A single map with N channels
// and N single-channel maps produce the same vector.
func GatherFeatures(dst []uint8, maps []*FeatureMap, x, y int) {
	off := 0
	for _, m := range maps {
		off += copy(dst[off:], m.Pixel(x, y))
	}
}
