package layered

import (
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/monitoring"
	"github.com/banshee-data/gridcrf/internal/potential"
	"github.com/banshee-data/gridcrf/internal/raster"
	"github.com/banshee-data/gridcrf/internal/trainer"
)

// SetNodes fills the node potentials from per-site score maps. base holds
// one channel per base state and goes to the lower slots of layer 0; occl
// holds one channel per occlusion state and goes to the upper slots of
// layer 1. Layers >= 2 receive an occlusion prior of
// IntermediatePriorMass/nOccl on every occlusion state. occl may be nil
// for a single-layer graph.
func (g *Graph) SetNodes(base, occl *raster.ScoreMap) error {
	if err := g.checkLayout(); err != nil {
		return err
	}
	if base == nil {
		return fmt.Errorf("nil base score map: %w", ErrSize)
	}
	if err := g.checkScoreMap(base); err != nil {
		return fmt.Errorf("base scores: %w", err)
	}
	nBase, nOccl := base.Channels, 0
	if occl != nil {
		if err := g.checkScoreMap(occl); err != nil {
			return fmt.Errorf("occlusion scores: %w", err)
		}
		nOccl = occl.Channels
	}
	nStates := g.store.NumStates()
	if nBase+nOccl != nStates {
		return fmt.Errorf("%d base + %d occlusion states, graph has %d: %w", nBase, nOccl, nStates, ErrStates)
	}
	L := g.cfg.Layers
	if L >= 2 && nOccl == 0 {
		return fmt.Errorf("%d layers need occlusion scores: %w", L, ErrStates)
	}
	defer monitoring.Timed("set nodes", "%dx%d sites, %d+%d states", g.width, g.height, nBase, nOccl)()

	var eg errgroup.Group
	eg.SetLimit(g.workers())
	for y := 0; y < g.height; y++ {
		y := y
		eg.Go(func() error {
			basePot := mat.NewVecDense(nStates, nil)
			occlPot := mat.NewVecDense(nStates, nil)
			var intrPot *mat.VecDense
			if L > 2 {
				intrPot = potential.OcclusionPrior(nStates, nOccl, g.cfg.IntermediatePriorMass)
			}
			for x := 0; x < g.width; x++ {
				idx := g.NodeIndex(x, y, 0)
				for s, v := range base.Pixel(x, y) {
					basePot.SetVec(s, v)
				}
				if err := g.store.SetNode(idx, basePot); err != nil {
					return err
				}
				if L < 2 {
					continue
				}
				for s, v := range occl.Pixel(x, y) {
					occlPot.SetVec(nBase+s, v)
				}
				if err := g.store.SetNode(idx+1, occlPot); err != nil {
					return err
				}
				for l := 2; l < L; l++ {
					if err := g.store.SetNode(idx+l, intrPot); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func (g *Graph) checkScoreMap(m *raster.ScoreMap) error {
	if m.Width != g.width || m.Height != g.height {
		return fmt.Errorf("got %dx%d, graph is %dx%d: %w", m.Width, m.Height, g.width, g.height, ErrSize)
	}
	if m.Channels <= 0 || len(m.Data) != m.Width*m.Height*m.Channels {
		return fmt.Errorf("%d channels over %d values: %w", m.Channels, len(m.Data), ErrSize)
	}
	return nil
}

// FillEdges sets the potentials of the edges created by Build.
//
// Link: when lt is non-nil the layer 0/1 arc gets Symmetrize(lt's potential)
// on both directions as is (no square root), and every directed edge
// between layers >= 1 gets a Potts potential of strength LinkConsistency.
// Grid and diagonal: et's potential for the two sites is split over both
// directions of each per-layer arc with the square root convention.
//
// features are co-registered maps of the graph's size; their channels,
// concatenated in order, form the per-site feature vector. The trainers
// must expect exactly that many features.
func (g *Graph) FillEdges(et trainer.EdgeTrainer, lt trainer.LinkTrainer, features []*raster.FeatureMap, params []float64, edgeWeight, linkWeight float64) error {
	if err := g.checkLayout(); err != nil {
		return err
	}
	link := g.cfg.Flags.Has(EdgesLink)
	grid := g.cfg.Flags.Has(EdgesGrid)
	diag := g.cfg.Flags.Has(EdgesDiag)
	if (grid || diag) && et == nil {
		return fmt.Errorf("edge trainer for %s edges: %w", g.cfg.Flags, ErrTrainer)
	}
	nFeatures, err := raster.CheckFeatures(features, g.width, g.height)
	if err != nil {
		return fmt.Errorf("feature maps: %w", err)
	}
	if et != nil && et.NumFeatures() != nFeatures {
		return fmt.Errorf("maps hold %d features, edge trainer expects %d: %w", nFeatures, et.NumFeatures(), ErrFeatures)
	}
	if lt != nil && lt.NumFeatures() != nFeatures {
		return fmt.Errorf("maps hold %d features, link trainer expects %d: %w", nFeatures, lt.NumFeatures(), ErrFeatures)
	}
	defer monitoring.Timed("fill edges", "%dx%d sites, edges %s", g.width, g.height, g.cfg.Flags)()

	L, w, h := g.cfg.Layers, g.width, g.height
	var consistency *mat.Dense
	if link && L > 2 {
		consistency = potential.Potts(g.cfg.LinkConsistency, g.store.NumStates())
	}

	var eg errgroup.Group
	eg.SetLimit(g.workers())
	for y := 0; y < h; y++ {
		y := y
		eg.Go(func() error {
			fv := make([]uint8, nFeatures)
			nb := make([]uint8, nFeatures)
			for x := 0; x < w; x++ {
				idx := g.NodeIndex(x, y, 0)
				raster.GatherFeatures(fv, features, x, y)

				if link && L >= 2 {
					if lt != nil {
						p := potential.Symmetrize(lt.LinkPotentials(fv, linkWeight))
						if err := g.store.SetEdge(idx, idx+1, p); err != nil {
							return err
						}
						if err := g.store.SetEdge(idx+1, idx, p); err != nil {
							return err
						}
					}
					for l := 2; l < L; l++ {
						if err := g.store.SetEdge(idx+l-1, idx+l, consistency); err != nil {
							return err
						}
					}
				}

				if grid {
					if x > 0 {
						raster.GatherFeatures(nb, features, x-1, y)
						if err := g.setLayerArcs(idx, idx-L, et.EdgePotentials(fv, nb, params, edgeWeight)); err != nil {
							return err
						}
					}
					if y > 0 {
						raster.GatherFeatures(nb, features, x, y-1)
						if err := g.setLayerArcs(idx, idx-L*w, et.EdgePotentials(fv, nb, params, edgeWeight)); err != nil {
							return err
						}
					}
				}

				if diag && y > 0 {
					if x > 0 {
						raster.GatherFeatures(nb, features, x-1, y-1)
						if err := g.setLayerArcs(idx, idx-L*(w+1), et.EdgePotentials(fv, nb, params, edgeWeight)); err != nil {
							return err
						}
					}
					if x < w-1 {
						raster.GatherFeatures(nb, features, x+1, y-1)
						if err := g.setLayerArcs(idx, idx-L*(w-1), et.EdgePotentials(fv, nb, params, edgeWeight)); err != nil {
							return err
						}
					}
				}
			}
			return nil
		})
	}
	return eg.Wait()
}

func (g *Graph) setLayerArcs(a, b int, pot *mat.Dense) error {
	for l := 0; l < g.cfg.Layers; l++ {
		if err := g.store.SetArc(a+l, b+l, pot); err != nil {
			return err
		}
	}
	return nil
}
