package main

import (
	"fmt"
	"os"

	"github.com/banshee-data/gridcrf/internal/config"
	"github.com/banshee-data/gridcrf/internal/graph"
	"github.com/banshee-data/gridcrf/internal/layered"
	"github.com/banshee-data/gridcrf/internal/monitoring"
	"github.com/banshee-data/gridcrf/internal/potential"
	"github.com/banshee-data/gridcrf/internal/raster"
	"github.com/banshee-data/gridcrf/internal/render"
	"github.com/banshee-data/gridcrf/internal/snapshot"
	"github.com/banshee-data/gridcrf/internal/trainer"
)

const lineGroup graph.Group = 1

func loadConfig(o *options) (*config.GraphConfig, error) {
	cfg := config.EmptyGraphConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadGraphConfig(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.width > 0 {
		cfg.Width = &o.width
	}
	if o.height > 0 {
		cfg.Height = &o.height
	}
	if o.layers > 0 {
		cfg.Layers = &o.layers
	}
	return cfg, cfg.Validate()
}

func trainNodes(nt *trainer.GMMNode, fm *raster.FeatureMap, truth [][]int) error {
	for y, row := range truth {
		for x, gt := range row {
			if err := nt.AddFeatureVec(fm.Pixel(x, y), gt); err != nil {
				return err
			}
		}
	}
	return nt.Train()
}

func run(o *options) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	lcfg, err := layered.ConfigFromFile(cfg)
	if err != nil {
		return err
	}
	width, height := cfg.GetWidth(), cfg.GetHeight()
	nStates, nOccl := cfg.GetStates(), cfg.GetOcclusionStates()
	nBase := nStates - nOccl
	if nOccl == 0 {
		return fmt.Errorf("occlusion_states must be positive for the synthetic scene")
	}

	sc := newScene(width, height, nBase, nOccl, o.seed)

	gmm := trainer.DefaultGMMParams()
	gmm.Components = cfg.GetGMMComponents()
	gmm.MaxIterations = cfg.GetGMMMaxIterations()
	gmm.NormalizationBase = cfg.GetDensityNormalizationBase()

	baseModel := trainer.NewGMMNode(nBase, 1, gmm)
	if err := trainNodes(baseModel, sc.base, sc.baseTruth); err != nil {
		return fmt.Errorf("train base states: %w", err)
	}
	occlModel := trainer.NewGMMNode(nOccl, 1, gmm)
	if err := trainNodes(occlModel, sc.occl, sc.occlTruth); err != nil {
		return fmt.Errorf("train occlusion states: %w", err)
	}

	workers := cfg.GetWorkers()
	baseScores, baseMask, err := trainer.NodeScores(baseModel, []*raster.FeatureMap{sc.base}, workers)
	if err != nil {
		return err
	}
	occlScores, _, err := trainer.NodeScores(occlModel, []*raster.FeatureMap{sc.occl}, workers)
	if err != nil {
		return err
	}

	features := []*raster.FeatureMap{sc.base, sc.occl}
	edges := trainer.NewContrastEdge(nStates, len(features), cfg.GetContrastSigma())
	links := trainer.NewCooccurrenceLink(nBase, nOccl, len(features))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if err := links.AddPair(sc.baseTruth[y][x], sc.occlTruth[y][x]); err != nil {
				return err
			}
		}
	}

	store := graph.NewStore(nStates)
	g, err := layered.New(store, lcfg)
	if err != nil {
		return err
	}
	if err := g.Build(width, height); err != nil {
		return err
	}
	if err := g.SetNodes(baseScores, occlScores); err != nil {
		return err
	}
	if err := g.FillEdges(edges, links, features, cfg.GetEdgeParams(), cfg.GetEdgeWeight(), cfg.GetLinkWeight()); err != nil {
		return err
	}

	if o.line != nil {
		if err := g.DefineEdgeGroup(o.line[0], o.line[1], o.line[2], lineGroup); err != nil {
			return err
		}
		if o.groupPot >= 0 {
			if _, err := g.SetGroupPot(lineGroup, potential.Potts(o.groupPot, nStates)); err != nil {
				return err
			}
		}
	}

	if o.marginalizeLayer >= 0 {
		if o.marginalizeLayer >= lcfg.Layers {
			return fmt.Errorf("marginalize layer %d of %d", o.marginalizeLayer, lcfg.Layers)
		}
		nodes := make([]int, 0, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				nodes = append(nodes, g.NodeIndex(x, y, o.marginalizeLayer))
			}
		}
		if err := g.Marginalize(nodes); err != nil {
			return err
		}
	}

	mask := make([]bool, nStates)
	copy(mask, baseMask)
	decisions, err := g.Decode(0, mask)
	if err != nil {
		return err
	}
	monitoring.Logf("decode: %d nodes, %d edges, base accuracy %.3f", store.NumNodes(), store.NumEdges(), accuracy(decisions, sc.baseTruth))

	if o.dbPath != "" {
		if err := saveSnapshot(o.dbPath, g, decisions); err != nil {
			return err
		}
	}
	title := fmt.Sprintf("gridcrf %dx%d seed %d", width, height, o.seed)
	if o.pngPath != "" {
		if err := render.HeatmapPNG(decisions, title, o.pngPath); err != nil {
			return err
		}
	}
	if o.htmlPath != "" {
		f, err := os.Create(o.htmlPath)
		if err != nil {
			return err
		}
		if err := render.SiteMapHTML(decisions, title, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func saveSnapshot(path string, g *layered.Graph, decisions [][]int) error {
	db, err := snapshot.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	meta := snapshot.Meta{
		Name:   "gridcrf",
		Width:  g.Width(),
		Height: g.Height(),
		Layers: g.Layers(),
		Edges:  g.Flags().String(),
	}
	id, err := db.Save(meta, g.Store())
	if err != nil {
		return err
	}
	if err := db.SaveDecisions(id, decisions); err != nil {
		return err
	}
	monitoring.Logf("snapshot: saved %s to %s", id, path)
	return nil
}
