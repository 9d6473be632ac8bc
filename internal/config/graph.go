package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical graph defaults file.
const DefaultConfigPath = "config/graph.defaults.json"

// Edge family names accepted in the "edges" list.
const (
	EdgesLink = "link"
	EdgesGrid = "grid"
	EdgesDiag = "diag"
)

// GraphConfig is the root configuration for building and filling a layered
// grid graph. Every field is optional; the Get* methods return the built-in
// default for fields that are not set, so partial files are safe.
type GraphConfig struct {
	// Topology
	Width           *int     `json:"width,omitempty" yaml:"width,omitempty"`
	Height          *int     `json:"height,omitempty" yaml:"height,omitempty"`
	Layers          *int     `json:"layers,omitempty" yaml:"layers,omitempty"`
	States          *int     `json:"states,omitempty" yaml:"states,omitempty"`
	OcclusionStates *int     `json:"occlusion_states,omitempty" yaml:"occlusion_states,omitempty"`
	Edges           []string `json:"edges,omitempty" yaml:"edges,omitempty"`

	// Fixed potentials
	LinkConsistency       *float64 `json:"link_consistency,omitempty" yaml:"link_consistency,omitempty"`
	IntermediatePriorMass *float64 `json:"intermediate_prior_mass,omitempty" yaml:"intermediate_prior_mass,omitempty"`

	// Trainers
	DensityNormalizationBase *float64  `json:"density_normalization_base,omitempty" yaml:"density_normalization_base,omitempty"`
	EdgeWeight               *float64  `json:"edge_weight,omitempty" yaml:"edge_weight,omitempty"`
	LinkWeight               *float64  `json:"link_weight,omitempty" yaml:"link_weight,omitempty"`
	EdgeParams               []float64 `json:"edge_params,omitempty" yaml:"edge_params,omitempty"`
	ContrastSigma            *float64  `json:"contrast_sigma,omitempty" yaml:"contrast_sigma,omitempty"`
	GMMComponents            *int      `json:"gmm_components,omitempty" yaml:"gmm_components,omitempty"`
	GMMMaxIterations         *int      `json:"gmm_max_iterations,omitempty" yaml:"gmm_max_iterations,omitempty"`

	// Execution
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// EmptyGraphConfig returns a GraphConfig with all fields unset.
func EmptyGraphConfig() *GraphConfig {
	return &GraphConfig{}
}

// LoadGraphConfig loads a GraphConfig from a .json, .yaml or .yml file and
// validates it. The file must be under 1MB.
func LoadGraphConfig(path string) (*GraphConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyGraphConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *GraphConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/gridcrf/ and deeper
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadGraphConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *GraphConfig) Validate() error {
	if c.Width != nil && *c.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", *c.Width)
	}
	if c.Height != nil && *c.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", *c.Height)
	}
	if l := c.GetLayers(); l <= 0 {
		return fmt.Errorf("layers must be positive, got %d", l)
	}
	states, occl := c.GetStates(), c.GetOcclusionStates()
	if states <= 0 || states > 255 {
		return fmt.Errorf("states must be in [1, 255], got %d", states)
	}
	if occl < 0 || occl >= states {
		return fmt.Errorf("occlusion_states must be in [0, states), got %d", occl)
	}
	if c.GetLayers() >= 2 && occl == 0 {
		return fmt.Errorf("occlusion_states must be positive when layers >= 2")
	}
	for _, e := range c.Edges {
		switch e {
		case EdgesLink, EdgesGrid, EdgesDiag:
		default:
			return fmt.Errorf("unknown edge family %q", e)
		}
	}
	if v := c.GetLinkConsistency(); v < 0 {
		return fmt.Errorf("link_consistency must be non-negative, got %f", v)
	}
	if v := c.GetIntermediatePriorMass(); v < 0 {
		return fmt.Errorf("intermediate_prior_mass must be non-negative, got %f", v)
	}
	if v := c.GetDensityNormalizationBase(); v <= 0 {
		return fmt.Errorf("density_normalization_base must be positive, got %f", v)
	}
	if v := c.GetContrastSigma(); v <= 0 {
		return fmt.Errorf("contrast_sigma must be positive, got %f", v)
	}
	for i, p := range c.EdgeParams {
		if p < 0 {
			return fmt.Errorf("edge_params[%d] must be non-negative, got %f", i, p)
		}
	}
	if c.GMMComponents != nil && *c.GMMComponents <= 0 {
		return fmt.Errorf("gmm_components must be positive, got %d", *c.GMMComponents)
	}
	if c.GMMMaxIterations != nil && *c.GMMMaxIterations <= 0 {
		return fmt.Errorf("gmm_max_iterations must be positive, got %d", *c.GMMMaxIterations)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetWidth returns the width value or the default.
func (c *GraphConfig) GetWidth() int {
	if c.Width == nil {
		return 64
	}
	return *c.Width
}

// GetHeight returns the height value or the default.
func (c *GraphConfig) GetHeight() int {
	if c.Height == nil {
		return 48
	}
	return *c.Height
}

// GetLayers returns the layers value or the default.
func (c *GraphConfig) GetLayers() int {
	if c.Layers == nil {
		return 2
	}
	return *c.Layers
}

// GetStates returns the states value or the default.
func (c *GraphConfig) GetStates() int {
	if c.States == nil {
		return 4
	}
	return *c.States
}

// GetOcclusionStates returns the occlusion_states value or the default.
func (c *GraphConfig) GetOcclusionStates() int {
	if c.OcclusionStates == nil {
		return 2
	}
	return *c.OcclusionStates
}

// GetEdges returns the edge families or the default ["link", "grid"].
func (c *GraphConfig) GetEdges() []string {
	if len(c.Edges) == 0 {
		return []string{EdgesLink, EdgesGrid}
	}
	return c.Edges
}

// GetLinkConsistency returns the strength of the layer consistency
// potential between refinement layers.
func (c *GraphConfig) GetLinkConsistency() float64 {
	if c.LinkConsistency == nil {
		return 100
	}
	return *c.LinkConsistency
}

// GetIntermediatePriorMass returns the total mass of the uniform prior on
// layers >= 2.
func (c *GraphConfig) GetIntermediatePriorMass() float64 {
	if c.IntermediatePriorMass == nil {
		return 100
	}
	return *c.IntermediatePriorMass
}

// GetDensityNormalizationBase returns the per-feature density scale of the
// Gaussian mixture node trainer.
func (c *GraphConfig) GetDensityNormalizationBase() float64 {
	if c.DensityNormalizationBase == nil {
		return 32
	}
	return *c.DensityNormalizationBase
}

// GetEdgeWeight returns the edge_weight value or the default.
func (c *GraphConfig) GetEdgeWeight() float64 {
	if c.EdgeWeight == nil {
		return 1
	}
	return *c.EdgeWeight
}

// GetLinkWeight returns the link_weight value or the default.
func (c *GraphConfig) GetLinkWeight() float64 {
	if c.LinkWeight == nil {
		return 1
	}
	return *c.LinkWeight
}

// GetEdgeParams returns the edge trainer parameters or the default [10].
func (c *GraphConfig) GetEdgeParams() []float64 {
	if len(c.EdgeParams) == 0 {
		return []float64{10}
	}
	return c.EdgeParams
}

// GetContrastSigma returns the contrast_sigma value or the default.
func (c *GraphConfig) GetContrastSigma() float64 {
	if c.ContrastSigma == nil {
		return 16
	}
	return *c.ContrastSigma
}

// GetGMMComponents returns the gmm_components value or the default.
func (c *GraphConfig) GetGMMComponents() int {
	if c.GMMComponents == nil {
		return 2
	}
	return *c.GMMComponents
}

// GetGMMMaxIterations returns the gmm_max_iterations value or the default.
func (c *GraphConfig) GetGMMMaxIterations() int {
	if c.GMMMaxIterations == nil {
		return 100
	}
	return *c.GMMMaxIterations
}

// GetWorkers returns the worker count; 0 means one per CPU.
func (c *GraphConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
