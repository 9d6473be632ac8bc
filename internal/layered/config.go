package layered

import (
	"fmt"
	"strings"

	"github.com/banshee-data/gridcrf/internal/config"
)

// Flags selects the edge families created by Build. Families combine freely.
type Flags uint8

const (
	// EdgesLink connects the layers of one site: an arc between layers 0
	// and 1 and a directed edge from layer l-1 to layer l for l >= 2.
	EdgesLink Flags = 1 << iota
	// EdgesGrid connects each layer to the same layer of the left and upper
	// neighbour sites.
	EdgesGrid
	// EdgesDiag connects each layer to the same layer of the upper-left and
	// upper-right neighbour sites.
	EdgesDiag

	EdgesAll = EdgesLink | EdgesGrid | EdgesDiag
)

// Has reports whether every family in x is selected.
func (f Flags) Has(x Flags) bool { return f&x == x }

func (f Flags) String() string {
	var names []string
	if f.Has(EdgesLink) {
		names = append(names, config.EdgesLink)
	}
	if f.Has(EdgesGrid) {
		names = append(names, config.EdgesGrid)
	}
	if f.Has(EdgesDiag) {
		names = append(names, config.EdgesDiag)
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseFlags converts edge family names ("link", "grid", "diag") to Flags.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case config.EdgesLink:
			f |= EdgesLink
		case config.EdgesGrid:
			f |= EdgesGrid
		case config.EdgesDiag:
			f |= EdgesDiag
		default:
			return 0, fmt.Errorf("unknown edge family %q", n)
		}
	}
	return f, nil
}

// Config describes the layer stack and the fixed potentials of a layered
// graph.
type Config struct {
	Layers                int     // Stacked nodes per site (default: 2)
	Flags                 Flags   // Edge families (default: link|grid)
	LinkConsistency       float64 // Potts strength between refinement layers (default: 100)
	IntermediatePriorMass float64 // Prior mass on layers >= 2 (default: 100)
	Workers               int     // Row workers for the fill passes; 0 means one per CPU
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Layers:                2,
		Flags:                 EdgesLink | EdgesGrid,
		LinkConsistency:       100,
		IntermediatePriorMass: 100,
	}
}

// ConfigFromFile builds a Config from a loaded GraphConfig.
func ConfigFromFile(cfg *config.GraphConfig) (*Config, error) {
	flags, err := ParseFlags(cfg.GetEdges())
	if err != nil {
		return nil, err
	}
	c := &Config{
		Layers:                cfg.GetLayers(),
		Flags:                 flags,
		LinkConsistency:       cfg.GetLinkConsistency(),
		IntermediatePriorMass: cfg.GetIntermediatePriorMass(),
		Workers:               cfg.GetWorkers(),
	}
	return c, c.Validate()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Layers < 1 {
		return fmt.Errorf("Layers must be positive, got %d", c.Layers)
	}
	if c.Flags&^EdgesAll != 0 {
		return fmt.Errorf("unknown edge flags %#x", uint8(c.Flags&^EdgesAll))
	}
	if c.LinkConsistency < 0 {
		return fmt.Errorf("LinkConsistency must be non-negative, got %f", c.LinkConsistency)
	}
	if c.IntermediatePriorMass < 0 {
		return fmt.Errorf("IntermediatePriorMass must be non-negative, got %f", c.IntermediatePriorMass)
	}
	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}
	return nil
}

// WithLayers sets the number of layers per site.
func (c *Config) WithLayers(n int) *Config {
	c.Layers = n
	return c
}

// WithFlags sets the edge families.
func (c *Config) WithFlags(f Flags) *Config {
	c.Flags = f
	return c
}

// WithLinkConsistency sets the Potts strength used between layers >= 2.
func (c *Config) WithLinkConsistency(v float64) *Config {
	c.LinkConsistency = v
	return c
}

// WithIntermediatePriorMass sets the prior mass of layers >= 2.
func (c *Config) WithIntermediatePriorMass(v float64) *Config {
	c.IntermediatePriorMass = v
	return c
}

// WithWorkers sets the number of row workers.
func (c *Config) WithWorkers(n int) *Config {
	c.Workers = n
	return c
}
