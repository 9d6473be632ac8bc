// Package trainer defines the statistical models that turn per-site feature
// vectors into node, edge and link potentials, together with a few reference
// implementations. Once trained, every trainer is read-only and safe for
// concurrent use by the row-parallel graph fillers.
package trainer

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// Errors
var (
	ErrState     = errors.New("state out of range")
	ErrFeatures  = errors.New("feature vector has wrong length")
	ErrNoSamples = errors.New("no training samples")
)

// NodeTrainer estimates per-state node potentials from a feature vector.
type NodeTrainer interface {
	NumStates() int
	NumFeatures() int
	// AddFeatureVec adds one training sample labelled with state gt.
	AddFeatureVec(f []uint8, gt int) error
	Train() error
	// NodePotentials returns one non-negative score per state together with
	// a validity mask. States whose model is unavailable are masked out and
	// score zero; consumers must exclude them from normalisation.
	NodePotentials(f []uint8) (*mat.VecDense, []bool)
}

// EdgeTrainer produces pairwise potentials between two neighbouring sites.
type EdgeTrainer interface {
	NumFeatures() int
	// EdgePotentials returns an nStates x nStates matrix for the sites with
	// feature vectors f1 and f2.
	EdgePotentials(f1, f2 []uint8, params []float64, weight float64) *mat.Dense
}

// LinkTrainer produces the potential between the two layers of one site.
type LinkTrainer interface {
	NumFeatures() int
	LinkPotentials(f []uint8, weight float64) *mat.Dense
}
