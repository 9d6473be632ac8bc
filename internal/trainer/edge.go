package trainer

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/gridcrf/internal/potential"
)

// PottsEdge is the feature independent Potts model: a matrix of ones whose
// diagonal holds params[s] for state s. When params is shorter than the
// number of states the last value is repeated; no params means 1 (no
// smoothing). The result is raised elementwise to weight.
type PottsEdge struct {
	nStates   int
	nFeatures int
}

func NewPottsEdge(nStates, nFeatures int) *PottsEdge {
	return &PottsEdge{nStates: nStates, nFeatures: nFeatures}
}

func (e *PottsEdge) NumFeatures() int { return e.nFeatures }

func (e *PottsEdge) EdgePotentials(_, _ []uint8, params []float64, weight float64) *mat.Dense {
	return potential.Pow(potential.Diagonal(stateValues(params, e.nStates)), weight)
}

// ContrastEdge is a contrast sensitive Potts model. The diagonal of state s
// is 1 + (params[s]-1)·exp(-‖f1-f2‖²/(2σ²)): identical neighbours get the
// full Potts strength and very different neighbours get none.
type ContrastEdge struct {
	nStates   int
	nFeatures int
	sigma     float64
}

func NewContrastEdge(nStates, nFeatures int, sigma float64) *ContrastEdge {
	return &ContrastEdge{nStates: nStates, nFeatures: nFeatures, sigma: sigma}
}

func (e *ContrastEdge) NumFeatures() int { return e.nFeatures }

func (e *ContrastEdge) EdgePotentials(f1, f2 []uint8, params []float64, weight float64) *mat.Dense {
	var d2 float64
	for i := 0; i < len(f1) && i < len(f2); i++ {
		d := float64(f1[i]) - float64(f2[i])
		d2 += d * d
	}
	k := math.Exp(-d2 / (2 * e.sigma * e.sigma))

	vals := stateValues(params, e.nStates)
	for s, p := range vals {
		vals[s] = 1 + (p-1)*k
	}
	return potential.Pow(potential.Diagonal(vals), weight)
}

func stateValues(params []float64, nStates int) []float64 {
	vals := make([]float64, nStates)
	for s := range vals {
		switch {
		case len(params) == 0:
			vals[s] = 1
		case s < len(params):
			vals[s] = params[s]
		default:
			vals[s] = params[len(params)-1]
		}
	}
	return vals
}
