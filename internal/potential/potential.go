// Package potential holds the small amount of matrix algebra shared by the
// graph store, the trainers and the layered grid filler. All functions
// return fresh values and never modify their arguments.
package potential

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Clone returns a copy of m, or nil for nil.
func Clone(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}

// CloneVec returns a copy of v, or nil for nil.
func CloneVec(v *mat.VecDense) *mat.VecDense {
	if v == nil {
		return nil
	}
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}

// Potts returns an nStates x nStates matrix of ones with val on the diagonal.
func Potts(val float64, nStates int) *mat.Dense {
	vals := make([]float64, nStates)
	for i := range vals {
		vals[i] = val
	}
	return Diagonal(vals)
}

// Diagonal returns a matrix of ones with vals on the diagonal.
func Diagonal(vals []float64) *mat.Dense {
	n := len(vals)
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 1
	}
	for s, v := range vals {
		data[s*n+s] = v
	}
	return mat.NewDense(n, n, data)
}

// Sqrt returns the elementwise square root of m.
func Sqrt(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return math.Sqrt(v) }, m)
	return &out
}

// Pow raises every element of m to w. Weight 1 returns a plain copy.
func Pow(m *mat.Dense, w float64) *mat.Dense {
	if m == nil {
		return nil
	}
	if w == 1 {
		return Clone(m)
	}
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return math.Pow(v, w) }, m)
	return &out
}

// Sum adds a and b elementwise. When only one of them is set that one is
// copied; when neither is set the result is nil.
func Sum(a, b *mat.Dense) *mat.Dense {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return Clone(b)
	case b == nil:
		return Clone(a)
	}
	var out mat.Dense
	out.Add(a, b)
	return &out
}

// Symmetrize returns p + pᵀ.
func Symmetrize(p *mat.Dense) *mat.Dense {
	if p == nil {
		return nil
	}
	var out mat.Dense
	out.Add(p, p.T())
	return &out
}

// Hadamard returns the elementwise product of a and b.
func Hadamard(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, b)
	return &out
}

// OcclusionPrior returns a vector of length nStates with mass spread evenly
// over the last nOccl entries and zero elsewhere.
func OcclusionPrior(nStates, nOccl int, mass float64) *mat.VecDense {
	v := mat.NewVecDense(nStates, nil)
	if nOccl <= 0 {
		return v
	}
	for s := 0; s < nOccl; s++ {
		v.SetVec(nStates-nOccl+s, mass/float64(nOccl))
	}
	return v
}

// Argmax returns the index of the largest entry of v, skipping states whose
// mask entry is false. A nil mask admits every state. It returns -1 when v
// is nil or every state is masked.
func Argmax(v *mat.VecDense, mask []bool) int {
	if v == nil {
		return -1
	}
	best, bestVal := -1, math.Inf(-1)
	for s := 0; s < v.Len(); s++ {
		if mask != nil && s < len(mask) && !mask[s] {
			continue
		}
		if x := v.AtVec(s); x > bestVal {
			best, bestVal = s, x
		}
	}
	return best
}
