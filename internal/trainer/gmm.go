package trainer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/banshee-data/gridcrf/internal/monitoring"
)

// GMMParams configures GMMNode.
type GMMParams struct {
	Components    int     // mixture components per state (default: 2)
	MaxIterations int     // EM iteration cap (default: 100)
	Epsilon       float64 // relative log-likelihood change that stops EM (default: 1e-4)
	// NormalizationBase scales densities by base^nFeatures so that products
	// of small densities stay in a usable range (default: 32).
	NormalizationBase float64
	// VarianceFloor is added to every variance to keep covariances positive
	// definite on constant features (default: 1e-2).
	VarianceFloor float64
}

// DefaultGMMParams returns the default GMM parameters.
func DefaultGMMParams() GMMParams {
	return GMMParams{
		Components:        2,
		MaxIterations:     100,
		Epsilon:           1e-4,
		NormalizationBase: 32,
		VarianceFloor:     1e-2,
	}
}

type mixture struct {
	logWeights []float64
	comps      []*distmv.Normal
}

func (m *mixture) logDensity(x []float64, buf []float64) float64 {
	for k, c := range m.comps {
		buf[k] = m.logWeights[k] + c.LogProb(x)
	}
	return floats.LogSumExp(buf[:len(m.comps)])
}

// GMMNode models each state with its own diagonal-covariance Gaussian
// mixture fitted by expectation maximisation. A state without samples, or
// whose fit fails, is left untrained and masked out of NodePotentials.
type GMMNode struct {
	nStates   int
	nFeatures int
	params    GMMParams

	samples        [][][]float64 // state -> sample -> feature
	models         []*mixture    // nil for untrained states
	minCoefficient float64
}

func NewGMMNode(nStates, nFeatures int, params GMMParams) *GMMNode {
	if params.Components <= 0 {
		params.Components = 1
	}
	if params.MaxIterations <= 0 {
		params.MaxIterations = 1
	}
	return &GMMNode{
		nStates:        nStates,
		nFeatures:      nFeatures,
		params:         params,
		samples:        make([][][]float64, nStates),
		models:         make([]*mixture, nStates),
		minCoefficient: 1,
	}
}

func (g *GMMNode) NumStates() int   { return g.nStates }
func (g *GMMNode) NumFeatures() int { return g.nFeatures }

func (g *GMMNode) AddFeatureVec(f []uint8, gt int) error {
	if gt < 0 || gt >= g.nStates {
		return fmt.Errorf("groundtruth %d of %d: %w", gt, g.nStates, ErrState)
	}
	if len(f) != g.nFeatures {
		return fmt.Errorf("got %d features, want %d: %w", len(f), g.nFeatures, ErrFeatures)
	}
	x := make([]float64, len(f))
	for i, v := range f {
		x[i] = float64(v)
	}
	g.samples[gt] = append(g.samples[gt], x)
	return nil
}

// Reset drops all samples and models.
func (g *GMMNode) Reset() {
	for s := range g.samples {
		g.samples[s] = nil
		g.models[s] = nil
	}
	g.minCoefficient = 1
}

// Train fits every state that has samples. Failing states are logged and
// left untrained; Train only returns an error when no state could be fitted.
func (g *GMMNode) Train() error {
	trained := 0
	for s := 0; s < g.nStates; s++ {
		if len(g.samples[s]) == 0 {
			g.models[s] = nil
			continue
		}
		m, err := g.fit(g.samples[s])
		if err != nil {
			monitoring.Logf("gmm: state %d (%d samples): %v", s, len(g.samples[s]), err)
			g.models[s] = nil
			continue
		}
		g.models[s] = m
		trained++
	}
	g.minCoefficient = math.Pow(g.params.NormalizationBase, float64(g.nFeatures))
	if trained == 0 {
		return ErrNoSamples
	}
	return nil
}

// IsTrained reports whether state s has a usable model.
func (g *GMMNode) IsTrained(s int) bool {
	return s >= 0 && s < g.nStates && g.models[s] != nil
}

func (g *GMMNode) NodePotentials(f []uint8) (*mat.VecDense, []bool) {
	pot := mat.NewVecDense(g.nStates, nil)
	mask := make([]bool, g.nStates)
	x := make([]float64, g.nFeatures)
	for i := 0; i < len(f) && i < g.nFeatures; i++ {
		x[i] = float64(f[i])
	}
	buf := make([]float64, g.params.Components)
	for s, m := range g.models {
		if m == nil {
			continue
		}
		mask[s] = true
		pot.SetVec(s, math.Exp(m.logDensity(x, buf))*g.minCoefficient)
	}
	return pot, mask
}

func (g *GMMNode) fit(xs [][]float64) (*mixture, error) {
	n, d := len(xs), g.nFeatures
	k := g.params.Components
	if k > n {
		k = n
	}

	// Initial means are evenly spaced samples; variances are the per-feature
	// variance of the whole state.
	means := make([][]float64, k)
	vars := make([][]float64, k)
	col := make([]float64, n)
	global := make([]float64, d)
	for j := 0; j < d; j++ {
		for i, x := range xs {
			col[i] = x[j]
		}
		if n > 1 {
			global[j] = stat.Variance(col, nil)
		}
		global[j] += g.params.VarianceFloor
	}
	for c := 0; c < k; c++ {
		means[c] = append([]float64(nil), xs[c*n/k]...)
		vars[c] = append([]float64(nil), global...)
	}
	weights := make([]float64, k)
	for c := range weights {
		weights[c] = 1 / float64(k)
	}

	resp := mat.NewDense(n, k, nil)
	buf := make([]float64, k)
	prev := math.Inf(-1)
	var m *mixture
	for it := 0; it < g.params.MaxIterations; it++ {
		var err error
		m, err = newMixture(weights, means, vars)
		if err != nil {
			return nil, err
		}

		// E-step
		ll := 0.0
		for i, x := range xs {
			lse := m.logDensity(x, buf)
			if math.IsNaN(lse) || math.IsInf(lse, 0) {
				return nil, fmt.Errorf("degenerate likelihood at iteration %d", it)
			}
			for c := 0; c < k; c++ {
				resp.Set(i, c, math.Exp(buf[c]-lse))
			}
			ll += lse
		}
		if math.Abs(ll-prev) <= g.params.Epsilon*math.Abs(ll) {
			break
		}
		prev = ll

		// M-step
		for c := 0; c < k; c++ {
			nk := 0.0
			for i := 0; i < n; i++ {
				nk += resp.At(i, c)
			}
			if nk < 1e-10 {
				// Component lost all support; keep its parameters but make it
				// negligible.
				weights[c] = 1e-12
				continue
			}
			weights[c] = nk / float64(n)
			for j := 0; j < d; j++ {
				mu := 0.0
				for i, x := range xs {
					mu += resp.At(i, c) * x[j]
				}
				mu /= nk
				v := 0.0
				for i, x := range xs {
					diff := x[j] - mu
					v += resp.At(i, c) * diff * diff
				}
				means[c][j] = mu
				vars[c][j] = v/nk + g.params.VarianceFloor
			}
		}
	}
	return newMixture(weights, means, vars)
}

func newMixture(weights []float64, means, vars [][]float64) (*mixture, error) {
	m := &mixture{
		logWeights: make([]float64, len(weights)),
		comps:      make([]*distmv.Normal, len(weights)),
	}
	for c := range weights {
		m.logWeights[c] = math.Log(weights[c])
		normal, ok := distmv.NewNormal(append([]float64(nil), means[c]...), mat.NewDiagDense(len(vars[c]), append([]float64(nil), vars[c]...)), nil)
		if !ok {
			return nil, fmt.Errorf("component %d covariance is not positive definite", c)
		}
		m.comps[c] = normal
	}
	return m, nil
}
