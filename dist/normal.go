package dist

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Normal is dnorm(mu, tau): univariate Normal parameterized by mean and
// precision (tau = 1/variance), the BUGS convention (see
// modules/bugs/distributions/DNorm.cc in the original source).
type Normal struct{}

// NewNormal returns the dnorm distribution.
func NewNormal() Distribution { return Normal{} }

// Name implements Distribution.
func (Normal) Name() string { return "dnorm" }

// CheckParamDim implements Distribution: both parameters are scalar.
func (Normal) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && scalarDim(paramDims)
}

// CheckParamValue implements Distribution: precision must be positive.
func (Normal) CheckParamValue(params Params) bool {
	return len(params) == 2 && params[1][0] > 0
}

// Dim implements Distribution: scalar output.
func (Normal) Dim(paramDims [][]int) ([]int, error) { return []int{1}, nil }

func (n Normal) toDistuv(params Params) (distuv.Normal, error) {
	if !n.CheckParamValue(params) {
		return distuv.Normal{}, fmt.Errorf("dnorm: %w", ErrInvalidParamValue)
	}
	mu, tau := params[0][0], params[1][0]

	return distuv.Normal{Mu: mu, Sigma: 1 / math.Sqrt(tau)}, nil
}

// LogDensity implements Distribution, honoring optional truncation bounds
// by renormalizing over [lower, upper].
func (n Normal) LogDensity(x []float64, params Params, lower, upper *float64) (float64, error) {
	d, err := n.toDistuv(params)
	if err != nil {
		return 0, err
	}
	lp := d.LogProb(x[0])
	if lower == nil && upper == nil {
		return lp, nil
	}

	return lp - logTruncMass(d, lower, upper), nil
}

// CDF implements Distribution.
func (n Normal) CDF(q float64, params Params) (float64, error) {
	d, err := n.toDistuv(params)
	if err != nil {
		return 0, err
	}

	return d.CDF(q), nil
}

// Quantile implements Distribution.
func (n Normal) Quantile(p float64, params Params) (float64, error) {
	d, err := n.toDistuv(params)
	if err != nil {
		return 0, err
	}

	return d.Quantile(p), nil
}

// Rand implements Distribution.
func (n Normal) Rand(rng *rand.Rand, params Params) ([]float64, error) {
	d, err := n.toDistuv(params)
	if err != nil {
		return nil, err
	}
	d.Src = rng

	return []float64{d.Rand()}, nil
}

// IsDiscreteValued implements Distribution: Normal is continuous.
func (Normal) IsDiscreteValued() bool { return false }

// DF implements Distribution: full-rank scalar.
func (Normal) DF(paramDims [][]int) (int, error) { return 1, nil }

// KL returns the closed-form Kullback-Leibler divergence KL(p || q)
// between two dnorm(mu, tau) parameterizations, the "closed-form KL
// exposed by supported distributions" KLPDMonitor consults (spec §4.J)
// in place of PDMonitor's generic numerical proxy. Not part of the
// Distribution interface: callers type-assert for it.
func (n Normal) KL(p, q Params) (float64, error) {
	dp, err := n.toDistuv(p)
	if err != nil {
		return 0, err
	}
	dq, err := n.toDistuv(q)
	if err != nil {
		return 0, err
	}
	varP, varQ := dp.Sigma * dp.Sigma, dq.Sigma * dq.Sigma
	meanDiff := dp.Mu - dq.Mu

	return math.Log(dq.Sigma/dp.Sigma) + (varP+meanDiff*meanDiff)/(2*varQ) - 0.5, nil
}

// logTruncMass returns log(CDF(upper) - CDF(lower)), the log normalizing
// constant for a distribution truncated to [lower, upper].
func logTruncMass(d distuv.Normal, lower, upper *float64) float64 {
	pl, pu := 0.0, 1.0
	if lower != nil {
		pl = d.CDF(*lower)
	}
	if upper != nil {
		pu = d.CDF(*upper)
	}

	return math.Log(pu - pl)
}
