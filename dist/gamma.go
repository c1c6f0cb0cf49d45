package dist

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Gamma is dgamma(shape, rate).
type Gamma struct{}

// NewGamma returns the dgamma distribution.
func NewGamma() Distribution { return Gamma{} }

// Name implements Distribution.
func (Gamma) Name() string { return "dgamma" }

// CheckParamDim implements Distribution.
func (Gamma) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && scalarDim(paramDims)
}

// CheckParamValue implements Distribution: shape and rate must be positive.
func (Gamma) CheckParamValue(params Params) bool {
	return len(params) == 2 && params[0][0] > 0 && params[1][0] > 0
}

// Dim implements Distribution: scalar output.
func (Gamma) Dim(paramDims [][]int) ([]int, error) { return []int{1}, nil }

func (g Gamma) toDistuv(params Params) (distuv.Gamma, error) {
	if !g.CheckParamValue(params) {
		return distuv.Gamma{}, fmt.Errorf("dgamma: %w", ErrInvalidParamValue)
	}

	return distuv.Gamma{Alpha: params[0][0], Beta: params[1][0]}, nil
}

// LogDensity implements Distribution.
func (g Gamma) LogDensity(x []float64, params Params, lower, upper *float64) (float64, error) {
	d, err := g.toDistuv(params)
	if err != nil {
		return 0, err
	}
	lp := d.LogProb(x[0])
	if lower == nil && upper == nil {
		return lp, nil
	}
	pl, pu := 0.0, 1.0
	if lower != nil {
		pl = d.CDF(*lower)
	}
	if upper != nil {
		pu = d.CDF(*upper)
	}

	return lp - math.Log(pu-pl), nil
}

// CDF implements Distribution.
func (g Gamma) CDF(q float64, params Params) (float64, error) {
	d, err := g.toDistuv(params)
	if err != nil {
		return 0, err
	}

	return d.CDF(q), nil
}

// Quantile implements Distribution.
func (g Gamma) Quantile(p float64, params Params) (float64, error) {
	d, err := g.toDistuv(params)
	if err != nil {
		return 0, err
	}

	return d.Quantile(p), nil
}

// Rand implements Distribution.
func (g Gamma) Rand(rng *rand.Rand, params Params) ([]float64, error) {
	d, err := g.toDistuv(params)
	if err != nil {
		return nil, err
	}
	d.Src = rng

	return []float64{d.Rand()}, nil
}

// IsDiscreteValued implements Distribution.
func (Gamma) IsDiscreteValued() bool { return false }

// DF implements Distribution.
func (Gamma) DF(paramDims [][]int) (int, error) { return 1, nil }
