package dist

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Beta is dbeta(a, b). It is not used by the conjugate updaters directly
// but is part of the standard registry (e.g. for models mixing Beta priors
// with Metropolis updaters).
type Beta struct{}

// NewBeta returns the dbeta distribution.
func NewBeta() Distribution { return Beta{} }

// Name implements Distribution.
func (Beta) Name() string { return "dbeta" }

// CheckParamDim implements Distribution.
func (Beta) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && scalarDim(paramDims)
}

// CheckParamValue implements Distribution.
func (Beta) CheckParamValue(params Params) bool {
	return len(params) == 2 && params[0][0] > 0 && params[1][0] > 0
}

// Dim implements Distribution.
func (Beta) Dim(paramDims [][]int) ([]int, error) { return []int{1}, nil }

func (b Beta) toDistuv(params Params) (distuv.Beta, error) {
	if !b.CheckParamValue(params) {
		return distuv.Beta{}, fmt.Errorf("dbeta: %w", ErrInvalidParamValue)
	}

	return distuv.Beta{Alpha: params[0][0], Beta: params[1][0]}, nil
}

// LogDensity implements Distribution.
func (b Beta) LogDensity(x []float64, params Params, lower, upper *float64) (float64, error) {
	d, err := b.toDistuv(params)
	if err != nil {
		return 0, err
	}

	return d.LogProb(x[0]), nil
}

// CDF implements Distribution.
func (b Beta) CDF(q float64, params Params) (float64, error) {
	d, err := b.toDistuv(params)
	if err != nil {
		return 0, err
	}

	return d.CDF(q), nil
}

// Quantile implements Distribution.
func (b Beta) Quantile(p float64, params Params) (float64, error) {
	_, err := b.toDistuv(params)
	if err != nil {
		return 0, err
	}

	return 0, fmt.Errorf("dbeta: Quantile: %w", ErrUnsupported)
}

// Rand implements Distribution.
func (b Beta) Rand(rng *rand.Rand, params Params) ([]float64, error) {
	d, err := b.toDistuv(params)
	if err != nil {
		return nil, err
	}
	d.Src = rng

	return []float64{d.Rand()}, nil
}

// IsDiscreteValued implements Distribution.
func (Beta) IsDiscreteValued() bool { return false }

// DF implements Distribution.
func (Beta) DF(paramDims [][]int) (int, error) { return 1, nil }
