package dist

import (
	"fmt"
	"math"
	"math/rand"
)

// DSum is dsum(x1, x2, ...): a degenerate distribution representing the
// hard constraint that an observed scalar equals the sum of its parents.
// It is never sampled from in practice (the observed node is fixed data);
// its role is to anchor RealDSum's and DSumMethod's canSample checks
// (spec §4.H) and to give the constrained block something to condition on
// in logFullConditional.
type DSum struct{}

// NewDSum returns the dsum distribution.
func NewDSum() Distribution { return DSum{} }

// Name implements Distribution.
func (DSum) Name() string { return "dsum" }

// CheckParamDim implements Distribution: any number of scalar parents.
func (DSum) CheckParamDim(paramDims [][]int) bool {
	if len(paramDims) == 0 {
		return false
	}

	return scalarDim(paramDims)
}

// CheckParamValue implements Distribution: always valid (no constraints
// on the summands themselves).
func (DSum) CheckParamValue(params Params) bool { return len(params) > 0 }

// Dim implements Distribution: scalar output.
func (DSum) Dim(paramDims [][]int) ([]int, error) { return []int{1}, nil }

const dsumTolerance = 1e-8

// LogDensity implements Distribution: 0 (density 1) if x equals the sum of
// parents within tolerance, -Inf otherwise.
func (DSum) LogDensity(x []float64, params Params, lower, upper *float64) (float64, error) {
	var sum float64
	for _, p := range params {
		sum += p[0]
	}
	if math.Abs(x[0]-sum) > dsumTolerance {
		return math.Inf(-1), nil
	}

	return 0, nil
}

// CDF implements Distribution: unsupported (degenerate distribution).
func (DSum) CDF(q float64, params Params) (float64, error) {
	return 0, fmt.Errorf("dsum: CDF: %w", ErrUnsupported)
}

// Quantile implements Distribution: unsupported.
func (DSum) Quantile(p float64, params Params) (float64, error) {
	return 0, fmt.Errorf("dsum: Quantile: %w", ErrUnsupported)
}

// Rand implements Distribution: deterministic sum of parents (dsum nodes
// are always observed in practice, so this only serves initial-value
// generation).
func (DSum) Rand(rng *rand.Rand, params Params) ([]float64, error) {
	var sum float64
	for _, p := range params {
		sum += p[0]
	}

	return []float64{sum}, nil
}

// IsDiscreteValued implements Distribution: inherits continuity from its
// summands; treated as continuous since RealDSum's targets are continuous.
func (DSum) IsDiscreteValued() bool { return false }

// DF implements Distribution.
func (DSum) DF(paramDims [][]int) (int, error) { return 1, nil }
