package dist

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Dirichlet is ddirch(alpha): a vector-valued distribution over the
// probability simplex.
type Dirichlet struct{}

// NewDirichlet returns the ddirch distribution.
func NewDirichlet() Distribution { return Dirichlet{} }

// Name implements Distribution.
func (Dirichlet) Name() string { return "ddirch" }

// CheckParamDim implements Distribution: a single vector parameter.
func (Dirichlet) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 1 && len(paramDims[0]) == 1 && paramDims[0][0] >= 1
}

// CheckParamValue implements Distribution: all concentrations >= 0, at
// least one strictly positive (structural zeros, spec §4.G, are allowed).
func (Dirichlet) CheckParamValue(params Params) bool {
	if len(params) != 1 {
		return false
	}
	anyPositive := false
	for _, a := range params[0] {
		if a < 0 {
			return false
		}
		if a > 0 {
			anyPositive = true
		}
	}

	return anyPositive
}

// Dim implements Distribution.
func (Dirichlet) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 1 {
		return nil, fmt.Errorf("ddirch: Dim: %w", ErrWrongArity)
	}

	return []int{paramDims[0][0]}, nil
}

// LogDensity implements Distribution: standard Dirichlet log density,
// skipping zero-alpha (structural-zero) components the way the sampler
// treats them (x_i is then required to be exactly zero).
func (d Dirichlet) LogDensity(x []float64, params Params, lower, upper *float64) (float64, error) {
	if !d.CheckParamValue(params) {
		return 0, fmt.Errorf("ddirch: %w", ErrInvalidParamValue)
	}
	alpha := params[0]
	if len(x) != len(alpha) {
		return 0, fmt.Errorf("ddirch: LogDensity: %w", ErrWrongArity)
	}
	var lp, sumAlpha, sumLgammaAlpha float64
	for i, a := range alpha {
		if a == 0 {
			continue
		}
		sumAlpha += a
		lg, _ := math.Lgamma(a)
		sumLgammaAlpha += lg
		lp += (a - 1) * math.Log(x[i])
	}
	lgSum, _ := math.Lgamma(sumAlpha)
	lp += lgSum - sumLgammaAlpha

	return lp, nil
}

// CDF implements Distribution: unsupported for vector output.
func (Dirichlet) CDF(q float64, params Params) (float64, error) {
	return 0, fmt.Errorf("ddirch: CDF: %w", ErrUnsupported)
}

// Quantile implements Distribution: unsupported for vector output.
func (Dirichlet) Quantile(p float64, params Params) (float64, error) {
	return 0, fmt.Errorf("ddirch: Quantile: %w", ErrUnsupported)
}

// Rand implements Distribution: independent Gammas normalized to sum to
// one, the same algorithm spec §4.G uses for the conjugate update.
func (d Dirichlet) Rand(rng *rand.Rand, params Params) ([]float64, error) {
	if !d.CheckParamValue(params) {
		return nil, fmt.Errorf("ddirch: %w", ErrInvalidParamValue)
	}
	alpha := params[0]
	out := make([]float64, len(alpha))
	var sum float64
	for i, a := range alpha {
		if a <= 0 {
			out[i] = 0

			continue
		}
		g := distuv.Gamma{Alpha: a, Beta: 1, Src: rng}
		out[i] = g.Rand()
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}

	return out, nil
}

// IsDiscreteValued implements Distribution.
func (Dirichlet) IsDiscreteValued() bool { return false }

// DF implements Distribution: the simplex constraint removes one degree of
// freedom.
func (Dirichlet) DF(paramDims [][]int) (int, error) {
	if len(paramDims) != 1 {
		return 0, fmt.Errorf("ddirch: DF: %w", ErrWrongArity)
	}

	return paramDims[0][0] - 1, nil
}
