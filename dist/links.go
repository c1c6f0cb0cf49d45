package dist

import (
	"fmt"
	"math"
)

// IdentityLink is the identity link: eta <- mu, mu <- eta.
type IdentityLink struct{}

// Name implements Function.
func (IdentityLink) Name() string { return "identity" }

// CheckParamDim implements Function: a single scalar parent (eta).
func (IdentityLink) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 1 && scalarDim(paramDims)
}

// Dim implements Function.
func (IdentityLink) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 1 {
		return nil, fmt.Errorf("identity: Dim: %w", ErrWrongArity)
	}

	return []int{1}, nil
}

// Eval implements Function: mu <- eta.
func (IdentityLink) Eval(out []float64, params Params) error {
	out[0] = params[0][0]

	return nil
}

// CheckParamValue implements Function.
func (IdentityLink) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function.
func (IdentityLink) IsDiscreteValued(parentDiscrete []bool) bool {
	return len(parentDiscrete) == 1 && parentDiscrete[0]
}

// IsLinear implements Function: identity passes its argument straight
// through.
func (IdentityLink) IsLinear(mask, fixed []bool) bool { return true }

// IsScale implements Function: identity is a scale-by-one transform.
func (IdentityLink) IsScale(index int, fixed []bool) bool { return true }

// Link implements LinkFunction: the forward link is also the identity.
func (IdentityLink) Link(mu float64) float64 { return mu }

// GradLink implements LinkFunction.
func (IdentityLink) GradLink(mu float64) float64 { return 1 }

// LogLink is the log link. Its Eval computes the *inverse* link mu <-
// exp(eta), matching the JAGS convention that a LinkFunction's Eval is the
// function applied to recover mu from the linear predictor; Link/GradLink
// expose the forward transform log(mu) and its derivative 1/mu.
type LogLink struct{}

// Name implements Function: the forward transform's name, used for
// printing (spec §4.C Link node).
func (LogLink) Name() string { return "log" }

// CheckParamDim implements Function.
func (LogLink) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 1 && scalarDim(paramDims)
}

// Dim implements Function.
func (LogLink) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 1 {
		return nil, fmt.Errorf("log: Dim: %w", ErrWrongArity)
	}

	return []int{1}, nil
}

// Eval implements Function: mu <- exp(eta).
func (LogLink) Eval(out []float64, params Params) error {
	out[0] = math.Exp(params[0][0])

	return nil
}

// CheckParamValue implements Function.
func (LogLink) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function: exp() of a discrete value is
// generally not an integer.
func (LogLink) IsDiscreteValued(parentDiscrete []bool) bool { return false }

// IsLinear implements Function: exp() is never linear once eta is in play.
func (LogLink) IsLinear(mask, fixed []bool) bool {
	return len(mask) == 1 && !mask[0]
}

// IsScale implements Function.
func (LogLink) IsScale(index int, fixed []bool) bool { return index < 0 }

// Link implements LinkFunction: eta <- log(mu).
func (LogLink) Link(mu float64) float64 { return math.Log(mu) }

// GradLink implements LinkFunction: d/dmu log(mu) = 1/mu.
func (LogLink) GradLink(mu float64) float64 { return 1 / mu }

// LogitLink is the logit link: eta <- log(mu/(1-mu)), mu <- 1/(1+exp(-eta)).
type LogitLink struct{}

// Name implements Function.
func (LogitLink) Name() string { return "logit" }

// CheckParamDim implements Function.
func (LogitLink) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 1 && scalarDim(paramDims)
}

// Dim implements Function.
func (LogitLink) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 1 {
		return nil, fmt.Errorf("logit: Dim: %w", ErrWrongArity)
	}

	return []int{1}, nil
}

// Eval implements Function: the inverse logit (logistic sigmoid).
func (LogitLink) Eval(out []float64, params Params) error {
	eta := params[0][0]
	out[0] = 1 / (1 + math.Exp(-eta))

	return nil
}

// CheckParamValue implements Function.
func (LogitLink) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function.
func (LogitLink) IsDiscreteValued(parentDiscrete []bool) bool { return false }

// IsLinear implements Function.
func (LogitLink) IsLinear(mask, fixed []bool) bool {
	return len(mask) == 1 && !mask[0]
}

// IsScale implements Function.
func (LogitLink) IsScale(index int, fixed []bool) bool { return index < 0 }

// Link implements LinkFunction: eta <- log(mu / (1 - mu)).
func (LogitLink) Link(mu float64) float64 { return math.Log(mu / (1 - mu)) }

// GradLink implements LinkFunction: d/dmu logit(mu) = 1/(mu*(1-mu)).
func (LogitLink) GradLink(mu float64) float64 { return 1 / (mu * (1 - mu)) }

// ProbitLink is the probit link: eta <- qnorm(mu), mu <- pnorm(eta), using
// the standard normal CDF/quantile.
type ProbitLink struct{}

// Name implements Function.
func (ProbitLink) Name() string { return "probit" }

// CheckParamDim implements Function.
func (ProbitLink) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 1 && scalarDim(paramDims)
}

// Dim implements Function.
func (ProbitLink) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 1 {
		return nil, fmt.Errorf("probit: Dim: %w", ErrWrongArity)
	}

	return []int{1}, nil
}

// Eval implements Function: mu <- pnorm(eta) via the standard normal CDF.
func (ProbitLink) Eval(out []float64, params Params) error {
	out[0] = stdNormalCDF(params[0][0])

	return nil
}

// CheckParamValue implements Function.
func (ProbitLink) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function.
func (ProbitLink) IsDiscreteValued(parentDiscrete []bool) bool { return false }

// IsLinear implements Function.
func (ProbitLink) IsLinear(mask, fixed []bool) bool {
	return len(mask) == 1 && !mask[0]
}

// IsScale implements Function.
func (ProbitLink) IsScale(index int, fixed []bool) bool { return index < 0 }

// Link implements LinkFunction: eta <- qnorm(mu).
func (ProbitLink) Link(mu float64) float64 { return stdNormalQuantile(mu) }

// GradLink implements LinkFunction: d/dmu qnorm(mu) = 1/dnorm(qnorm(mu)).
func (ProbitLink) GradLink(mu float64) float64 {
	eta := stdNormalQuantile(mu)

	return 1 / stdNormalPDF(eta)
}

func stdNormalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt2 / math.SqrtPi
}

func stdNormalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func stdNormalQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}
