package dist

import (
	"fmt"
	"math"
)

// Add is the binary "+" function: y <- a + b.
type Add struct{}

// Name implements Function.
func (Add) Name() string { return "+" }

// CheckParamDim implements Function: both operands share a dimension.
func (Add) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && dimsEqual(paramDims[0], paramDims[1])
}

// Dim implements Function.
func (Add) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 2 {
		return nil, fmt.Errorf("+: Dim: %w", ErrWrongArity)
	}

	return paramDims[0], nil
}

// Eval implements Function.
func (Add) Eval(out []float64, params Params) error {
	a, b := params[0], params[1]
	for i := range out {
		out[i] = a[i] + b[i]
	}

	return nil
}

// CheckParamValue implements Function: always valid.
func (Add) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function: discrete iff both operands are.
func (Add) IsDiscreteValued(parentDiscrete []bool) bool {
	return allTrue(parentDiscrete)
}

// IsLinear implements Function: a sum of linear terms is always linear.
func (Add) IsLinear(mask, fixed []bool) bool { return true }

// IsScale implements Function: addition is never a pure scale (it has an
// additive shift) unless at most one side is in play and that side is a
// plain pass-through — conservatively, only the trivial no-parent case.
func (Add) IsScale(index int, fixed []bool) bool { return index < 0 }

// Subtract is the binary "-" function: y <- a - b.
type Subtract struct{}

// Name implements Function.
func (Subtract) Name() string { return "-" }

// CheckParamDim implements Function.
func (Subtract) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && dimsEqual(paramDims[0], paramDims[1])
}

// Dim implements Function.
func (Subtract) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 2 {
		return nil, fmt.Errorf("-: Dim: %w", ErrWrongArity)
	}

	return paramDims[0], nil
}

// Eval implements Function.
func (Subtract) Eval(out []float64, params Params) error {
	a, b := params[0], params[1]
	for i := range out {
		out[i] = a[i] - b[i]
	}

	return nil
}

// CheckParamValue implements Function.
func (Subtract) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function.
func (Subtract) IsDiscreteValued(parentDiscrete []bool) bool { return allTrue(parentDiscrete) }

// IsLinear implements Function: a difference of linear terms is linear.
func (Subtract) IsLinear(mask, fixed []bool) bool { return true }

// IsScale implements Function.
func (Subtract) IsScale(index int, fixed []bool) bool { return index < 0 }

// Multiply is the binary "*" function: y <- a * b.
type Multiply struct{}

// Name implements Function.
func (Multiply) Name() string { return "*" }

// CheckParamDim implements Function.
func (Multiply) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && dimsEqual(paramDims[0], paramDims[1])
}

// Dim implements Function.
func (Multiply) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 2 {
		return nil, fmt.Errorf("*: Dim: %w", ErrWrongArity)
	}

	return paramDims[0], nil
}

// Eval implements Function.
func (Multiply) Eval(out []float64, params Params) error {
	a, b := params[0], params[1]
	for i := range out {
		out[i] = a[i] * b[i]
	}

	return nil
}

// CheckParamValue implements Function.
func (Multiply) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function.
func (Multiply) IsDiscreteValued(parentDiscrete []bool) bool { return allTrue(parentDiscrete) }

// IsLinear implements Function: x*y is linear only if at most one factor
// is in play (the other is then a fixed coefficient), mirroring Divide's
// reciprocal-term restriction in the original source.
func (Multiply) IsLinear(mask, fixed []bool) bool {
	inPlay := 0
	for _, m := range mask {
		if m {
			inPlay++
		}
	}

	return inPlay <= 1
}

// IsScale implements Function: multiplication by the other (fixed)
// argument is exactly a scale transform of the in-play argument.
func (Multiply) IsScale(index int, fixed []bool) bool { return true }

// Divide is the binary "/" function: y <- a / b.
type Divide struct{}

// Name implements Function.
func (Divide) Name() string { return "/" }

// CheckParamDim implements Function.
func (Divide) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && dimsEqual(paramDims[0], paramDims[1])
}

// Dim implements Function.
func (Divide) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 2 {
		return nil, fmt.Errorf("/: Dim: %w", ErrWrongArity)
	}

	return paramDims[0], nil
}

// Eval implements Function.
func (Divide) Eval(out []float64, params Params) error {
	a, b := params[0], params[1]
	for i := range out {
		out[i] = a[i] / b[i]
	}

	return nil
}

// CheckParamValue implements Function: denominator must be nonzero.
func (Divide) CheckParamValue(params Params) bool {
	for _, v := range params[1] {
		if v == 0 {
			return false
		}
	}

	return true
}

// IsDiscreteValued implements Function.
func (Divide) IsDiscreteValued(parentDiscrete []bool) bool { return allTrue(parentDiscrete) }

// IsLinear implements Function: no reciprocal terms allowed — the divisor
// must never be in play, and when a fixed mask is supplied an in-play
// numerator additionally requires the divisor to be fixed (observed data).
func (Divide) IsLinear(mask, fixed []bool) bool {
	if len(mask) != 2 {
		return false
	}
	if mask[1] {
		return false
	}
	if len(fixed) == 0 {
		return true
	}

	return !mask[0] || fixed[1]
}

// IsScale implements Function: dividing by the fixed divisor is a scale
// transform of the numerator.
func (Divide) IsScale(index int, fixed []bool) bool {
	if index == 1 {
		return false
	}
	if len(fixed) == 0 {
		return true
	}

	return fixed[1]
}

// Power is the binary "^" function: y <- a ^ b.
type Power struct{}

// Name implements Function.
func (Power) Name() string { return "^" }

// CheckParamDim implements Function.
func (Power) CheckParamDim(paramDims [][]int) bool {
	return len(paramDims) == 2 && dimsEqual(paramDims[0], paramDims[1])
}

// Dim implements Function.
func (Power) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 2 {
		return nil, fmt.Errorf("^: Dim: %w", ErrWrongArity)
	}

	return paramDims[0], nil
}

// Eval implements Function.
func (Power) Eval(out []float64, params Params) error {
	a, b := params[0], params[1]
	for i := range out {
		out[i] = math.Pow(a[i], b[i])
	}

	return nil
}

// CheckParamValue implements Function: always valid for real exponents of
// positive bases; callers truncate/reject NaN results upstream.
func (Power) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function.
func (Power) IsDiscreteValued(parentDiscrete []bool) bool { return allTrue(parentDiscrete) }

// IsLinear implements Function: the exponent's value is not visible to
// this check, so a^b is treated as linear only when neither the base nor
// the exponent is in play.
func (Power) IsLinear(mask, fixed []bool) bool {
	return len(mask) == 2 && !mask[0] && !mask[1]
}

// IsScale implements Function: a fixed power transform of a single
// in-play base is treated by TruncatedGamma's canSample, not as a linear
// scale; conservatively false here.
func (Power) IsScale(index int, fixed []bool) bool { return index < 0 }

// AbsFunc is the unary "abs" function.
type AbsFunc struct{}

// Name implements Function.
func (AbsFunc) Name() string { return "abs" }

// CheckParamDim implements Function.
func (AbsFunc) CheckParamDim(paramDims [][]int) bool { return len(paramDims) == 1 }

// Dim implements Function.
func (AbsFunc) Dim(paramDims [][]int) ([]int, error) {
	if len(paramDims) != 1 {
		return nil, fmt.Errorf("abs: Dim: %w", ErrWrongArity)
	}

	return paramDims[0], nil
}

// Eval implements Function.
func (AbsFunc) Eval(out []float64, params Params) error {
	for i, v := range params[0] {
		out[i] = math.Abs(v)
	}

	return nil
}

// CheckParamValue implements Function.
func (AbsFunc) CheckParamValue(params Params) bool { return true }

// IsDiscreteValued implements Function: discreteness passes through.
func (AbsFunc) IsDiscreteValued(parentDiscrete []bool) bool {
	return len(parentDiscrete) == 1 && parentDiscrete[0]
}

// IsLinear implements Function: abs() is never linear once its argument is
// in play (it folds the sign).
func (AbsFunc) IsLinear(mask, fixed []bool) bool {
	return len(mask) == 1 && !mask[0]
}

// IsScale implements Function: never a scale transform.
func (AbsFunc) IsScale(index int, fixed []bool) bool { return index < 0 }

func dimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func allTrue(xs []bool) bool {
	for _, x := range xs {
		if !x {
			return false
		}
	}

	return true
}
