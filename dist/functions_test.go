package dist_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/dist"
)

func TestArithmeticFunctions(t *testing.T) {
	out := make([]float64, 1)

	require.NoError(t, dist.Add{}.Eval(out, dist.Params{{2}, {3}}))
	require.Equal(t, 5.0, out[0])

	require.NoError(t, dist.Subtract{}.Eval(out, dist.Params{{5}, {3}}))
	require.Equal(t, 2.0, out[0])

	require.NoError(t, dist.Multiply{}.Eval(out, dist.Params{{4}, {3}}))
	require.Equal(t, 12.0, out[0])

	require.NoError(t, dist.Divide{}.Eval(out, dist.Params{{6}, {3}}))
	require.Equal(t, 2.0, out[0])

	require.NoError(t, dist.Power{}.Eval(out, dist.Params{{2}, {3}}))
	require.Equal(t, 8.0, out[0])

	require.NoError(t, dist.AbsFunc{}.Eval(out, dist.Params{{-4}}))
	require.Equal(t, 4.0, out[0])
}

func TestDivideRejectsZeroDenominator(t *testing.T) {
	require.False(t, dist.Divide{}.CheckParamValue(dist.Params{{1}, {0}}))
	require.True(t, dist.Divide{}.CheckParamValue(dist.Params{{1}, {2}}))
}

func TestDivideIsLinearRejectsDivisorInPlay(t *testing.T) {
	d := dist.Divide{}
	require.True(t, d.IsLinear([]bool{true, false}, nil))
	require.False(t, d.IsLinear([]bool{false, true}, nil))
	require.False(t, d.IsLinear([]bool{true, true}, []bool{false, false}))
	require.True(t, d.IsLinear([]bool{true, false}, []bool{false, true}))
}

func TestMultiplyIsLinearOnlyWithOneFactorInPlay(t *testing.T) {
	m := dist.Multiply{}
	require.True(t, m.IsLinear([]bool{true, false}, nil))
	require.False(t, m.IsLinear([]bool{true, true}, nil))
}

func TestAbsDiscretenessPassesThrough(t *testing.T) {
	a := dist.AbsFunc{}
	require.True(t, a.IsDiscreteValued([]bool{true}))
	require.False(t, a.IsDiscreteValued([]bool{false}))
}

func TestPowerDimMismatch(t *testing.T) {
	_, err := dist.Power{}.Dim([][]int{{1}})
	require.ErrorIs(t, err, dist.ErrWrongArity)
}

func TestArithmeticNoNaN(t *testing.T) {
	out := make([]float64, 1)
	require.NoError(t, dist.Power{}.Eval(out, dist.Params{{4}, {0.5}}))
	require.False(t, math.IsNaN(out[0]))
	require.InDelta(t, 2.0, out[0], 1e-9)
}
