package linalg_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/linalg"
)

func TestSolveIdentity(t *testing.T) {
	m, err := linalg.Identity(3)
	require.NoError(t, err)
	x, err := linalg.Solve(m, []float64{1, 2, 3})
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{1, 2, 3}, x, 1e-9)
}

func TestSolveDiagonal(t *testing.T) {
	m, err := linalg.NewDense(2, 2)
	require.NoError(t, err)
	m.Set(0, 0, 2)
	m.Set(1, 1, 4)
	x, err := linalg.Solve(m, []float64{4, 8})
	require.NoError(t, err)
	require.InDelta(t, 2, x[0], 1e-9)
	require.InDelta(t, 2, x[1], 1e-9)
}

func TestInverseRoundTrip(t *testing.T) {
	m, err := linalg.NewDense(2, 2)
	require.NoError(t, err)
	m.Set(0, 0, 4)
	m.Set(0, 1, 7)
	m.Set(1, 0, 2)
	m.Set(1, 1, 6)

	inv, err := linalg.Inverse(m)
	require.NoError(t, err)

	x, err := m.MulVec([]float64{1, 0})
	require.NoError(t, err)
	back, err := inv.MulVec(x)
	require.NoError(t, err)
	require.InDelta(t, 1, back[0], 1e-9)
	require.InDelta(t, 0, back[1], 1e-9)
}

func TestSolveSingular(t *testing.T) {
	m, err := linalg.NewDense(2, 2)
	require.NoError(t, err)
	// All-zero matrix is singular.
	_, err = linalg.Solve(m, []float64{1, 1})
	require.ErrorIs(t, err, linalg.ErrSingular)
}

func TestMulVecDimensionMismatch(t *testing.T) {
	m, err := linalg.Identity(2)
	require.NoError(t, err)
	_, err = m.MulVec([]float64{1, 2, 3})
	require.ErrorIs(t, err, linalg.ErrDimensionMismatch)
}

func TestNoNaNInSolve(t *testing.T) {
	m, err := linalg.NewDense(3, 3)
	require.NoError(t, err)
	m.Set(0, 0, 1)
	m.Set(1, 1, 1)
	m.Set(2, 2, 1)
	x, err := linalg.Solve(m, []float64{1, 2, 3})
	require.NoError(t, err)
	for _, v := range x {
		require.False(t, math.IsNaN(v))
	}
}
