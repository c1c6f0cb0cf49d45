package linalg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/linalg"
)

func TestCholeskyReconstructsMatrix(t *testing.T) {
	m, err := linalg.NewDense(2, 2)
	require.NoError(t, err)
	m.Set(0, 0, 4)
	m.Set(0, 1, 2)
	m.Set(1, 0, 2)
	m.Set(1, 1, 3)

	L, err := linalg.Cholesky(m)
	require.NoError(t, err)
	LT := L.Transpose()

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			var sum float64
			for k := 0; k < 2; k++ {
				sum += L.At(i, k) * LT.At(k, j)
			}
			require.InDelta(t, m.At(i, j), sum, 1e-9)
		}
	}
}

func TestCholeskyRejectsNonPositiveDefinite(t *testing.T) {
	m, err := linalg.NewDense(2, 2)
	require.NoError(t, err)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 2)
	m.Set(1, 1, 1) // not PD: determinant negative

	_, err = linalg.Cholesky(m)
	require.ErrorIs(t, err, linalg.ErrSingular)
}

func TestSolveTriangularRoundTrip(t *testing.T) {
	L, err := linalg.NewDense(3, 3)
	require.NoError(t, err)
	L.Set(0, 0, 2)
	L.Set(1, 0, 1)
	L.Set(1, 1, 3)
	L.Set(2, 0, 4)
	L.Set(2, 1, 5)
	L.Set(2, 2, 6)

	b := []float64{2, 10, 32}
	x, err := linalg.SolveLowerTriangular(L, b)
	require.NoError(t, err)
	got, err := L.MulVec(x)
	require.NoError(t, err)
	require.InDeltaSlice(t, b, got, 1e-9)

	U := L.Transpose()
	y, err := linalg.SolveUpperTriangular(U, b)
	require.NoError(t, err)
	got2, err := U.MulVec(y)
	require.NoError(t, err)
	require.InDeltaSlice(t, b, got2, 1e-9)
}
