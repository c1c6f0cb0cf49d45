package linalg

import (
	"fmt"
	"math"
)

// Cholesky decomposes symmetric positive-definite m into lower-triangular
// L such that m = L*Lᵀ, used by the conjugate Normal/GLM updaters to turn
// a posterior precision matrix into a sampling transform (spec §4.G "the
// posterior is Normal with precision B"; sampling a multivariate Normal
// from its precision matrix needs a square root of B).
//
// Complexity: O(n^3) time, O(n^2) memory, same order as LU.
func Cholesky(m *Dense) (*Dense, error) {
	if m.r != m.c {
		return nil, fmt.Errorf("Cholesky: non-square %dx%d: %w", m.r, m.c, ErrDimensionMismatch)
	}
	n := m.r
	L, err := NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("Cholesky: %w", err)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var sum float64
			for k := 0; k < j; k++ {
				sum += L.At(i, k) * L.At(j, k)
			}
			if i == j {
				diag := m.At(i, i) - sum
				if diag <= 0 {
					return nil, fmt.Errorf("Cholesky: not positive-definite at %d: %w", i, ErrSingular)
				}
				L.Set(i, j, math.Sqrt(diag))
			} else {
				L.Set(i, j, (m.At(i, j)-sum)/L.At(j, j))
			}
		}
	}

	return L, nil
}

// Transpose returns mᵀ.
func (m *Dense) Transpose() *Dense {
	out := &Dense{r: m.c, c: m.r, data: make([]float64, len(m.data))}
	for i := 0; i < m.r; i++ {
		for j := 0; j < m.c; j++ {
			out.Set(j, i, m.At(i, j))
		}
	}

	return out
}

// SolveLowerTriangular solves L*x = b for lower-triangular L via forward
// substitution, faster than the general LU-based Solve for the triangular
// systems Cholesky produces.
func SolveLowerTriangular(L *Dense, b []float64) ([]float64, error) {
	if L.r != L.c || len(b) != L.r {
		return nil, fmt.Errorf("SolveLowerTriangular: %w", ErrDimensionMismatch)
	}
	n := L.r
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < i; k++ {
			sum += L.At(i, k) * x[k]
		}
		pivot := L.At(i, i)
		if pivot == 0 {
			return nil, fmt.Errorf("SolveLowerTriangular: zero pivot at %d: %w", i, ErrSingular)
		}
		x[i] = (b[i] - sum) / pivot
	}

	return x, nil
}

// SolveUpperTriangular solves U*x = b for upper-triangular U via backward
// substitution.
func SolveUpperTriangular(U *Dense, b []float64) ([]float64, error) {
	if U.r != U.c || len(b) != U.r {
		return nil, fmt.Errorf("SolveUpperTriangular: %w", ErrDimensionMismatch)
	}
	n := U.r
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		var sum float64
		for k := i + 1; k < n; k++ {
			sum += U.At(i, k) * x[k]
		}
		pivot := U.At(i, i)
		if pivot == 0 {
			return nil, fmt.Errorf("SolveUpperTriangular: zero pivot at %d: %w", i, ErrSingular)
		}
		x[i] = (b[i] - sum) / pivot
	}

	return x, nil
}
