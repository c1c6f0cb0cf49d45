package linalg

import "fmt"

// LU performs Doolittle LU decomposition on square matrix m, returning L
// (unit lower triangular) and U (upper triangular) such that m = L*U.
//
// Complexity: O(n^3) time, O(n^2) memory.
func LU(m *Dense) (*Dense, *Dense, error) {
	if m.r != m.c {
		return nil, nil, fmt.Errorf("LU: non-square %dx%d: %w", m.r, m.c, ErrDimensionMismatch)
	}
	n := m.r

	L, err := NewDense(n, n)
	if err != nil {
		return nil, nil, fmt.Errorf("LU: %w", err)
	}
	U, err := NewDense(n, n)
	if err != nil {
		return nil, nil, fmt.Errorf("LU: %w", err)
	}
	for i := 0; i < n; i++ {
		L.Set(i, i, 1)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for k := 0; k < i; k++ {
				sum += L.At(i, k) * U.At(k, j)
			}
			U.Set(i, j, m.At(i, j)-sum)
		}
		for j := i + 1; j < n; j++ {
			var sum float64
			for k := 0; k < i; k++ {
				sum += L.At(j, k) * U.At(k, i)
			}
			pivot := U.At(i, i)
			if pivot == 0 {
				return nil, nil, fmt.Errorf("LU: zero pivot at %d: %w", i, ErrSingular)
			}
			L.Set(j, i, (m.At(j, i)-sum)/pivot)
		}
	}

	return L, U, nil
}

// Solve returns x such that m*x = b, via LU decomposition and
// forward/backward substitution.
//
// Complexity: O(n^3) for the decomposition (dominates the O(n^2) solve).
func Solve(m *Dense, b []float64) ([]float64, error) {
	if len(b) != m.r || m.r != m.c {
		return nil, fmt.Errorf("Solve: %w", ErrDimensionMismatch)
	}
	L, U, err := LU(m)
	if err != nil {
		return nil, fmt.Errorf("Solve: %w", err)
	}
	n := m.r
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < i; k++ {
			sum += L.At(i, k) * y[k]
		}
		y[i] = b[i] - sum
	}
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		var sum float64
		for k := i + 1; k < n; k++ {
			sum += U.At(i, k) * x[k]
		}
		pivot := U.At(i, i)
		if pivot == 0 {
			return nil, fmt.Errorf("Solve: zero pivot at %d: %w", i, ErrSingular)
		}
		x[i] = (y[i] - sum) / pivot
	}

	return x, nil
}

// Inverse returns the inverse of square matrix m via repeated Solve calls
// against the identity's columns.
//
// Complexity: O(n^4) naively (n solves of O(n^3) each); acceptable for the
// small per-node precision blocks this package is used on.
func Inverse(m *Dense) (*Dense, error) {
	if m.r != m.c {
		return nil, fmt.Errorf("Inverse: non-square %dx%d: %w", m.r, m.c, ErrDimensionMismatch)
	}
	n := m.r
	inv, err := NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("Inverse: %w", err)
	}
	e := make([]float64, n)
	for col := 0; col < n; col++ {
		for i := range e {
			e[i] = 0
		}
		e[col] = 1
		x, err := Solve(m, e)
		if err != nil {
			return nil, fmt.Errorf("Inverse: %w", err)
		}
		for i := 0; i < n; i++ {
			inv.Set(i, col, x[i])
		}
	}

	return inv, nil
}
