// Package sarray provides SArray, the numeric array type used to pass data,
// initial values, and monitor dumps across the runtime boundary (spec §6).
//
// SArray bundles a shape vector, a flat row-major value slice, and optional
// per-dimension names, the same flat-slice-plus-shape discipline the teacher
// library uses for matrix.Dense.
package sarray

import (
	"errors"
	"fmt"
)

// ErrInvalidShape indicates a shape vector with a non-positive dimension.
var ErrInvalidShape = errors.New("sarray: shape must be all positive")

// ErrValueLengthMismatch indicates a value slice whose length does not equal
// the product of the shape.
var ErrValueLengthMismatch = errors.New("sarray: value length does not match shape product")

// ErrDimNamesLengthMismatch indicates a DimNames slice of the wrong length.
var ErrDimNamesLengthMismatch = errors.New("sarray: dim names length does not match shape")

// SArray is a flat numeric array with an explicit shape and optional
// per-dimension names (e.g. "iteration", "chain").
type SArray struct {
	shape    []int
	value    []float64
	dimNames []string
}

// New allocates a zero-valued SArray with the given shape.
// Complexity: O(prod(shape)).
func New(shape []int) (*SArray, error) {
	n, err := product(shape)
	if err != nil {
		return nil, err
	}

	return &SArray{shape: append([]int(nil), shape...), value: make([]float64, n)}, nil
}

// NewFromValues builds an SArray from an explicit shape and value slice.
// The value slice is not copied; callers must not mutate it afterward.
func NewFromValues(shape []int, value []float64) (*SArray, error) {
	n, err := product(shape)
	if err != nil {
		return nil, err
	}
	if len(value) != n {
		return nil, fmt.Errorf("sarray: NewFromValues: %w (got %d, want %d)", ErrValueLengthMismatch, len(value), n)
	}

	return &SArray{shape: append([]int(nil), shape...), value: value}, nil
}

func product(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("sarray: %w: empty shape", ErrInvalidShape)
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return 0, fmt.Errorf("sarray: %w: dimension %d", ErrInvalidShape, d)
		}
		n *= d
	}

	return n, nil
}

// Shape returns a copy of the shape vector.
func (a *SArray) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the number of scalar elements (product of the shape).
func (a *SArray) Len() int { return len(a.value) }

// Value returns the flat backing slice. Callers must not retain it beyond
// the SArray's lifetime if they intend to mutate the array afterward.
func (a *SArray) Value() []float64 { return a.value }

// SetValue overwrites the flat backing slice. The length must match Len().
func (a *SArray) SetValue(v []float64) error {
	if len(v) != len(a.value) {
		return fmt.Errorf("sarray: SetValue: %w (got %d, want %d)", ErrValueLengthMismatch, len(v), len(a.value))
	}
	copy(a.value, v)

	return nil
}

// DimNames returns the per-dimension names, or nil if unset.
func (a *SArray) DimNames() []string { return append([]string(nil), a.dimNames...) }

// SetDimNames attaches one name per dimension of the shape.
func (a *SArray) SetDimNames(names []string) error {
	if len(names) != len(a.shape) {
		return fmt.Errorf("sarray: SetDimNames: %w (got %d, want %d)", ErrDimNamesLengthMismatch, len(names), len(a.shape))
	}
	a.dimNames = append([]string(nil), names...)

	return nil
}

// At returns the element at the given multi-index (row-major), or an error
// if idx is out of range for the shape.
func (a *SArray) At(idx ...int) (float64, error) {
	off, err := a.offset(idx)
	if err != nil {
		return 0, err
	}

	return a.value[off], nil
}

// Set writes the element at the given multi-index.
func (a *SArray) Set(v float64, idx ...int) error {
	off, err := a.offset(idx)
	if err != nil {
		return err
	}
	a.value[off] = v

	return nil
}

func (a *SArray) offset(idx []int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("sarray: index arity %d does not match shape arity %d", len(idx), len(a.shape))
	}
	off := 0
	for i, d := range idx {
		if d < 0 || d >= a.shape[i] {
			return 0, fmt.Errorf("sarray: index %d out of range [0,%d) at dimension %d", d, a.shape[i], i)
		}
		off = off*a.shape[i] + d
	}

	return off, nil
}
