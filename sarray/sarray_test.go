package sarray_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/sarray"
)

func TestNewAndAt(t *testing.T) {
	a, err := sarray.New([]int{2, 3})
	require.NoError(t, err)
	require.Equal(t, 6, a.Len())

	require.NoError(t, a.Set(4.5, 1, 2))
	v, err := a.At(1, 2)
	require.NoError(t, err)
	require.Equal(t, 4.5, v)
}

func TestNewRejectsBadShape(t *testing.T) {
	_, err := sarray.New([]int{2, 0})
	require.ErrorIs(t, err, sarray.ErrInvalidShape)
}

func TestNewFromValuesLengthMismatch(t *testing.T) {
	_, err := sarray.NewFromValues([]int{2, 2}, []float64{1, 2, 3})
	require.ErrorIs(t, err, sarray.ErrValueLengthMismatch)
}

func TestDimNames(t *testing.T) {
	a, err := sarray.New([]int{5})
	require.NoError(t, err)
	require.NoError(t, a.SetDimNames([]string{"iteration"}))
	require.Equal(t, []string{"iteration"}, a.DimNames())

	err = a.SetDimNames([]string{"a", "b"})
	require.ErrorIs(t, err, sarray.ErrDimNamesLengthMismatch)
}

func TestAtOutOfRange(t *testing.T) {
	a, err := sarray.New([]int{2, 2})
	require.NoError(t, err)
	_, err = a.At(2, 0)
	require.Error(t, err)
}
