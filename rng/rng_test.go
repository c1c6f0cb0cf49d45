package rng_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/rng"
)

func TestChainsDeterministic(t *testing.T) {
	a := rng.Chains(42, 4)
	b := rng.Chains(42, 4)
	require.Len(t, a, 4)
	for i := range a {
		require.Equal(t, a[i].Int63(), b[i].Int63())
	}
}

func TestChainsIndependent(t *testing.T) {
	chains := rng.Chains(7, 3)
	x := chains[0].Int63()
	y := chains[1].Int63()
	z := chains[2].Int63()
	require.NotEqual(t, x, y)
	require.NotEqual(t, y, z)
}

func TestChainsZeroSeedIsStable(t *testing.T) {
	a := rng.Chains(0, 2)
	b := rng.Chains(0, 2)
	require.Equal(t, a[0].Int63(), b[0].Int63())
}

func TestChainsNonPositiveCount(t *testing.T) {
	require.Nil(t, rng.Chains(1, 0))
}
