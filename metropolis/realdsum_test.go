package metropolis_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/metropolis"
	"github.com/arnovik/bugsgraph/node"
)

// buildRealDSumChain builds two free x ~ dnorm(0, 1) scalar nodes whose
// sum is constrained by an observed dsum child fixed at target.
func buildRealDSumChain(t *testing.T, x1, x2, target float64) (*dag.Graph, *arena.Arena, []arena.ID) {
	t.Helper()
	g := dag.New()
	a := arena.New(1)

	mean := node.NewConstant(arena.ID(0), "mean", []int{1}, false)
	require.NoError(t, g.AddNode(mean))
	require.NoError(t, a.Register(mean.ID(), 1))
	require.NoError(t, a.Write(mean.ID(), 0, []float64{0}))

	tau := node.NewConstant(arena.ID(1), "tau", []int{1}, false)
	require.NoError(t, g.AddNode(tau))
	require.NoError(t, a.Register(tau.ID(), 1))
	require.NoError(t, a.Write(tau.ID(), 0, []float64{1}))

	n1 := node.NewStochastic(arena.ID(2), "x1", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, false, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(n1))
	require.NoError(t, a.Register(n1.ID(), 1))
	require.NoError(t, a.Write(n1.ID(), 0, []float64{x1}))

	n2 := node.NewStochastic(arena.ID(3), "x2", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, false, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(n2))
	require.NoError(t, a.Register(n2.ID(), 1))
	require.NoError(t, a.Write(n2.ID(), 0, []float64{x2}))

	y := node.NewStochastic(arena.ID(4), "y", []int{1}, dist.NewDSum(), []arena.ID{2, 3}, nil, nil, true, []arena.ID{2, 3})
	require.NoError(t, g.AddNode(y))
	require.NoError(t, a.Register(y.ID(), 1))
	require.NoError(t, a.Write(y.ID(), 0, []float64{target}))

	return g, a, []arena.ID{n1.ID(), n2.ID()}
}

func TestCanSampleRealDSumAcceptsPairedConstraint(t *testing.T) {
	g, a, nodes := buildRealDSumChain(t, 1, 1, 5)
	ok, err := metropolis.CanSampleRealDSum(nodes, g, a)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanSampleRealDSumRejectsSingleNode(t *testing.T) {
	g, a, nodes := buildRealDSumChain(t, 1, 1, 5)
	ok, err := metropolis.CanSampleRealDSum(nodes[:1], g, a)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRealDSumShiftsInitialValuesToSatisfyConstraint(t *testing.T) {
	g, a, nodes := buildRealDSumChain(t, 1, 1, 5)
	_, err := metropolis.NewRealDSum(g, a, nodes, 0, 1)
	require.NoError(t, err)

	v1, err := a.Read(nodes[0], 0)
	require.NoError(t, err)
	v2, err := a.Read(nodes[1], 0)
	require.NoError(t, err)
	require.InDelta(t, 5, v1[0]+v2[0], 1e-9)
}

func TestRealDSumUpdatePreservesSumExactly(t *testing.T) {
	g, a, nodes := buildRealDSumChain(t, 0.5, 4.5, 5)
	ds, err := metropolis.NewRealDSum(g, a, nodes, 0, 1)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		require.NoError(t, ds.Update(rng))

		v1, err := a.Read(nodes[0], 0)
		require.NoError(t, err)
		v2, err := a.Read(nodes[1], 0)
		require.NoError(t, err)
		require.False(t, math.IsNaN(v1[0]))
		require.InDelta(t, 5, v1[0]+v2[0], 1e-8)
	}
}
