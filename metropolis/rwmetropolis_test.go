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

// buildScalarNormal constructs a single free x ~ dnorm(mean, tau) node,
// with no stochastic children.
func buildScalarNormal(t *testing.T, mean, tau, initial float64) (*dag.Graph, *arena.Arena, arena.ID) {
	t.Helper()
	g := dag.New()
	a := arena.New(1)

	m := node.NewConstant(arena.ID(0), "mean", []int{1}, false)
	require.NoError(t, g.AddNode(m))
	require.NoError(t, a.Register(m.ID(), 1))
	require.NoError(t, a.Write(m.ID(), 0, []float64{mean}))

	p := node.NewConstant(arena.ID(1), "tau", []int{1}, false)
	require.NoError(t, g.AddNode(p))
	require.NoError(t, a.Register(p.ID(), 1))
	require.NoError(t, a.Write(p.ID(), 0, []float64{tau}))

	x := node.NewStochastic(arena.ID(2), "x", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, false, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(x))
	require.NoError(t, a.Register(x.ID(), 1))
	require.NoError(t, a.Write(x.ID(), 0, []float64{initial}))

	return g, a, x.ID()
}

func TestCanSampleRWMetropolisAcceptsFreeNode(t *testing.T) {
	g, _, xID := buildScalarNormal(t, 0, 1, 0)
	ok, err := metropolis.CanSampleRWMetropolis(xID, g)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanSampleRWMetropolisRejectsObserved(t *testing.T) {
	g := dag.New()
	a := arena.New(1)
	m := node.NewConstant(arena.ID(0), "mean", []int{1}, false)
	require.NoError(t, g.AddNode(m))
	require.NoError(t, a.Register(m.ID(), 1))
	require.NoError(t, a.Write(m.ID(), 0, []float64{0}))
	p := node.NewConstant(arena.ID(1), "tau", []int{1}, false)
	require.NoError(t, g.AddNode(p))
	require.NoError(t, a.Register(p.ID(), 1))
	require.NoError(t, a.Write(p.ID(), 0, []float64{1}))
	y := node.NewStochastic(arena.ID(2), "y", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, true, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(y))
	require.NoError(t, a.Register(y.ID(), 1))
	require.NoError(t, a.Write(y.ID(), 0, []float64{0}))

	ok, err := metropolis.CanSampleRWMetropolis(y.ID(), g)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanSampleRWMetropolisRejectsDiscreteValued(t *testing.T) {
	g := dag.New()
	a := arena.New(1)
	p := node.NewConstant(arena.ID(0), "p", []int{3}, false)
	require.NoError(t, g.AddNode(p))
	require.NoError(t, a.Register(p.ID(), 3))
	require.NoError(t, a.Write(p.ID(), 0, []float64{1, 1, 1}))

	z := node.NewStochastic(arena.ID(1), "z", []int{1}, dist.NewCategorical(), []arena.ID{0}, nil, nil, false, []arena.ID{0})
	require.NoError(t, g.AddNode(z))
	require.NoError(t, a.Register(z.ID(), 1))
	require.NoError(t, a.Write(z.ID(), 0, []float64{1}))

	ok, err := metropolis.CanSampleRWMetropolis(z.ID(), g)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRWMetropolisUpdateLeavesFiniteValue(t *testing.T) {
	g, a, xID := buildScalarNormal(t, 0, 1, 0)
	rw, err := metropolis.NewRWMetropolis(g, a, xID, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		require.NoError(t, rw.Update(rng))
	}

	v, err := a.Read(xID, 0)
	require.NoError(t, err)
	require.Len(t, v, 1)
	require.False(t, math.IsNaN(v[0]))
	require.False(t, math.IsInf(v[0], 0))
}

func TestRWMetropolisAdaptationConverges(t *testing.T) {
	g, a, xID := buildScalarNormal(t, 0, 1, 0)
	rw, err := metropolis.NewRWMetropolis(g, a, xID, 0)
	require.NoError(t, err)
	require.True(t, rw.IsAdaptive())

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5000 && !rw.CheckAdaptation(); i++ {
		require.NoError(t, rw.Update(rng))
	}
	require.True(t, rw.CheckAdaptation())

	rw.AdaptOff()
	require.False(t, rw.IsAdaptive())
}
