package conjugate_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/conjugate"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
)

// buildNormalChain constructs priorMu(=0) priorTau(=1e-4) -> mu ~ dnorm ->
// y[i] ~ dnorm(mu, tau=1), observed at i=0..2, tau a fixed constant.
func buildNormalChain(t *testing.T, observations []float64) (*dag.Graph, *arena.Arena, arena.ID) {
	t.Helper()
	g := dag.New()
	a := arena.New(1)

	priorMu := node.NewConstant(arena.ID(0), "priorMu", []int{1}, false)
	require.NoError(t, g.AddNode(priorMu))
	require.NoError(t, a.Register(priorMu.ID(), 1))
	require.NoError(t, a.Write(priorMu.ID(), 0, []float64{0}))

	priorTau := node.NewConstant(arena.ID(1), "priorTau", []int{1}, false)
	require.NoError(t, g.AddNode(priorTau))
	require.NoError(t, a.Register(priorTau.ID(), 1))
	require.NoError(t, a.Write(priorTau.ID(), 0, []float64{1e-4}))

	mu := node.NewStochastic(arena.ID(2), "mu", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, false, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(mu))
	require.NoError(t, a.Register(mu.ID(), 1))
	require.NoError(t, a.Write(mu.ID(), 0, []float64{0}))

	tau := node.NewConstant(arena.ID(3), "tau", []int{1}, false)
	require.NoError(t, g.AddNode(tau))
	require.NoError(t, a.Register(tau.ID(), 1))
	require.NoError(t, a.Write(tau.ID(), 0, []float64{1}))

	nextID := arena.ID(4)
	for _, obs := range observations {
		y := node.NewStochastic(nextID, "y", []int{1}, dist.NewNormal(), []arena.ID{2, 3}, nil, nil, true, []arena.ID{2, 3})
		require.NoError(t, g.AddNode(y))
		require.NoError(t, a.Register(y.ID(), 1))
		require.NoError(t, a.Write(y.ID(), 0, []float64{obs}))
		nextID++
	}

	return g, a, mu.ID()
}

func TestCanSampleNormalAcceptsIdentityLinkChain(t *testing.T) {
	g, a, muID := buildNormalChain(t, []float64{1, 2, 3})
	ok, err := conjugate.CanSampleNormal([]arena.ID{muID}, g, a)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanSampleNormalRejectsObservedTarget(t *testing.T) {
	g, a := dag.New(), arena.New(1)
	p := node.NewConstant(arena.ID(0), "p", []int{1}, false)
	require.NoError(t, g.AddNode(p))
	require.NoError(t, a.Register(p.ID(), 1))
	require.NoError(t, a.Write(p.ID(), 0, []float64{1}))

	x := node.NewStochastic(arena.ID(1), "x", []int{1}, dist.NewNormal(), []arena.ID{0, 0}, nil, nil, true, []arena.ID{0})
	require.NoError(t, g.AddNode(x))
	require.NoError(t, a.Register(x.ID(), 1))
	require.NoError(t, a.Write(x.ID(), 0, []float64{1}))

	ok, err := conjugate.CanSampleNormal([]arena.ID{x.ID()}, g, a)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanSampleNormalRejectsPrecisionDependentOnTarget(t *testing.T) {
	g, a := dag.New(), arena.New(1)
	zero := node.NewConstant(arena.ID(0), "zero", []int{1}, false)
	require.NoError(t, g.AddNode(zero))
	require.NoError(t, a.Register(zero.ID(), 1))
	require.NoError(t, a.Write(zero.ID(), 0, []float64{0}))

	one := node.NewConstant(arena.ID(1), "one", []int{1}, false)
	require.NoError(t, g.AddNode(one))
	require.NoError(t, a.Register(one.ID(), 1))
	require.NoError(t, a.Write(one.ID(), 0, []float64{1}))

	x := node.NewStochastic(arena.ID(2), "x", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, false, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(x))
	require.NoError(t, a.Register(x.ID(), 1))
	require.NoError(t, a.Write(x.ID(), 0, []float64{1}))

	// y ~ dnorm(one, x): x drives the *precision*, which disqualifies it.
	y := node.NewStochastic(arena.ID(3), "y", []int{1}, dist.NewNormal(), []arena.ID{1, 2}, nil, nil, true, []arena.ID{1, 2})
	require.NoError(t, g.AddNode(y))
	require.NoError(t, a.Register(y.ID(), 1))
	require.NoError(t, a.Write(y.ID(), 0, []float64{1}))

	ok, err := conjugate.CanSampleNormal([]arena.ID{x.ID()}, g, a)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConjugateNormalUpdateMatchesClosedForm(t *testing.T) {
	obs := []float64{1, 2, 3}
	g, a, muID := buildNormalChain(t, obs)

	c, err := conjugate.NewConjugateNormal(g, a, []arena.ID{muID}, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, c.Update(rng))

	v, err := a.Read(muID, 0)
	require.NoError(t, err)
	require.Len(t, v, 1)
	require.False(t, math.IsNaN(v[0]))
	require.False(t, math.IsInf(v[0], 0))

	// B = priorTau + n*tau = 1e-4 + 3 = 3.0001; posterior mean close to
	// the sample mean (2) since the prior is nearly flat.
	require.InDelta(t, 2, v[0], 0.5)
}

func TestConjugateNormalIsNeverAdaptive(t *testing.T) {
	g, a, muID := buildNormalChain(t, []float64{1})
	c, err := conjugate.NewConjugateNormal(g, a, []arena.ID{muID}, 0)
	require.NoError(t, err)
	require.False(t, c.IsAdaptive())
	require.True(t, c.CheckAdaptation())
}
