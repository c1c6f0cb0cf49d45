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

// buildDirichletCatTarget builds a single free alpha ~ ddirch(prior)
// vector node with no stochastic children, the shape DirichletCat targets
// once ConjugateDirichlet has already failed to claim it.
func buildDirichletCatTarget(t *testing.T, prior, initial []float64) (*dag.Graph, *arena.Arena, arena.ID) {
	t.Helper()
	g := dag.New()
	a := arena.New(1)

	p := node.NewConstant(arena.ID(0), "prior", []int{len(prior)}, false)
	require.NoError(t, g.AddNode(p))
	require.NoError(t, a.Register(p.ID(), len(prior)))
	require.NoError(t, a.Write(p.ID(), 0, prior))

	alpha := node.NewStochastic(arena.ID(1), "alpha", []int{len(prior)}, dist.NewDirichlet(), []arena.ID{0}, nil, nil, false, []arena.ID{0})
	require.NoError(t, g.AddNode(alpha))
	require.NoError(t, a.Register(alpha.ID(), len(prior)))
	require.NoError(t, a.Write(alpha.ID(), 0, initial))

	return g, a, alpha.ID()
}

func TestCanSampleDirichletCatAcceptsFreeVector(t *testing.T) {
	g, _, alphaID := buildDirichletCatTarget(t, []float64{1, 1, 1}, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	ok, err := metropolis.CanSampleDirichletCat(alphaID, g)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanSampleDirichletCatRejectsObserved(t *testing.T) {
	g := dag.New()
	a := arena.New(1)
	p := node.NewConstant(arena.ID(0), "prior", []int{3}, false)
	require.NoError(t, g.AddNode(p))
	require.NoError(t, a.Register(p.ID(), 3))
	require.NoError(t, a.Write(p.ID(), 0, []float64{1, 1, 1}))
	alpha := node.NewStochastic(arena.ID(1), "alpha", []int{3}, dist.NewDirichlet(), []arena.ID{0}, nil, nil, true, []arena.ID{0})
	require.NoError(t, g.AddNode(alpha))
	require.NoError(t, a.Register(alpha.ID(), 3))
	require.NoError(t, a.Write(alpha.ID(), 0, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}))

	ok, err := metropolis.CanSampleDirichletCat(alpha.ID(), g)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDirichletCatUpdatePreservesSimplexConstraint(t *testing.T) {
	g, a, alphaID := buildDirichletCatTarget(t, []float64{2, 2, 2}, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3})
	dc, err := metropolis.NewDirichletCat(g, a, alphaID, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(13))
	for i := 0; i < 100; i++ {
		require.NoError(t, dc.Update(rng))

		v, err := a.Read(alphaID, 0)
		require.NoError(t, err)
		var sum float64
		for _, x := range v {
			require.GreaterOrEqual(t, x, 0.0)
			sum += x
		}
		require.InDelta(t, 1, sum, 1e-6)
		require.False(t, math.IsNaN(sum))
	}
}
