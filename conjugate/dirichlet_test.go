package conjugate_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/conjugate"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
)

// buildDirichletCategorical constructs alpha ~ ddirch(prior) (dim 3) ->
// z ~ dcat(alpha), observed at the 1-based value obs.
func buildDirichletCategorical(t *testing.T, prior []float64, obs float64) (*dag.Graph, *arena.Arena, arena.ID) {
	t.Helper()
	g := dag.New()
	a := arena.New(1)

	priorAlpha := node.NewConstant(arena.ID(0), "priorAlpha", []int{len(prior)}, false)
	require.NoError(t, g.AddNode(priorAlpha))
	require.NoError(t, a.Register(priorAlpha.ID(), len(prior)))
	require.NoError(t, a.Write(priorAlpha.ID(), 0, prior))

	alpha := node.NewStochastic(arena.ID(1), "alpha", []int{len(prior)}, dist.NewDirichlet(), []arena.ID{0}, nil, nil, false, []arena.ID{0})
	require.NoError(t, g.AddNode(alpha))
	require.NoError(t, a.Register(alpha.ID(), len(prior)))
	require.NoError(t, a.Write(alpha.ID(), 0, prior))

	z := node.NewStochastic(arena.ID(2), "z", []int{1}, dist.NewCategorical(), []arena.ID{1}, nil, nil, true, []arena.ID{1})
	require.NoError(t, g.AddNode(z))
	require.NoError(t, a.Register(z.ID(), 1))
	require.NoError(t, a.Write(z.ID(), 0, []float64{obs}))

	return g, a, alpha.ID()
}

func TestCanSampleDirichletAcceptsDirectCategoricalChild(t *testing.T) {
	g, a, alphaID := buildDirichletCategorical(t, []float64{1, 1, 1}, 2)
	ok, err := conjugate.CanSampleDirichlet(alphaID, g, a)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCanSampleDirichletRejectsNonCategoricalChild(t *testing.T) {
	g, a := dag.New(), arena.New(1)
	priorAlpha := node.NewConstant(arena.ID(0), "priorAlpha", []int{2}, false)
	require.NoError(t, g.AddNode(priorAlpha))
	require.NoError(t, a.Register(priorAlpha.ID(), 2))
	require.NoError(t, a.Write(priorAlpha.ID(), 0, []float64{1, 1}))

	alpha := node.NewStochastic(arena.ID(1), "alpha", []int{2}, dist.NewDirichlet(), []arena.ID{0}, nil, nil, false, []arena.ID{0})
	require.NoError(t, g.AddNode(alpha))
	require.NoError(t, a.Register(alpha.ID(), 2))
	require.NoError(t, a.Write(alpha.ID(), 0, []float64{1, 1}))

	// y ~ dnorm(alpha[0]-ish, ...) is not a categorical/multinomial child.
	tau := node.NewConstant(arena.ID(2), "tau", []int{1}, false)
	require.NoError(t, g.AddNode(tau))
	require.NoError(t, a.Register(tau.ID(), 1))
	require.NoError(t, a.Write(tau.ID(), 0, []float64{1}))

	y := node.NewStochastic(arena.ID(3), "y", []int{2}, dist.NewNormal(), []arena.ID{1, 2}, nil, nil, true, []arena.ID{1, 2})
	require.NoError(t, g.AddNode(y))
	require.NoError(t, a.Register(y.ID(), 2))
	require.NoError(t, a.Write(y.ID(), 0, []float64{0, 0}))

	ok, err := conjugate.CanSampleDirichlet(alpha.ID(), g, a)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConjugateDirichletUpdateAccumulatesCategoricalCount(t *testing.T) {
	g, a, alphaID := buildDirichletCategorical(t, []float64{1, 1, 1}, 2) // 1-based: coordinate 1
	c, err := conjugate.NewConjugateDirichlet(g, a, alphaID, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	require.NoError(t, c.Update(rng))

	v, err := a.Read(alphaID, 0)
	require.NoError(t, err)
	require.Len(t, v, 3)
	var sum float64
	for _, x := range v {
		sum += x
	}
	require.InDelta(t, 1, sum, 1e-9) // Dirichlet sample always sums to one
}

func TestConjugateDirichletUpdateRejectsStructuralZero(t *testing.T) {
	// prior[1] == 0 is a structural zero; the observation lands exactly
	// on it (1-based obs=2 -> 0-based coordinate 1).
	g, a, alphaID := buildDirichletCategorical(t, []float64{1, 0, 1}, 2)
	c, err := conjugate.NewConjugateDirichlet(g, a, alphaID, 0)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	err = c.Update(rng)
	require.ErrorIs(t, err, conjugate.ErrStructuralZeroViolated)
}

func TestCanSampleDirichletRejectsMultiChildWithDependentTrialCount(t *testing.T) {
	g, a := dag.New(), arena.New(1)
	priorAlpha := node.NewConstant(arena.ID(0), "priorAlpha", []int{3}, false)
	require.NoError(t, g.AddNode(priorAlpha))
	require.NoError(t, a.Register(priorAlpha.ID(), 3))
	require.NoError(t, a.Write(priorAlpha.ID(), 0, []float64{1, 1, 1}))

	alpha := node.NewStochastic(arena.ID(1), "alpha", []int{3}, dist.NewDirichlet(), []arena.ID{0}, nil, nil, false, []arena.ID{0})
	require.NoError(t, g.AddNode(alpha))
	require.NoError(t, a.Register(alpha.ID(), 3))
	require.NoError(t, a.Write(alpha.ID(), 0, []float64{1, 1, 1}))

	// z's trial count is, contrived but sufficient to exercise the check,
	// the target itself — so it is trivially dependent on alpha. A real
	// model would instead compute N via some deterministic function of
	// alpha; either way CanSampleDirichlet must refuse the child.
	z := node.NewStochastic(arena.ID(2), "z", []int{3}, dist.NewMultinomial(), []arena.ID{alpha.ID(), alpha.ID()}, nil, nil, true, []arena.ID{alpha.ID()})
	require.NoError(t, g.AddNode(z))
	require.NoError(t, a.Register(z.ID(), 3))
	require.NoError(t, a.Write(z.ID(), 0, []float64{1, 1, 1}))

	ok, err := conjugate.CanSampleDirichlet(alpha.ID(), g, a)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConjugateDirichletIsNeverAdaptive(t *testing.T) {
	g, a, alphaID := buildDirichletCategorical(t, []float64{1, 1, 1}, 1)
	c, err := conjugate.NewConjugateDirichlet(g, a, alphaID, 0)
	require.NoError(t, err)
	require.False(t, c.IsAdaptive())
	require.True(t, c.CheckAdaptation())
}
