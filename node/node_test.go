package node_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
)

// fakeEnv is a minimal Evaluator backed directly by an Arena plus a map of
// stochastic nodes, enough to exercise each Kind's DeterministicSample and
// CheckParentValues without the full dag/view machinery.
type fakeEnv struct {
	a        *arena.Arena
	stoch    map[arena.ID]*node.Stochastic
	chainIdx int
}

func (e *fakeEnv) Value(id arena.ID, chain int) ([]float64, error) { return e.a.Read(id, chain) }

func (e *fakeEnv) LogDensity(id arena.ID, chain int) (float64, error) {
	s := e.stoch[id]
	v, err := e.a.Read(id, chain)
	if err != nil {
		return 0, err
	}

	return s.LogDensity(v, chain, e)
}

func TestConstantIsNoOp(t *testing.T) {
	a := arena.New(1)
	require.NoError(t, a.Register(arena.ID(0), 1))
	require.NoError(t, a.Write(arena.ID(0), 0, []float64{7}))

	c := node.NewConstant(arena.ID(0), "k", []int{1}, false)
	env := &fakeEnv{a: a, stoch: map[arena.ID]*node.Stochastic{}}
	require.NoError(t, c.DeterministicSample(a, 0, env))
	v, err := a.Read(arena.ID(0), 0)
	require.NoError(t, err)
	require.Equal(t, []float64{7}, v)
}

func TestLogicalAddEvaluates(t *testing.T) {
	a := arena.New(1)
	require.NoError(t, a.Register(arena.ID(0), 1)) // x
	require.NoError(t, a.Register(arena.ID(1), 1)) // y
	require.NoError(t, a.Register(arena.ID(2), 1)) // z = x + y
	require.NoError(t, a.Write(arena.ID(0), 0, []float64{2}))
	require.NoError(t, a.Write(arena.ID(1), 0, []float64{3}))

	z := node.NewLogical(arena.ID(2), "z", []int{1}, dist.Add{}, []arena.ID{0, 1})
	env := &fakeEnv{a: a, stoch: map[arena.ID]*node.Stochastic{}}
	require.NoError(t, z.DeterministicSample(a, 0, env))
	v, err := a.Read(arena.ID(2), 0)
	require.NoError(t, err)
	require.Equal(t, []float64{5}, v)
}

func TestLogicalIsLinearAbsorbsFalse(t *testing.T) {
	z := node.NewLogical(arena.ID(2), "z", []int{1}, dist.Multiply{}, []arena.ID{0, 1})
	require.False(t, z.IsLinear([]node.Mark{node.TrueMark, node.FalseMark}, nil))
	require.True(t, z.IsLinear([]node.Mark{node.TrueMark, node.NullMark}, nil))
}

func TestLinkLogRoundTrip(t *testing.T) {
	a := arena.New(1)
	require.NoError(t, a.Register(arena.ID(0), 1)) // eta
	require.NoError(t, a.Register(arena.ID(1), 1)) // mu
	require.NoError(t, a.Write(arena.ID(0), 0, []float64{1.5}))

	l := node.NewLink(arena.ID(1), "mu", []int{1}, dist.LogLink{}, arena.ID(0))
	env := &fakeEnv{a: a, stoch: map[arena.ID]*node.Stochastic{}}
	require.NoError(t, l.DeterministicSample(a, 0, env))
	v, err := a.Read(arena.ID(1), 0)
	require.NoError(t, err)
	require.InDelta(t, 1.5, l.EtaFromMu(v[0]), 1e-9)
}

func TestAggregateGathersSegments(t *testing.T) {
	a := arena.New(1)
	require.NoError(t, a.Register(arena.ID(0), 3)) // x[1:3]
	require.NoError(t, a.Register(arena.ID(1), 1)) // y
	require.NoError(t, a.Register(arena.ID(2), 4)) // c(x, y)
	require.NoError(t, a.Write(arena.ID(0), 0, []float64{1, 2, 3}))
	require.NoError(t, a.Write(arena.ID(1), 0, []float64{9}))

	ag := node.NewAggregate(arena.ID(2), "v", []int{4}, []node.AggregateSegment{
		{Parent: 0, ParentFrom: 0, Length: 3, DestOffset: 0},
		{Parent: 1, ParentFrom: 0, Length: 1, DestOffset: 3},
	}, []arena.ID{0, 1})
	env := &fakeEnv{a: a, stoch: map[arena.ID]*node.Stochastic{}}
	require.NoError(t, ag.DeterministicSample(a, 0, env))
	v, err := a.Read(arena.ID(2), 0)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3, 9}, v)
}

func TestAggregateIsLinearSingleParentOnly(t *testing.T) {
	ag := node.NewAggregate(arena.ID(2), "v", []int{4}, nil, []arena.ID{0, 1})
	require.True(t, ag.IsLinear([]node.Mark{node.TrueMark, node.NullMark}, nil))
	require.False(t, ag.IsLinear([]node.Mark{node.TrueMark, node.TrueMark}, nil))
}

func TestMixtureSelectsChoice(t *testing.T) {
	a := arena.New(1)
	require.NoError(t, a.Register(arena.ID(0), 1)) // index k
	require.NoError(t, a.Register(arena.ID(1), 1)) // choice 1
	require.NoError(t, a.Register(arena.ID(2), 1)) // choice 2
	require.NoError(t, a.Register(arena.ID(3), 1)) // mixture output
	require.NoError(t, a.Write(arena.ID(0), 0, []float64{2}))
	require.NoError(t, a.Write(arena.ID(1), 0, []float64{10}))
	require.NoError(t, a.Write(arena.ID(2), 0, []float64{20}))

	m := node.NewMixture(arena.ID(3), "y", []int{1}, []arena.ID{0}, []arena.ID{1, 2})
	env := &fakeEnv{a: a, stoch: map[arena.ID]*node.Stochastic{}}
	require.NoError(t, m.DeterministicSample(a, 0, env))
	v, err := a.Read(arena.ID(3), 0)
	require.NoError(t, err)
	require.Equal(t, []float64{20}, v)
}

func TestMixtureIsLinearFailsWhenIndexInPlay(t *testing.T) {
	m := node.NewMixture(arena.ID(3), "y", []int{1}, []arena.ID{0}, []arena.ID{1, 2})
	require.False(t, m.IsLinear([]node.Mark{node.TrueMark, node.NullMark, node.NullMark}, nil))
	require.True(t, m.IsLinear([]node.Mark{node.NullMark, node.TrueMark, node.NullMark}, nil))
}

func TestDevianceSumsLogDensity(t *testing.T) {
	a := arena.New(1)
	require.NoError(t, a.Register(arena.ID(0), 1)) // mu
	require.NoError(t, a.Register(arena.ID(1), 1)) // tau
	require.NoError(t, a.Register(arena.ID(2), 1)) // y (stochastic)
	require.NoError(t, a.Register(arena.ID(3), 1)) // deviance
	require.NoError(t, a.Write(arena.ID(0), 0, []float64{0}))
	require.NoError(t, a.Write(arena.ID(1), 0, []float64{1}))
	require.NoError(t, a.Write(arena.ID(2), 0, []float64{0}))

	y := node.NewStochastic(arena.ID(2), "y", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, true, []arena.ID{0, 1})
	env := &fakeEnv{a: a, stoch: map[arena.ID]*node.Stochastic{2: y}}

	dv := node.NewDeviance(arena.ID(3), "dev", []arena.ID{2})
	require.NoError(t, dv.DeterministicSample(a, 0, env))
	v, err := a.Read(arena.ID(3), 0)
	require.NoError(t, err)
	// dnorm(0, 1) at x=0: logDensity = -0.5*log(2*pi) ≈ -0.9189385
	require.InDelta(t, 1.837877, v[0], 1e-4)
}

func TestStochasticRandDeterministicWithSeed(t *testing.T) {
	a := arena.New(1)
	require.NoError(t, a.Register(arena.ID(0), 1))
	require.NoError(t, a.Register(arena.ID(1), 1))
	require.NoError(t, a.Write(arena.ID(0), 0, []float64{0}))
	require.NoError(t, a.Write(arena.ID(1), 0, []float64{1}))

	y := node.NewStochastic(arena.ID(2), "y", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, false, []arena.ID{0, 1})
	env := &fakeEnv{a: a, stoch: map[arena.ID]*node.Stochastic{}}
	rng := rand.New(rand.NewSource(42))
	v1, err := y.Rand(rng, 0, env)
	require.NoError(t, err)
	rng2 := rand.New(rand.NewSource(42))
	v2, err := y.Rand(rng2, 0, env)
	require.NoError(t, err)
	require.Equal(t, v1, v2)
}
