package monitor_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/monitor"
	"github.com/arnovik/bugsgraph/node"
)

// buildObservedNormal constructs mean/tau constants and an observed
// y ~ dnorm(mean, tau) node, with y's value set per chain via values.
func buildObservedNormal(t *testing.T, nchain int, mean, tau float64, values []float64) (*dag.Graph, *arena.Arena, arena.ID) {
	t.Helper()
	require.Len(t, values, nchain)
	g := dag.New()
	a := arena.New(nchain)

	m := node.NewConstant(arena.ID(0), "mean", []int{1}, false)
	require.NoError(t, g.AddNode(m))
	require.NoError(t, a.Register(m.ID(), 1))
	p := node.NewConstant(arena.ID(1), "tau", []int{1}, false)
	require.NoError(t, g.AddNode(p))
	require.NoError(t, a.Register(p.ID(), 1))

	y := node.NewStochastic(arena.ID(2), "y", []int{1}, dist.NewNormal(), []arena.ID{0, 1}, nil, nil, true, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(y))
	require.NoError(t, a.Register(y.ID(), 1))

	for c := 0; c < nchain; c++ {
		require.NoError(t, a.Write(m.ID(), c, []float64{mean}))
		require.NoError(t, a.Write(p.ID(), c, []float64{tau}))
		require.NoError(t, a.Write(y.ID(), c, []float64{values[c]}))
	}

	return g, a, y.ID()
}

func TestDensityPoolMeanAccumulatesRunningMean(t *testing.T) {
	g, a, yID := buildObservedNormal(t, 2, 0, 1, []float64{0, 0})
	m, err := monitor.NewDensityPoolMean(g, []arena.ID{yID}, monitor.LogDensity)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Update(g, a))
	}
	require.Equal(t, []int{1}, m.Dim())
	require.True(t, m.PoolChains())
	require.True(t, m.PoolIterations())

	dump, err := m.Dump()
	require.NoError(t, err)
	require.Equal(t, 1, dump.Len())
}

func TestDensityPoolMeanRejectsUnknownKind(t *testing.T) {
	g, _, yID := buildObservedNormal(t, 1, 0, 1, []float64{0})
	_, err := monitor.NewDensityPoolMean(g, []arena.ID{yID}, monitor.Kind(99))
	require.ErrorIs(t, err, monitor.ErrUnknownKind)
}

func TestPDMonitorRequiresAtLeastTwoChains(t *testing.T) {
	g, a, yID := buildObservedNormal(t, 1, 0, 1, []float64{0})
	_, err := monitor.NewPDMonitor(g, a, []arena.ID{yID})
	require.ErrorIs(t, err, monitor.ErrTooFewChains)
}

func TestPDMonitorTraceGrowsOneValuePerIteration(t *testing.T) {
	g, a, yID := buildObservedNormal(t, 2, 0, 1, []float64{-1, 1})
	m, err := monitor.NewPDMonitor(g, a, []arena.ID{yID})
	require.NoError(t, err)
	m.Reserve(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Update(g, a))
	}
	require.Equal(t, []int{3}, m.Dim())
	require.Len(t, m.Value(0), 3)

	dump, err := m.Dump()
	require.NoError(t, err)
	require.Equal(t, []int{3}, dump.Shape())
	require.Equal(t, []string{"iteration"}, dump.DimNames())
}

func TestPDMonitorIdenticalChainsProduceZeroDivergence(t *testing.T) {
	g, a, yID := buildObservedNormal(t, 2, 0, 1, []float64{0.5, 0.5})
	m, err := monitor.NewPDMonitor(g, a, []arena.ID{yID})
	require.NoError(t, err)
	require.NoError(t, m.Update(g, a))
	require.InDelta(t, 0, m.Value(0)[0], 1e-9)
}

func TestKLPDMonitorAcceptsNormalAndMatchesZeroWhenChainsAgree(t *testing.T) {
	g, a, yID := buildObservedNormal(t, 2, 0, 1, []float64{0, 0})
	m, err := monitor.NewKLPDMonitor(g, a, []arena.ID{yID})
	require.NoError(t, err)
	require.NoError(t, m.Update(g, a))
	require.InDelta(t, 0, m.Value(0)[0], 1e-9)
}

func TestKLPDMonitorRejectsUnsupportedDistribution(t *testing.T) {
	g := dag.New()
	a := arena.New(2)
	shape := node.NewConstant(arena.ID(0), "shape", []int{1}, false)
	require.NoError(t, g.AddNode(shape))
	require.NoError(t, a.Register(shape.ID(), 1))
	rate := node.NewConstant(arena.ID(1), "rate", []int{1}, false)
	require.NoError(t, g.AddNode(rate))
	require.NoError(t, a.Register(rate.ID(), 1))
	y := node.NewStochastic(arena.ID(2), "y", []int{1}, dist.NewGamma(), []arena.ID{0, 1}, nil, nil, true, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(y))
	require.NoError(t, a.Register(y.ID(), 1))
	for c := 0; c < 2; c++ {
		require.NoError(t, a.Write(shape.ID(), c, []float64{2}))
		require.NoError(t, a.Write(rate.ID(), c, []float64{1}))
		require.NoError(t, a.Write(y.ID(), c, []float64{1}))
	}

	_, err := monitor.NewKLPDMonitor(g, a, []arena.ID{y.ID()})
	require.Error(t, err)
}

func TestPoptMonitorAccumulatesOneValuePerIteration(t *testing.T) {
	g, a, yID := buildObservedNormal(t, 2, 0, 1, []float64{0, 0})
	rngs := []*rand.Rand{rand.New(rand.NewSource(1)), rand.New(rand.NewSource(2))}
	m, err := monitor.NewPoptMonitor(g, a, []arena.ID{yID}, rngs, 20)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, m.Update(g, a))
	}
	require.Equal(t, []int{4}, m.Dim())
	for _, v := range m.Value(0) {
		require.Greater(t, v, 0.0)
	}
}

func TestPoptMonitorRequiresOneRNGPerChain(t *testing.T) {
	g, a, yID := buildObservedNormal(t, 2, 0, 1, []float64{0, 0})
	_, err := monitor.NewPoptMonitor(g, a, []arena.ID{yID}, []*rand.Rand{rand.New(rand.NewSource(1))}, 5)
	require.Error(t, err)
}
