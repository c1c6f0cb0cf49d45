package dag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
)

// buildChain constructs x0 (stochastic) -> mu = alpha + beta*x0 (logical),
// returning the graph and the node IDs involved.
func buildChain(t *testing.T) (*dag.Graph, arena.ID, arena.ID, arena.ID, arena.ID) {
	t.Helper()
	g := dag.New()

	alpha := node.NewConstant(arena.ID(0), "alpha", []int{1}, false)
	require.NoError(t, g.AddNode(alpha))
	beta := node.NewConstant(arena.ID(1), "beta", []int{1}, false)
	require.NoError(t, g.AddNode(beta))
	tau := node.NewConstant(arena.ID(2), "tau", []int{1}, false)
	require.NoError(t, g.AddNode(tau))

	x0 := node.NewStochastic(arena.ID(3), "x0", []int{1}, dist.NewNormal(), []arena.ID{0, 2}, nil, nil, false, []arena.ID{0, 2})
	require.NoError(t, g.AddNode(x0))

	scaled := node.NewLogical(arena.ID(4), "scaled", []int{1}, dist.Multiply{}, []arena.ID{1, 3})
	require.NoError(t, g.AddNode(scaled))

	mu := node.NewLogical(arena.ID(5), "mu", []int{1}, dist.Add{}, []arena.ID{0, 4})
	require.NoError(t, g.AddNode(mu))

	return g, arena.ID(3), arena.ID(4), arena.ID(5), arena.ID(1)
}

func TestTopologicalOrderRespectsParentBeforeChild(t *testing.T) {
	g, x0, scaled, mu, _ := buildChain(t)
	order, err := g.TopologicalOrder()
	require.NoError(t, err)

	pos := make(map[arena.ID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	require.Less(t, pos[x0], pos[scaled])
	require.Less(t, pos[scaled], pos[mu])
}

func TestAddNodeRejectsUnknownParent(t *testing.T) {
	g := dag.New()
	bad := node.NewLogical(arena.ID(9), "bad", []int{1}, dist.Add{}, []arena.ID{100, 101})
	err := g.AddNode(bad)
	require.ErrorIs(t, err, dag.ErrUnknownParent)
}

func TestAddNodeRejectsDuplicateID(t *testing.T) {
	g := dag.New()
	c := node.NewConstant(arena.ID(0), "c", []int{1}, false)
	require.NoError(t, g.AddNode(c))
	err := g.AddNode(c)
	require.ErrorIs(t, err, dag.ErrAlreadyRegistered)
}

func TestGraphMarksLinearChainIsLinear(t *testing.T) {
	g, x0, _, mu, _ := buildChain(t)
	gm := dag.NewGraphMarks(g)
	gm.Seed(x0)
	require.NoError(t, gm.Propagate(dag.LinearPredicate))
	require.Equal(t, node.TrueMark, gm.Mark(mu))
}

func TestGraphMarksScaleBreaksWhenBothFactorsInPlay(t *testing.T) {
	g := dag.New()
	x0 := node.NewStochastic(arena.ID(0), "x0", []int{1}, dist.NewNormal(), nil, nil, nil, false, nil)
	require.NoError(t, g.AddNode(x0))
	y0 := node.NewStochastic(arena.ID(1), "y0", []int{1}, dist.NewNormal(), nil, nil, nil, false, nil)
	require.NoError(t, g.AddNode(y0))
	prod := node.NewLogical(arena.ID(2), "prod", []int{1}, dist.Multiply{}, []arena.ID{0, 1})
	require.NoError(t, g.AddNode(prod))

	gm := dag.NewGraphMarks(g)
	gm.Seed(arena.ID(0), arena.ID(1))
	require.NoError(t, gm.Propagate(dag.ScalePredicate))
	require.Equal(t, node.FalseMark, gm.Mark(arena.ID(2)))
}

func TestGraphMarksUntouchedNodeStaysNull(t *testing.T) {
	g, x0, _, _, _ := buildChain(t)
	unrelated := node.NewConstant(arena.ID(6), "unrelated", []int{1}, false)
	require.NoError(t, g.AddNode(unrelated))
	unrelatedChild := node.NewLogical(arena.ID(7), "uc", []int{1}, dist.Add{}, []arena.ID{6, 2})
	require.NoError(t, g.AddNode(unrelatedChild))

	gm := dag.NewGraphMarks(g)
	gm.Seed(x0)
	require.NoError(t, gm.Propagate(dag.LinearPredicate))
	require.Equal(t, node.NullMark, gm.Mark(arena.ID(7)))
}

func TestGraphMarksFalseIsAbsorbing(t *testing.T) {
	g, x0, scaled, mu, _ := buildChain(t)
	// Seeding both x0 and beta makes Multiply see two in-play parents,
	// which its own IsLinear rejects — FalseMark should then absorb
	// through mu as well.
	gm := dag.NewGraphMarks(g)
	gm.Seed(x0, arena.ID(1)) // x0 and beta both in play
	require.NoError(t, gm.Propagate(dag.LinearPredicate))
	require.Equal(t, node.FalseMark, gm.Mark(scaled))
	require.Equal(t, node.FalseMark, gm.Mark(mu))
}
