package metropolis

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/view"
)

// CanSampleDSumMethod is DSumMethod's structural gate (spec §4.H
// "DSumMethod: block sampler for discrete constraints analogous to
// RealDSum"): the same checks as CanSampleRealDSum except every node must
// be discrete-valued rather than continuous, and there is no
// degrees-of-freedom check.
func CanSampleDSumMethod(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	if len(nodes) < 2 {
		return false, nil
	}
	for _, id := range nodes {
		k, err := g.Node(id)
		if err != nil {
			return false, fmt.Errorf("metropolis: CanSampleDSumMethod: %w", err)
		}
		s, ok := k.(*node.Stochastic)
		if !ok || s.Observed || s.Len() != 1 || !s.IsDiscreteValued() {
			return false, nil
		}
	}

	v, err := view.New(g, a, nodes)
	if err != nil {
		return false, fmt.Errorf("metropolis: CanSampleDSumMethod: %w", err)
	}
	if len(v.DeterministicChildren()) != 0 {
		return false, nil
	}
	children := v.StochasticChildren()
	if len(children) != 1 {
		return false, nil
	}
	cs := mustStochastic(g, children[0])
	if !cs.Observed || cs.Dist.Name() != "dsum" || len(cs.ParamNodes) != len(nodes) {
		return false, nil
	}

	return true, nil
}

// DSumMethod is RealDSum's discrete-valued twin (spec §4.H): each step
// swaps a fixed integer unit between two randomly chosen indices, so
// integrality and the sum constraint are both preserved exactly. There is
// no proposal scale to tune — the step size is always one unit — so the
// updater is never adaptive.
type DSumMethod struct {
	*Metropolis
	nodes []arena.ID
}

// NewDSumMethod constructs the updater for one chain.
func NewDSumMethod(g *dag.Graph, a *arena.Arena, nodes []arena.ID, chain int) (*DSumMethod, error) {
	ok, err := CanSampleDSumMethod(nodes, g, a)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewDSumMethod: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("metropolis: NewDSumMethod: structural conditions not met")
	}
	v, err := view.New(g, a, nodes)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewDSumMethod: %w", err)
	}
	x0, err := v.GetValue(chain)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewDSumMethod: %w", err)
	}
	flat := make([]float64, len(x0))
	for i, b := range x0 {
		flat[i] = b[0]
	}

	dm := &DSumMethod{Metropolis: newMetropolis(v, chain, flat), nodes: append([]arena.ID{}, nodes...)}
	dm.bind(dm)

	return dm, nil
}

// Name implements sampler.Method.
func (dm *DSumMethod) Name() string { return "DSumMethod" }

// setValue implements proposalModel: identity map, one scalar per node.
func (dm *DSumMethod) setValue(value []float64) error {
	return dm.view.SetValue(reshapeMany(value), dm.chain)
}

// rescale implements proposalModel: no-op, there is no scale to tune.
func (*DSumMethod) rescale(float64, bool) {}

// IsAdaptive implements sampler.Method: a fixed unit step has nothing to
// adapt.
func (*DSumMethod) IsAdaptive() bool { return false }

// CheckAdaptation implements sampler.Method.
func (*DSumMethod) CheckAdaptation() bool { return true }

// Update implements sampler.Method: picks two distinct indices and moves
// one unit from one to the other, preserving the integer sum exactly.
func (dm *DSumMethod) Update(rng *rand.Rand) error {
	before, err := dm.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: DSumMethod.Update: %w", err)
	}

	n := len(dm.nodes)
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	proposal := dm.Value()
	proposal[i]++
	proposal[j]--
	if err := dm.propose(proposal); err != nil {
		return fmt.Errorf("metropolis: DSumMethod.Update: %w", err)
	}

	after, err := dm.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: DSumMethod.Update: %w", err)
	}

	p := math.Exp(after - before)
	if _, err := dm.accept(rng, p); err != nil {
		return fmt.Errorf("metropolis: DSumMethod.Update: %w", err)
	}

	return nil
}
