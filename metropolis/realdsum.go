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

// CanSampleRealDSum reports whether nodes qualify for the hard-sum-
// constraint updater (spec §4.H "RealDSum enforces a hard sum constraint"):
// at least two scalar, continuous, full-rank free stochastic nodes that
// are the sole parents of a single observed dsum child.
func CanSampleRealDSum(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	if len(nodes) < 2 {
		return false, nil
	}
	for _, id := range nodes {
		k, err := g.Node(id)
		if err != nil {
			return false, fmt.Errorf("metropolis: CanSampleRealDSum: %w", err)
		}
		s, ok := k.(*node.Stochastic)
		if !ok || s.Observed || s.Len() != 1 || s.IsDiscreteValued() {
			return false, nil
		}
		df, err := s.Dist.DF(nil)
		if err != nil || df != 1 {
			return false, nil
		}
	}

	v, err := view.New(g, a, nodes)
	if err != nil {
		return false, fmt.Errorf("metropolis: CanSampleRealDSum: %w", err)
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

func mustStochastic(g *dag.Graph, id arena.ID) *node.Stochastic {
	k, _ := g.Node(id)

	return k.(*node.Stochastic)
}

// RealDSum is the per-chain updater for a block of scalar continuous
// nodes constrained to sum to an observed value (spec §4.H): each step
// picks two distinct indices and adds/subtracts the same Gaussian
// perturbation, so the sum is preserved exactly by construction rather
// than by rejecting off-constraint proposals.
type RealDSum struct {
	*Metropolis
	nodes []arena.ID
	nrep  int
	scale randomWalkScale
}

// NewRealDSum constructs the updater for one chain. nrep controls how
// many paired-index swaps happen per Update call (JAGS default: 1).
func NewRealDSum(g *dag.Graph, a *arena.Arena, nodes []arena.ID, chain, nrep int) (*RealDSum, error) {
	ok, err := CanSampleRealDSum(nodes, g, a)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewRealDSum: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("metropolis: NewRealDSum: structural conditions not met")
	}
	if nrep < 1 {
		nrep = 1
	}
	v, err := view.New(g, a, nodes)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewRealDSum: %w", err)
	}

	x0, err := v.GetValue(chain)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewRealDSum: %w", err)
	}
	flat := make([]float64, len(x0))
	for i, b := range x0 {
		flat[i] = b[0]
	}

	// Correct the initial values so their sum matches the observed dsum
	// target exactly, distributing the discrepancy evenly (spec §4.H
	// "initialization shifts the user-provided starting values so the
	// constraint is satisfied").
	dsumChild := v.StochasticChildren()[0]
	target, err := v.Evaluator().Value(dsumChild, chain)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewRealDSum: %w", err)
	}
	var sum float64
	for _, x := range flat {
		sum += x
	}
	delta := (target[0] - sum) / float64(len(flat))
	for i := range flat {
		flat[i] += delta
	}
	if err := v.SetValue(reshapeMany(flat), chain); err != nil {
		return nil, fmt.Errorf("metropolis: NewRealDSum: %w", err)
	}

	ds := &RealDSum{Metropolis: newMetropolis(v, chain, flat), nodes: append([]arena.ID{}, nodes...), nrep: nrep}
	ds.bind(ds)

	return ds, nil
}

// reshapeMany splits a flat per-node scalar slice into one one-element
// buffer per seed node, the shape RealDSum's (and DSumMethod's) seed set
// needs for view.SetValue.
func reshapeMany(flat []float64) [][]float64 {
	out := make([][]float64, len(flat))
	for i, x := range flat {
		out[i] = []float64{x}
	}

	return out
}

// Name implements sampler.Method.
func (ds *RealDSum) Name() string { return "RealDSum" }

// setValue implements proposalModel: identity map, one scalar per node.
func (ds *RealDSum) setValue(value []float64) error {
	return ds.view.SetValue(reshapeMany(value), ds.chain)
}

// rescale implements proposalModel.
func (ds *RealDSum) rescale(p float64, accepted bool) { ds.scale.rescale(p, accepted) }

// CheckAdaptation overrides sampler.Adaptive's default.
func (ds *RealDSum) CheckAdaptation() bool { return ds.scale.converged() }

// Update implements sampler.Method: proposes nrep paired-index swaps
// (spec §4.H "picks two indices at random, adds ε·σ to one and subtracts
// it from the other") and accepts the whole batch as one Metropolis step
// — the swap is itself symmetric, so the log-proposal-ratio term is zero.
func (ds *RealDSum) Update(rng *rand.Rand) error {
	before, err := ds.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: RealDSum.Update: %w", err)
	}

	n := len(ds.nodes)
	s := ds.scale.scale()
	proposal := ds.Value()
	for r := 0; r < ds.nrep; r++ {
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		eps := rng.NormFloat64() * s
		proposal[i] += eps
		proposal[j] -= eps
	}
	if err := ds.propose(proposal); err != nil {
		return fmt.Errorf("metropolis: RealDSum.Update: %w", err)
	}

	after, err := ds.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: RealDSum.Update: %w", err)
	}

	p := math.Exp(after - before)
	if _, err := ds.accept(rng, p); err != nil {
		return fmt.Errorf("metropolis: RealDSum.Update: %w", err)
	}

	return nil
}
