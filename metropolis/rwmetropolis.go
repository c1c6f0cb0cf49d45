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

// CanSampleRWMetropolis reports whether target is a free, continuous
// stochastic node — the generic fallback every factory pipeline tries
// last, since it imposes no structural requirement beyond "can be
// evaluated at all" (spec §4.I "Any node left unclaimed ... causes model
// finalization to fail", i.e. RWMetropolis is the last resort that almost
// never leaves a node unclaimed). Discrete-valued nodes are excluded: a
// continuous Gaussian proposal truncated to an integer is not a valid
// kernel for discrete support (small-scale proposals rarely change the
// truncated index, breaking detailed balance) — those are FiniteMethod's
// job, tried just ahead of this factory.
func CanSampleRWMetropolis(target arena.ID, g *dag.Graph) (bool, error) {
	k, err := g.Node(target)
	if err != nil {
		return false, fmt.Errorf("metropolis: CanSampleRWMetropolis: %w", err)
	}
	s, ok := k.(*node.Stochastic)
	if !ok || s.Observed || s.IsDiscreteValued() {
		return false, nil
	}

	return true, nil
}

// RWMetropolis is a per-chain random-walk Gaussian Metropolis updater
// (spec §4.H "RWMetropolis"): identity coordinate map (the sampler's
// coordinates are the node's own), a single scalar proposal scale tuned
// by Robbins-Monro toward the 0.234 target.
type RWMetropolis struct {
	*Metropolis
	target arena.ID
	scale  randomWalkScale
}

// NewRWMetropolis constructs the updater for one chain.
func NewRWMetropolis(g *dag.Graph, a *arena.Arena, target arena.ID, chain int) (*RWMetropolis, error) {
	ok, err := CanSampleRWMetropolis(target, g)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewRWMetropolis: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("metropolis: NewRWMetropolis: target is not a free stochastic node")
	}
	v, err := view.New(g, a, []arena.ID{target})
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewRWMetropolis: %w", err)
	}
	x0, err := v.GetValue(chain)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewRWMetropolis: %w", err)
	}

	rw := &RWMetropolis{Metropolis: newMetropolis(v, chain, flattenOne(x0)), target: target}
	rw.bind(rw)

	return rw, nil
}

// flattenOne concatenates a single-seed GetValue result into one slice.
func flattenOne(bufs [][]float64) []float64 {
	var out []float64
	for _, b := range bufs {
		out = append(out, b...)
	}

	return out
}

// reshapeOne re-splits a flat slice back into the one-buffer-per-seed
// shape view.SetValue expects, for a single scalar or vector seed node.
func reshapeOne(flat []float64) [][]float64 { return [][]float64{flat} }

// Name implements sampler.Method.
func (rw *RWMetropolis) Name() string { return "RWMetropolis" }

// setValue implements proposalModel: identity map into node coordinates.
func (rw *RWMetropolis) setValue(value []float64) error {
	return rw.view.SetValue(reshapeOne(value), rw.chain)
}

// rescale implements proposalModel: delegates to the shared Robbins-Monro
// helper (spec §4.H "tuned by Robbins-Monro toward a 0.234 target").
func (rw *RWMetropolis) rescale(p float64, accepted bool) { rw.scale.rescale(p, accepted) }

// CheckAdaptation overrides sampler.Adaptive's default: converged once
// enough steps have accumulated and the empirical acceptance rate is
// within AdaptationTolerance of the target.
func (rw *RWMetropolis) CheckAdaptation() bool { return rw.scale.converged() }

// Update implements sampler.Method: proposes value + N(0, scale^2) per
// coordinate (a symmetric proposal, so the log-proposal-ratio term is
// zero) and accepts with the Metropolis ratio.
func (rw *RWMetropolis) Update(rng *rand.Rand) error {
	before, err := rw.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: RWMetropolis.Update: %w", err)
	}

	cur := rw.Value()
	s := rw.scale.scale()
	proposal := make([]float64, len(cur))
	for i := range proposal {
		proposal[i] = cur[i] + rng.NormFloat64()*s
	}
	if err := rw.propose(proposal); err != nil {
		return fmt.Errorf("metropolis: RWMetropolis.Update: %w", err)
	}

	after, err := rw.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: RWMetropolis.Update: %w", err)
	}

	p := math.Exp(after - before)
	if _, err := rw.accept(rng, p); err != nil {
		return fmt.Errorf("metropolis: RWMetropolis.Update: %w", err)
	}

	return nil
}
