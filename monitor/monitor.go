// Package monitor implements the monitor framework (spec §4.J): per-
// iteration observers that accumulate a summary over one or more nodes,
// dumped as an sarray.SArray once a run completes.
//
// Grounded on modules/dic/PDMonitor.{h,cc} (a growing per-iteration trace,
// reserved up front, dumped with an "iteration" dimension name) and
// modules/dic/PoptMonitor.h (a monitor that additionally draws posterior
// predictive replications via RNGs it owns). KL.{h,cc} — PDMonitor's
// pluggable per-distribution KL strategy — is not present in the original
// source retrieval pack; KLPDMonitor here instead type-asserts each
// node's dist.Distribution for a concrete KL(p, q) method (implemented
// for dist.Normal) and rejects, at construction, any node whose
// distribution lacks one; such nodes are served by PDMonitor's generic
// numerical proxy instead.
package monitor

import (
	"errors"
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/sarray"
)

// ErrTooFewChains indicates a cross-chain monitor (PDMonitor, KLPDMonitor)
// was constructed against an arena with fewer than 2 chains.
var ErrTooFewChains = errors.New("monitor: requires at least 2 chains")

// Monitor is the shared per-iteration observer contract (spec §4.J).
type Monitor interface {
	// Update reads the current graph/arena state across every chain and
	// accumulates one iteration's worth of summary.
	Update(g *dag.Graph, a *arena.Arena) error
	// Dim returns the shape Dump() will produce.
	Dim() []int
	// Value returns the accumulated values visible to chain (pooled
	// monitors ignore chain and return the same slice for every value).
	Value(chain int) []float64
	// Reserve hints at the number of remaining iterations, so a growing
	// trace can preallocate.
	Reserve(niter int)
	// Dump packages the accumulated values as a named SArray.
	Dump() (*sarray.SArray, error)
	// PoolChains reports whether this monitor's accumulator is shared
	// across chains rather than kept one-per-chain.
	PoolChains() bool
	// PoolIterations reports whether this monitor keeps a single running
	// statistic (true) or a growing per-iteration trace (false).
	PoolIterations() bool
}

// graphEvaluator is the node.Evaluator every monitor in this package
// reads through: a thin direct graph/arena reader, since a monitor's node
// set rarely shares one view.View's deterministic closure the way a
// sampler's seed set does.
type graphEvaluator struct {
	graph *dag.Graph
	arena *arena.Arena
}

// Value implements node.Evaluator.
func (e *graphEvaluator) Value(id arena.ID, chain int) ([]float64, error) {
	return e.arena.Read(id, chain)
}

// LogDensity implements node.Evaluator.
func (e *graphEvaluator) LogDensity(id arena.ID, chain int) (float64, error) {
	k, err := e.graph.Node(id)
	if err != nil {
		return 0, err
	}
	s, ok := k.(*node.Stochastic)
	if !ok {
		return 0, fmt.Errorf("monitor: node %d is not stochastic", id)
	}
	v, err := e.arena.Read(id, chain)
	if err != nil {
		return 0, err
	}

	return s.LogDensity(v, chain, e)
}

// mustStochastic looks up id and asserts it is a *node.Stochastic; every
// monitor constructor validates this before storing the node, so failure
// here would indicate a caller bypassed construction-time validation.
func mustStochastic(g *dag.Graph, id arena.ID) (*node.Stochastic, error) {
	k, err := g.Node(id)
	if err != nil {
		return nil, err
	}
	s, ok := k.(*node.Stochastic)
	if !ok {
		return nil, fmt.Errorf("monitor: node %d is not stochastic", id)
	}

	return s, nil
}

// validateObserved requires every id in nodes to be an observed
// Stochastic node (the predictive-density monitors only make sense
// against data).
func validateObserved(g *dag.Graph, nodes []arena.ID) error {
	for _, id := range nodes {
		s, err := mustStochastic(g, id)
		if err != nil {
			return err
		}
		if !s.Observed {
			return fmt.Errorf("monitor: node %q is not observed", s.Name())
		}
	}

	return nil
}

// dumpTrace packages a flat []float64 trace as a one-dimensional SArray
// named "iteration", the shape every growing (non-pooled-iteration)
// monitor in this package dumps to.
func dumpTrace(values []float64) (*sarray.SArray, error) {
	shape := []int{len(values)}
	if len(values) == 0 {
		shape = []int{1}
	}
	cp := append([]float64{}, values...)
	if len(values) == 0 {
		cp = []float64{0}
	}
	s, err := sarray.NewFromValues(shape, cp)
	if err != nil {
		return nil, fmt.Errorf("monitor: dumpTrace: %w", err)
	}
	if err := s.SetDimNames([]string{"iteration"}); err != nil {
		return nil, fmt.Errorf("monitor: dumpTrace: %w", err)
	}

	return s, nil
}
