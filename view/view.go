// Package view implements the graph view (spec §4.E): the working unit a
// sampler updates against — a seed set S of target nodes, the
// deterministic closure reachable downstream of S in dependency order,
// and the stochastic children at the closure's boundary whose densities
// the target's full conditional depends on.
//
// Adapted from the teacher's core.InducedSubgraph: the same "walk from a
// seed set, keep what's reachable" shape, generalized from an undirected
// vertex/edge keep-set to a directed deterministic-vs-stochastic boundary
// walk appropriate to a DAG of node.Kind values.
package view

import (
	"errors"
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/node"
)

// ErrSeedEmpty indicates New was called with no seed nodes.
var ErrSeedEmpty = errors.New("view: seed set is empty")

// ErrBufLengthMismatch indicates SetValue was called with a buffer count
// that does not match the seed set's size.
var ErrBufLengthMismatch = errors.New("view: buffer count does not match seed set")

// ErrNotStochastic indicates a log-density lookup targeted a node that is
// not a Stochastic kind.
var ErrNotStochastic = errors.New("view: node is not stochastic")

// View is constructed from (S, G): a seed node set and the graph owning
// it (spec §4.E).
type View struct {
	graph *dag.Graph
	arena *arena.Arena

	seed          []arena.ID
	detClosure    []arena.ID // deterministic descendants, parent-before-child order
	stochChildren []arena.ID // stochastic children, insertion (discovery) order

	env *evaluator
}

// New constructs a View over seed within g, backed by a for value storage.
func New(g *dag.Graph, a *arena.Arena, seed []arena.ID) (*View, error) {
	if len(seed) == 0 {
		return nil, ErrSeedEmpty
	}

	full, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("view: New: %w", err)
	}

	closureSet := make(map[arena.ID]bool)
	stochSeen := make(map[arena.ID]bool)
	var stochChildren []arena.ID

	var walk func(id arena.ID) error
	walk = func(id arena.ID) error {
		for _, c := range g.Children(id) {
			n, err := g.Node(c)
			if err != nil {
				return err
			}
			if n.IsStochastic() {
				if !stochSeen[c] {
					stochSeen[c] = true
					stochChildren = append(stochChildren, c)
				}

				continue
			}
			if !closureSet[c] {
				closureSet[c] = true
				if err := walk(c); err != nil {
					return err
				}
			}
		}

		return nil
	}
	for _, s := range seed {
		if !g.Has(s) {
			return nil, fmt.Errorf("view: New: %w: %d", dag.ErrUnknownNode, s)
		}
		if err := walk(s); err != nil {
			return nil, err
		}
	}

	detClosure := make([]arena.ID, 0, len(closureSet))
	for _, id := range full {
		if closureSet[id] {
			detClosure = append(detClosure, id)
		}
	}

	v := &View{graph: g, arena: a, seed: append([]arena.ID{}, seed...), detClosure: detClosure, stochChildren: stochChildren}
	v.env = &evaluator{graph: g, arena: a}

	return v, nil
}

// SetValue writes buf into each seed node (in declared order) then
// re-evaluates the deterministic closure.
func (v *View) SetValue(buf [][]float64, chain int) error {
	if len(buf) != len(v.seed) {
		return fmt.Errorf("view: SetValue: %w (got %d, want %d)", ErrBufLengthMismatch, len(buf), len(v.seed))
	}
	for i, id := range v.seed {
		if err := v.arena.Write(id, chain, buf[i]); err != nil {
			return fmt.Errorf("view: SetValue: %w", err)
		}
	}
	for _, id := range v.detClosure {
		n, err := v.graph.Node(id)
		if err != nil {
			return fmt.Errorf("view: SetValue: %w", err)
		}
		if err := n.DeterministicSample(v.arena, chain, v.env); err != nil {
			return fmt.Errorf("view: SetValue: %w", err)
		}
	}

	return nil
}

// GetValue reads the current value of each seed node, in declared order.
// Returned slices are independent copies, safe to retain.
func (v *View) GetValue(chain int) ([][]float64, error) {
	out := make([][]float64, len(v.seed))
	for i, id := range v.seed {
		buf, err := v.arena.Read(id, chain)
		if err != nil {
			return nil, fmt.Errorf("view: GetValue: %w", err)
		}
		cp := make([]float64, len(buf))
		copy(cp, buf)
		out[i] = cp
	}

	return out, nil
}

// LogFullConditional sums log-density over the seed set and over the
// stochastic children, evaluated at current values (spec §4.E).
func (v *View) LogFullConditional(chain int) (float64, error) {
	var sum float64
	for _, id := range v.seed {
		ld, err := v.env.LogDensity(id, chain)
		if err != nil {
			return 0, fmt.Errorf("view: LogFullConditional: %w", err)
		}
		sum += ld
	}
	for _, id := range v.stochChildren {
		ld, err := v.env.LogDensity(id, chain)
		if err != nil {
			return 0, fmt.Errorf("view: LogFullConditional: %w", err)
		}
		sum += ld
	}

	return sum, nil
}

// IsDependent reports whether id is a member of the seed set or the
// deterministic closure.
func (v *View) IsDependent(id arena.ID) bool {
	for _, s := range v.seed {
		if s == id {
			return true
		}
	}
	for _, d := range v.detClosure {
		if d == id {
			return true
		}
	}

	return false
}

// Nodes returns the seed set S.
func (v *View) Nodes() []arena.ID { return append([]arena.ID{}, v.seed...) }

// DeterministicChildren returns the deterministic closure in
// parent-before-child order.
func (v *View) DeterministicChildren() []arena.ID { return append([]arena.ID{}, v.detClosure...) }

// StochasticChildren returns the stochastic children in discovery order.
func (v *View) StochasticChildren() []arena.ID { return append([]arena.ID{}, v.stochChildren...) }

// Evaluator exposes the view's node.Evaluator for updaters (conjugate and
// metropolis packages) that need to resolve arbitrary node values or
// densities beyond the seed/closure/children accessors above.
func (v *View) Evaluator() node.Evaluator { return v.env }

// evaluator is the concrete node.Evaluator backing a View: Value reads
// straight from the arena (valid because the view's own SetValue always
// keeps the closure current before a caller reads anything), and
// LogDensity looks up a stochastic node and asks it to evaluate itself.
type evaluator struct {
	graph *dag.Graph
	arena *arena.Arena
}

// Value implements node.Evaluator.
func (e *evaluator) Value(id arena.ID, chain int) ([]float64, error) {
	return e.arena.Read(id, chain)
}

// LogDensity implements node.Evaluator.
func (e *evaluator) LogDensity(id arena.ID, chain int) (float64, error) {
	n, err := e.graph.Node(id)
	if err != nil {
		return 0, err
	}
	s, ok := n.(*node.Stochastic)
	if !ok {
		return 0, fmt.Errorf("view: LogDensity(%d): %w", id, ErrNotStochastic)
	}
	v, err := e.arena.Read(id, chain)
	if err != nil {
		return 0, err
	}

	return s.LogDensity(v, chain, e)
}
