package dag

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/node"
)

// Predicate selects which of a node's two structural tests the marks
// forward pass consults: linearity (for ConjugateNormal's "mean is linear"
// check and its coefficient-caching decision) or scale (for
// TruncatedGamma's "precision is a scale of the target" check).
type Predicate int

const (
	// LinearPredicate drives the pass with node.Kind.IsLinear.
	LinearPredicate Predicate = iota
	// ScalePredicate drives the pass with node.Kind.IsScale.
	ScalePredicate
)

// GraphMarks holds one ternary Mark per node for a single forward pass
// over one Graph, scoped so the same Graph can be marked repeatedly (once
// per conjugate-updater construction) without cross-contamination (spec
// §4.D "reentrant across graphs by keeping marks scoped to a GraphMarks
// object").
type GraphMarks struct {
	graph   *Graph
	marks   map[arena.ID]node.Mark
	seeded  map[arena.ID]bool
	fixedID map[arena.ID]bool
}

// NewGraphMarks returns an empty marks pass over g.
func NewGraphMarks(g *Graph) *GraphMarks {
	return &GraphMarks{
		graph:   g,
		marks:   make(map[arena.ID]node.Mark),
		seeded:  make(map[arena.ID]bool),
		fixedID: make(map[arena.ID]bool),
	}
}

// Seed marks every id in ids as TrueMark and exempts it from
// recomputation during Propagate — the seed set spec §4.D describes as
// starting TRUE.
func (gm *GraphMarks) Seed(ids ...arena.ID) {
	for _, id := range ids {
		gm.marks[id] = node.TrueMark
		gm.seeded[id] = true
	}
}

// Fix records ids as known-constant (observed data, or otherwise fixed)
// for this pass; fed to each node's IsLinear/IsScale as its fixed mask.
func (gm *GraphMarks) Fix(ids ...arena.ID) {
	for _, id := range ids {
		gm.fixedID[id] = true
	}
}

// Mark returns the current mark for id (NullMark if never computed).
func (gm *GraphMarks) Mark(id arena.ID) node.Mark { return gm.marks[id] }

// Propagate runs the forward pass in topological order: every non-seeded
// node is assigned NullMark if none of its parents are touched (TrueMark
// or FalseMark), TrueMark if at least one parent is touched and the
// node's own structural predicate (chosen by pred) holds, FalseMark
// otherwise (spec §4.D "FALSE is absorbing"). Stochastic nodes outside
// the seed set always receive NullMark: the marks pass only ever crosses
// a stochastic boundary at an explicit seed, matching the graph view's
// deterministic-closure discipline (spec §4.E) of stopping at stochastic
// children rather than walking into their own parents.
func (gm *GraphMarks) Propagate(pred Predicate) error {
	order, err := gm.graph.TopologicalOrder()
	if err != nil {
		return fmt.Errorf("dag: Propagate: %w", err)
	}
	for _, id := range order {
		if gm.seeded[id] {
			continue
		}
		n, err := gm.graph.Node(id)
		if err != nil {
			return fmt.Errorf("dag: Propagate: %w", err)
		}
		if n.IsStochastic() {
			gm.marks[id] = node.NullMark

			continue
		}
		parents := n.Parents()
		parentMarks := make([]node.Mark, len(parents))
		fixed := make([]bool, len(parents))
		touched := false
		for i, p := range parents {
			parentMarks[i] = gm.marks[p]
			if parentMarks[i] != node.NullMark {
				touched = true
			}
			fixed[i] = gm.fixedID[p]
		}
		if !touched {
			gm.marks[id] = node.NullMark

			continue
		}

		var ok bool
		switch pred {
		case LinearPredicate:
			ok = n.IsLinear(parentMarks, fixed)
		case ScalePredicate:
			ok = n.IsScale(parentMarks, fixed)
		}
		if ok {
			gm.marks[id] = node.TrueMark
		} else {
			gm.marks[id] = node.FalseMark
		}
	}

	return nil
}
