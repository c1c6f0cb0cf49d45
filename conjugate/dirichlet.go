package conjugate

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/sampler"
	"github.com/arnovik/bugsgraph/view"
)

// ErrStructuralZeroViolated indicates a count accumulated onto a
// structural-zero coordinate of the target's concentration vector (spec
// §4.G "any nonzero accumulated count at a structural-zero coordinate is
// a fatal error", spec §7 "invalid structural constraint").
var ErrStructuralZeroViolated = errors.New("conjugate: structural zero received mass")

// offsetMap records, for one stochastic child, the mapping from the
// target's flat coordinate i to the child's probability-vector coordinate
// offsetMap[i] (spec §4.G "_off[i]"). A value of -1 means that target
// coordinate does not appear in this child's probability argument.
type offsetMap []int

// pathResolver walks a deterministic-descendant chain from a stochastic
// child's probability argument back toward the Dirichlet target, through
// the only two node kinds spec §4.G allows on that path: Aggregate
// (contiguous embedding) and Mixture (index must not depend on the
// target). Grounded on the original source's precomputed _tree/_leaves
// arrays, here resolved by direct recursive descent over the already
// materialized node.Kind graph instead of a separate flattened array.
type pathResolver struct {
	graph  *dag.Graph
	target arena.ID
	dim    int
}

// resolve computes the offset map from the target into n's output, or
// reports ok=false if n is not currently reachable from the target along
// an allowed path (e.g. a Mixture on the path is switched to a sibling
// component this iteration — spec §4.G "skip that child's contribution").
func (r *pathResolver) resolve(n arena.ID, chain int, env node.Evaluator) (offsetMap, bool, error) {
	if n == r.target {
		off := make(offsetMap, r.dim)
		for i := range off {
			off[i] = i
		}

		return off, true, nil
	}

	k, err := r.graph.Node(n)
	if err != nil {
		return nil, false, fmt.Errorf("conjugate: pathResolver.resolve: %w", err)
	}
	switch kind := k.(type) {
	case *node.Aggregate:
		out := make(offsetMap, r.dim)
		for i := range out {
			out[i] = -1
		}
		found := false
		for _, seg := range kind.Segments {
			segOff, ok, err := r.resolve(seg.Parent, chain, env)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				continue
			}
			for i, po := range segOff {
				if po < seg.ParentFrom || po >= seg.ParentFrom+seg.Length {
					continue
				}
				out[i] = seg.DestOffset + (po - seg.ParentFrom)
				found = true
			}
		}

		return out, found, nil
	case *node.Mixture:
		// canSample already confirmed the index nodes are independent of
		// the target; only the currently selected branch matters here.
		idxVal, err := env.Value(kind.IndexNodes[0], chain)
		if err != nil {
			return nil, false, fmt.Errorf("conjugate: pathResolver.resolve: %w", err)
		}
		selected := int(idxVal[0]) - 1
		for i, choice := range kind.ChoiceNodes {
			if i != selected {
				continue
			}

			return r.resolve(choice, chain, env)
		}

		return nil, false, nil
	default:
		return nil, false, nil
	}
}

// CanSampleDirichlet reports whether ConjugateDirichlet applies to target
// within g: a free ddirch prior whose stochastic children are dcat or
// dmulti, each reaching the target only through Aggregate/Mixture nodes
// (spec §4.G).
func CanSampleDirichlet(target arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	tk, err := g.Node(target)
	if err != nil {
		return false, fmt.Errorf("conjugate: CanSampleDirichlet: %w", err)
	}
	ts, ok := tk.(*node.Stochastic)
	if !ok || ts.Observed || ts.Dist.Name() != "ddirch" {
		return false, nil
	}

	v, err := view.New(g, a, []arena.ID{target})
	if err != nil {
		return false, fmt.Errorf("conjugate: CanSampleDirichlet: %w", err)
	}
	for _, child := range v.StochasticChildren() {
		ck, err := g.Node(child)
		if err != nil {
			return false, fmt.Errorf("conjugate: CanSampleDirichlet: %w", err)
		}
		cs, ok := ck.(*node.Stochastic)
		if !ok || (cs.Dist.Name() != "dcat" && cs.Dist.Name() != "dmulti") {
			return false, nil
		}
		if !pathIsAllowed(g, cs.ParamNodes[0], target, v) {
			return false, nil
		}
		// A dmulti child's trial count N (ParamNodes[1]) must itself be
		// independent of the target: if N were a deterministic function of
		// the same Dirichlet value, Update would accumulate counts against
		// a target value N's own computation already depended on from the
		// previous iteration, silently corrupting the posterior (ground
		// truth: ConjugateDirichlet.cc's canSample rejects a MULTI child
		// whose N parameter is dependent on the target).
		if cs.Dist.Name() == "dmulti" && v.IsDependent(cs.ParamNodes[1]) {
			return false, nil
		}
	}

	return true, nil
}

// pathIsAllowed reports whether every deterministic node between probNode
// and target is an Aggregate or Mixture node, and every Mixture's index
// nodes are independent of the target (structural check only; the
// runtime path may still be switched away from the target on any given
// iteration, which Update handles by skipping, not by disqualifying).
func pathIsAllowed(g *dag.Graph, probNode, target arena.ID, v *view.View) bool {
	if probNode == target {
		return true
	}
	k, err := g.Node(probNode)
	if err != nil {
		return false
	}
	switch kind := k.(type) {
	case *node.Aggregate:
		touches := false
		for _, seg := range kind.Segments {
			if seg.Parent == target || v.IsDependent(seg.Parent) {
				if !pathIsAllowed(g, seg.Parent, target, v) {
					return false
				}
				touches = true
			}
		}

		return touches
	case *node.Mixture:
		for _, idx := range kind.IndexNodes {
			if v.IsDependent(idx) {
				return false // index itself must not depend on the target
			}
		}
		touches := false
		for _, choice := range kind.ChoiceNodes {
			if choice == target || v.IsDependent(choice) {
				if !pathIsAllowed(g, choice, target, v) {
					return false
				}
				touches = true
			}
		}

		return touches
	default:
		return false
	}
}

// ConjugateDirichlet is the per-chain Method implementing spec §4.G's
// Dirichlet/Categorical-Multinomial conjugate update.
type ConjugateDirichlet struct {
	graph  *dag.Graph
	view   *view.View
	target arena.ID
	chain  int
	dim    int

	sampler.Adaptive
}

// NewConjugateDirichlet constructs the updater for one chain. Callers
// must have confirmed CanSampleDirichlet(target, g, a) first.
func NewConjugateDirichlet(g *dag.Graph, a *arena.Arena, target arena.ID, chain int) (*ConjugateDirichlet, error) {
	ok, err := CanSampleDirichlet(target, g, a)
	if err != nil {
		return nil, fmt.Errorf("conjugate: NewConjugateDirichlet: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("conjugate: NewConjugateDirichlet: %w", ErrNotApplicable)
	}
	v, err := view.New(g, a, []arena.ID{target})
	if err != nil {
		return nil, fmt.Errorf("conjugate: NewConjugateDirichlet: %w", err)
	}
	tk, _ := g.Node(target)

	return &ConjugateDirichlet{
		graph:    g,
		view:     v,
		target:   target,
		chain:    chain,
		dim:      tk.(*node.Stochastic).Len(),
		Adaptive: sampler.NewAdaptive(),
	}, nil
}

// Name implements sampler.Method.
func (c *ConjugateDirichlet) Name() string { return "ConjugateDirichlet" }

// IsAdaptive implements sampler.Method: closed-form, never adaptive.
func (*ConjugateDirichlet) IsAdaptive() bool { return false }

// CheckAdaptation implements sampler.Method.
func (*ConjugateDirichlet) CheckAdaptation() bool { return true }

// Update implements sampler.Method: accumulates posterior concentration
// from every currently-reachable stochastic child (spec §4.G), samples
// via independent Gammas normalized to sum to one (delegated to
// dist.Dirichlet.Rand, the same algorithm), and checks structural zeros.
func (c *ConjugateDirichlet) Update(rng *rand.Rand) error {
	env := c.view.Evaluator()
	priorParams, err := c.priorAlpha(env)
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateDirichlet.Update: %w", err)
	}

	posterior := append([]float64{}, priorParams...)
	resolver := &pathResolver{graph: c.graph, target: c.target, dim: c.dim}

	for _, child := range c.view.StochasticChildren() {
		cs := mustStochastic(c.graph, child)
		off, ok, err := resolver.resolve(cs.ParamNodes[0], c.chain, env)
		if err != nil {
			return fmt.Errorf("conjugate: ConjugateDirichlet.Update: %w", err)
		}
		if !ok {
			continue // a mixture on the path is switched to a sibling this iteration
		}

		value, err := env.Value(child, c.chain)
		if err != nil {
			return fmt.Errorf("conjugate: ConjugateDirichlet.Update: %w", err)
		}
		switch cs.Dist.Name() {
		case "dcat":
			selected := int(value[0]) - 1
			if err := accumulate(posterior, off, selected, 1, priorParams); err != nil {
				return fmt.Errorf("conjugate: ConjugateDirichlet.Update: %w", err)
			}
		case "dmulti":
			for childIdx, count := range value {
				if count == 0 {
					continue
				}
				if err := accumulate(posterior, off, childIdx, count, priorParams); err != nil {
					return fmt.Errorf("conjugate: ConjugateDirichlet.Update: %w", err)
				}
			}
		}
	}

	sample, err := dist.NewDirichlet().Rand(rng, dist.Params{posterior})
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateDirichlet.Update: %w", err)
	}

	return c.view.SetValue([][]float64{sample}, c.chain)
}

// priorAlpha reads the target's own prior concentration parameter (the
// Stochastic node's single ParamNodes entry).
func (c *ConjugateDirichlet) priorAlpha(env node.Evaluator) ([]float64, error) {
	ts := mustStochastic(c.graph, c.target)

	return env.Value(ts.ParamNodes[0], c.chain)
}

// accumulate adds count to whichever target coordinate j has
// off[j] == childIdx (off maps target coordinate -> child coordinate, per
// spec §4.G's "_off[i]"), rejecting any contribution landing on a
// structural zero (prior[j] == 0).
func accumulate(posterior []float64, off offsetMap, childIdx int, count float64, prior []float64) error {
	for j, co := range off {
		if co != childIdx {
			continue
		}
		if prior[j] == 0 {
			return fmt.Errorf("conjugate: accumulate(coordinate %d): %w", j, ErrStructuralZeroViolated)
		}
		posterior[j] += count

		return nil
	}

	return nil // childIdx is not sourced from the Dirichlet target
}
