package conjugate

import (
	"fmt"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/sampler"
	"github.com/arnovik/bugsgraph/view"
)

// CanSampleTruncatedGamma reports whether TruncatedGamma applies to
// target: a free dgamma prior acting as the precision of one or more
// dnorm children through a pure scale relationship — precision_i = c_i *
// target for some coefficient c_i fixed across iterations — detected with
// a dag.GraphMarks pass under ScalePredicate (the same marks machinery
// ConjugateNormal runs under LinearPredicate) (spec §4.G "a specific
// power-transform pattern detected by its canSample").
func CanSampleTruncatedGamma(target arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	tk, err := g.Node(target)
	if err != nil {
		return false, fmt.Errorf("conjugate: CanSampleTruncatedGamma: %w", err)
	}
	ts, ok := tk.(*node.Stochastic)
	if !ok || ts.Observed || ts.Dist.Name() != "dgamma" {
		return false, nil
	}

	v, err := view.New(g, a, []arena.ID{target})
	if err != nil {
		return false, fmt.Errorf("conjugate: CanSampleTruncatedGamma: %w", err)
	}
	if len(v.StochasticChildren()) == 0 {
		return false, nil
	}

	gm := dag.NewGraphMarks(g)
	gm.Seed(target)
	if err := gm.Propagate(dag.ScalePredicate); err != nil {
		return false, fmt.Errorf("conjugate: CanSampleTruncatedGamma: %w", err)
	}
	for _, child := range v.StochasticChildren() {
		cs := mustStochastic(g, child)
		if cs.Dist.Name() != "dnorm" {
			return false, nil
		}
		if gm.Mark(cs.ParamNodes[1]) != node.TrueMark {
			return false, nil // precision is not a pure scale of the target
		}
		if v.IsDependent(cs.ParamNodes[0]) {
			return false, nil // mean must not itself depend on the (precision) target
		}
	}

	return true, nil
}

// TruncatedGamma is the per-chain Method implementing the conjugate Gamma
// update for a precision parameter shared (via a fixed scale factor) by
// one or more Normal children.
type TruncatedGamma struct {
	graph  *dag.Graph
	view   *view.View
	target arena.ID
	chain  int

	sampler.Adaptive
}

// NewTruncatedGamma constructs the updater for one chain. Callers must
// have confirmed CanSampleTruncatedGamma(target, g, a) first.
func NewTruncatedGamma(g *dag.Graph, a *arena.Arena, target arena.ID, chain int) (*TruncatedGamma, error) {
	ok, err := CanSampleTruncatedGamma(target, g, a)
	if err != nil {
		return nil, fmt.Errorf("conjugate: NewTruncatedGamma: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("conjugate: NewTruncatedGamma: %w", ErrNotApplicable)
	}
	v, err := view.New(g, a, []arena.ID{target})
	if err != nil {
		return nil, fmt.Errorf("conjugate: NewTruncatedGamma: %w", err)
	}

	return &TruncatedGamma{graph: g, view: v, target: target, chain: chain, Adaptive: sampler.NewAdaptive()}, nil
}

// Name implements sampler.Method.
func (c *TruncatedGamma) Name() string { return "TruncatedGamma" }

// IsAdaptive implements sampler.Method: closed-form, never adaptive.
func (*TruncatedGamma) IsAdaptive() bool { return false }

// CheckAdaptation implements sampler.Method.
func (*TruncatedGamma) CheckAdaptation() bool { return true }

// scaleCoefficient derives c_i such that precisionNode = c_i * target, by
// probing the view at target=1: a confirmed-scale function satisfies
// f(1) = c exactly (no additive term).
func (c *TruncatedGamma) scaleCoefficient(precisionNode arena.ID) (float64, error) {
	env := c.view.Evaluator()
	x0, err := c.view.GetValue(c.chain)
	if err != nil {
		return 0, err
	}
	if err := c.view.SetValue([][]float64{{1}}, c.chain); err != nil {
		return 0, err
	}
	v, err := env.Value(precisionNode, c.chain)
	if err != nil {
		return 0, err
	}
	coeff := v[0]
	if err := c.view.SetValue(x0, c.chain); err != nil {
		return 0, err
	}

	return coeff, nil
}

// Update implements sampler.Method: shape' = a0 + n/2, rate' = b0 +
// 0.5*sum(c_i*(y_i-mu_i)^2), sampled as a fresh Gamma draw.
func (c *TruncatedGamma) Update(rng *rand.Rand) error {
	env := c.view.Evaluator()
	ts := mustStochastic(c.graph, c.target)
	aV, err := env.Value(ts.ParamNodes[0], c.chain)
	if err != nil {
		return fmt.Errorf("conjugate: TruncatedGamma.Update: %w", err)
	}
	bV, err := env.Value(ts.ParamNodes[1], c.chain)
	if err != nil {
		return fmt.Errorf("conjugate: TruncatedGamma.Update: %w", err)
	}
	shape, rate := aV[0], bV[0]

	children := c.view.StochasticChildren()
	shape += float64(len(children)) / 2

	for _, child := range children {
		cs := mustStochastic(c.graph, child)
		coeff, err := c.scaleCoefficient(cs.ParamNodes[1])
		if err != nil {
			return fmt.Errorf("conjugate: TruncatedGamma.Update: %w", err)
		}
		muV, err := env.Value(cs.ParamNodes[0], c.chain)
		if err != nil {
			return fmt.Errorf("conjugate: TruncatedGamma.Update: %w", err)
		}
		yV, err := env.Value(child, c.chain)
		if err != nil {
			return fmt.Errorf("conjugate: TruncatedGamma.Update: %w", err)
		}
		resid := yV[0] - muV[0]
		rate += 0.5 * coeff * resid * resid
	}

	sample, err := dist.NewGamma().Rand(rng, dist.Params{{shape}, {rate}})
	if err != nil {
		return fmt.Errorf("conjugate: TruncatedGamma.Update: %w", err)
	}

	return c.view.SetValue([][]float64{sample}, c.chain)
}
