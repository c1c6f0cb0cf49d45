// Package conjugate implements the conjugate updaters (spec §4.G):
// closed-form posterior samplers selected only when structural conditions
// on a target's prior and its stochastic descendants hold. Each updater
// exposes a static canSample(node, graph) the factory pipeline consults
// before falling back to a generic Metropolis update.
//
// Grounded on the original source's ConjugateNormal.cc: the precision/
// mean-shift accumulation (B, A) this package computes mirrors its
// algorithm, adapted to derive each child's linear coefficient by probing
// the graph view rather than walking a coefficient-expression tree (the
// original's AddOffset/AddScale machinery), since this taxonomy exposes
// confirmed linearity only as a boolean, not a materialized expression.
package conjugate

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/linalg"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/sampler"
	"github.com/arnovik/bugsgraph/view"
)

// ErrNotApplicable indicates a constructor was called for a target set
// that CanSampleNormal (or the equivalent for another updater) rejects;
// callers should have checked canSample first, so seeing this indicates a
// factory-pipeline bug rather than a model issue.
var ErrNotApplicable = errors.New("conjugate: structural conditions not met")

// CanSampleNormal reports whether ConjugateNormal applies to targets
// within g, using arena a only to construct the structural view (spec
// §4.G): every target is a free (non-observed) dnorm node, every
// stochastic descendant is a univariate dnorm whose precision parameter
// does not depend on the targets, and whose mean parameter is a linear
// function of the targets.
func CanSampleNormal(targets []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	for _, t := range targets {
		kind, err := g.Node(t)
		if err != nil {
			return false, fmt.Errorf("conjugate: CanSampleNormal: %w", err)
		}
		s, ok := kind.(*node.Stochastic)
		if !ok || s.Observed || s.Dist.Name() != "dnorm" {
			return false, nil
		}
	}

	v, err := view.New(g, a, targets)
	if err != nil {
		return false, fmt.Errorf("conjugate: CanSampleNormal: %w", err)
	}

	for _, child := range v.StochasticChildren() {
		ck, err := g.Node(child)
		if err != nil {
			return false, fmt.Errorf("conjugate: CanSampleNormal: %w", err)
		}
		cs, ok := ck.(*node.Stochastic)
		if !ok || cs.Dist.Name() != "dnorm" {
			return false, nil
		}
		if v.IsDependent(cs.ParamNodes[1]) {
			return false, nil // precision depends on the target(s): disqualified
		}
	}

	gm := dag.NewGraphMarks(g)
	gm.Seed(targets...)
	if err := gm.Propagate(dag.LinearPredicate); err != nil {
		return false, fmt.Errorf("conjugate: CanSampleNormal: %w", err)
	}
	for _, child := range v.StochasticChildren() {
		cs := mustStochastic(g, child)
		if gm.Mark(cs.ParamNodes[0]) != node.TrueMark {
			return false, nil // FalseMark: non-linear; NullMark: independent of the target
		}
	}

	return true, nil
}

func mustStochastic(g *dag.Graph, id arena.ID) *node.Stochastic {
	k, _ := g.Node(id)

	return k.(*node.Stochastic)
}

// ConjugateNormal is the per-chain Method implementing spec §4.G's
// closed-form Normal update. One instance updates one chain; a GLM
// aggregate block of D scalar targets is represented by a single
// instance whose view seed lists all D target IDs.
type ConjugateNormal struct {
	graph   *dag.Graph
	view    *view.View
	targets []arena.ID
	chain   int
	dim     int

	cacheCoeffs bool
	cachedBeta  [][]float64 // cachedBeta[childIdx][dim], populated iff cacheCoeffs

	sampler.Adaptive
}

// NewConjugateNormal constructs the updater for one chain. Callers must
// have confirmed CanSampleNormal(targets, g, a) first.
func NewConjugateNormal(g *dag.Graph, a *arena.Arena, targets []arena.ID, chain int) (*ConjugateNormal, error) {
	ok, err := CanSampleNormal(targets, g, a)
	if err != nil {
		return nil, fmt.Errorf("conjugate: NewConjugateNormal: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("conjugate: NewConjugateNormal: %w", ErrNotApplicable)
	}
	v, err := view.New(g, a, targets)
	if err != nil {
		return nil, fmt.Errorf("conjugate: NewConjugateNormal: %w", err)
	}
	dim := 0
	for _, t := range targets {
		tk, _ := g.Node(t)
		dim += tk.(*node.Stochastic).Len()
	}

	c := &ConjugateNormal{
		graph:    g,
		view:     v,
		targets:  append([]arena.ID{}, targets...),
		chain:    chain,
		dim:      dim,
		Adaptive: sampler.NewAdaptive(),
	}
	c.cacheCoeffs = c.coefficientsAreFixed()
	if c.cacheCoeffs {
		beta, err := c.probeCoefficients()
		if err != nil {
			return nil, fmt.Errorf("conjugate: NewConjugateNormal: %w", err)
		}
		c.cachedBeta = beta
	}

	return c, nil
}

// Name implements sampler.Method.
func (c *ConjugateNormal) Name() string { return "ConjugateNormal" }

// IsAdaptive implements sampler.Method: a closed-form conjugate draw has
// no proposal scale to tune, so it is never adaptive.
func (*ConjugateNormal) IsAdaptive() bool { return false }

// CheckAdaptation implements sampler.Method: trivially converged, since
// there is no adaptation phase to judge.
func (*ConjugateNormal) CheckAdaptation() bool { return true }

// coefficientsAreFixed decides, once at construction, whether each
// child's mean stays a linear function of the targets with coefficients
// that never themselves change — probed by marking every Constant and
// every observed Stochastic node as "fixed" and re-running the linearity
// pass (spec §4.G "probing linearity with the fixed flag set").
func (c *ConjugateNormal) coefficientsAreFixed() bool {
	gm := dag.NewGraphMarks(c.graph)
	var fixedIDs []arena.ID
	for _, id := range c.graph.Nodes() {
		k, _ := c.graph.Node(id)
		switch kk := k.(type) {
		case *node.Constant:
			fixedIDs = append(fixedIDs, id)
		case *node.Stochastic:
			if kk.Observed {
				fixedIDs = append(fixedIDs, id)
			}
		}
	}
	gm.Fix(fixedIDs...)
	gm.Seed(c.targets...)
	if err := gm.Propagate(dag.LinearPredicate); err != nil {
		return false
	}
	for _, child := range c.view.StochasticChildren() {
		cs := mustStochastic(c.graph, child)
		if gm.Mark(cs.ParamNodes[0]) != node.TrueMark {
			return false
		}
	}

	return true
}

// probeCoefficients derives each stochastic child's coefficient vector
// (one entry per target dimension) by finite difference against the
// confirmed-affine mean function: since the mean is linear in the
// targets, mean(x0 + e_d) - mean(x0) equals the exact coefficient of
// dimension d, no approximation involved.
func (c *ConjugateNormal) probeCoefficients() ([][]float64, error) {
	children := c.view.StochasticChildren()
	x0, err := c.flatten()
	if err != nil {
		return nil, err
	}
	baseMeans, err := c.meansAt(children)
	if err != nil {
		return nil, err
	}
	beta := make([][]float64, len(children))
	for i := range beta {
		beta[i] = make([]float64, c.dim)
	}
	for d := 0; d < c.dim; d++ {
		probe := append([]float64{}, x0...)
		probe[d] += 1
		if err := c.view.SetValue(c.reshape(probe), c.chain); err != nil {
			return nil, err
		}
		means, err := c.meansAt(children)
		if err != nil {
			return nil, err
		}
		for i := range children {
			beta[i][d] = means[i] - baseMeans[i]
		}
	}
	if err := c.view.SetValue(c.reshape(x0), c.chain); err != nil {
		return nil, err
	}

	return beta, nil
}

// meansAt reads each child's current mean-parameter value (ParamNodes[0]).
func (c *ConjugateNormal) meansAt(children []arena.ID) ([]float64, error) {
	env := c.view.Evaluator()
	out := make([]float64, len(children))
	for i, ch := range children {
		cs := mustStochastic(c.graph, ch)
		v, err := env.Value(cs.ParamNodes[0], c.chain)
		if err != nil {
			return nil, fmt.Errorf("conjugate: meansAt: %w", err)
		}
		out[i] = v[0]
	}

	return out, nil
}

// flatten reads the current target values into one flat D-length slice.
func (c *ConjugateNormal) flatten() ([]float64, error) {
	bufs, err := c.view.GetValue(c.chain)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, c.dim)
	for _, b := range bufs {
		out = append(out, b...)
	}

	return out, nil
}

// reshape splits a flat D-length slice back into per-target buffers
// matching the seed's declared dims.
func (c *ConjugateNormal) reshape(flat []float64) [][]float64 {
	out := make([][]float64, len(c.targets))
	off := 0
	for i, t := range c.targets {
		tk, _ := c.graph.Node(t)
		n := tk.(*node.Stochastic).Len()
		out[i] = append([]float64{}, flat[off:off+n]...)
		off += n
	}

	return out
}

// Update implements sampler.Method: draws a fresh joint sample for the
// target block from its closed-form Normal full conditional (spec §4.G).
func (c *ConjugateNormal) Update(rng *rand.Rand) error {
	env := c.view.Evaluator()
	x0, err := c.flatten()
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
	}

	mu0 := make([]float64, c.dim)
	tau0 := make([]float64, c.dim)
	off := 0
	for _, t := range c.targets {
		ts := mustStochastic(c.graph, t)
		muV, err := env.Value(ts.ParamNodes[0], c.chain)
		if err != nil {
			return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
		}
		tauV, err := env.Value(ts.ParamNodes[1], c.chain)
		if err != nil {
			return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
		}
		for i := 0; i < ts.Len(); i++ {
			mu0[off+i] = muV[i]
			tau0[off+i] = tauV[i]
		}
		off += ts.Len()
	}

	children := c.view.StochasticChildren()
	baseMeans, err := c.meansAt(children)
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
	}

	var beta [][]float64
	if c.cacheCoeffs {
		beta = c.cachedBeta
	} else {
		beta, err = c.probeCoefficients()
		if err != nil {
			return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
		}
	}

	B, err := linalg.NewDense(c.dim, c.dim)
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
	}
	A := make([]float64, c.dim)
	for d := 0; d < c.dim; d++ {
		B.Add(d, d, tau0[d])
		A[d] += tau0[d] * (mu0[d] - x0[d])
	}
	for i, ch := range children {
		cs := mustStochastic(c.graph, ch)
		tauV, err := env.Value(cs.ParamNodes[1], c.chain)
		if err != nil {
			return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
		}
		yV, err := env.Value(ch, c.chain)
		if err != nil {
			return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
		}
		tauI, y, m := tauV[0], yV[0], baseMeans[i]
		for d := 0; d < c.dim; d++ {
			for e := 0; e < c.dim; e++ {
				B.Add(d, e, tauI*beta[i][d]*beta[i][e])
			}
			A[d] += tauI * beta[i][d] * (y - m)
		}
	}

	shift, err := linalg.Solve(B, A)
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
	}
	muPost := make([]float64, c.dim)
	for d := range muPost {
		muPost[d] = x0[d] + shift[d]
	}

	if c.dim == 1 && len(c.targets) == 1 {
		ts := mustStochastic(c.graph, c.targets[0])
		if ts.Lower != nil || ts.Upper != nil {
			xNew, err := c.sampleBoundedScalar(env, rng, muPost[0], B.At(0, 0), ts)
			if err != nil {
				return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
			}

			return c.view.SetValue(c.reshape([]float64{xNew}), c.chain)
		}
	}

	L, err := linalg.Cholesky(B)
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
	}
	z := make([]float64, c.dim)
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	noise, err := linalg.SolveUpperTriangular(L.Transpose(), z)
	if err != nil {
		return fmt.Errorf("conjugate: ConjugateNormal.Update: %w", err)
	}
	xNew := make([]float64, c.dim)
	for d := range xNew {
		xNew[d] = muPost[d] + noise[d]
	}

	return c.view.SetValue(c.reshape(xNew), c.chain)
}

// sampleBoundedScalar resamples a single truncated scalar target via
// inverse-CDF, clipped to [lower, upper] (spec §4.G "bounded targets
// resample via inverse-CDF clipped to [l,u]").
func (c *ConjugateNormal) sampleBoundedScalar(env node.Evaluator, rng *rand.Rand, mean, precision float64, ts *node.Stochastic) (float64, error) {
	n := dist.NewNormal()
	params := dist.Params{{mean}, {precision}}
	lowerP, upperP := 0.0, 1.0
	if ts.Lower != nil {
		lv, err := env.Value(*ts.Lower, c.chain)
		if err != nil {
			return 0, err
		}
		p, err := n.CDF(lv[0], params)
		if err != nil {
			return 0, err
		}
		lowerP = p
	}
	if ts.Upper != nil {
		uv, err := env.Value(*ts.Upper, c.chain)
		if err != nil {
			return 0, err
		}
		p, err := n.CDF(uv[0], params)
		if err != nil {
			return 0, err
		}
		upperP = p
	}
	u := lowerP + (upperP-lowerP)*rng.Float64()

	return n.Quantile(u, params)
}
