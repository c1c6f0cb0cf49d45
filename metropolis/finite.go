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

// CanSampleFiniteMethod reports whether target is a free, scalar,
// discrete-valued stochastic node whose support is a known, finite set of
// consecutive integers: a bare dcat node (support {1,...,K}, K the length
// of its weight-vector parent) or any discrete node carrying explicit
// Lower/Upper truncation bounds. Grounded on the original source's
// FiniteMethod.h, "sampler for discrete distributions with support on a
// finite set". Tried ahead of RWMetropolis so a discrete node is never
// perturbed with a continuous Gaussian proposal truncated into an integer.
func CanSampleFiniteMethod(target arena.ID, g *dag.Graph) (bool, error) {
	k, err := g.Node(target)
	if err != nil {
		return false, fmt.Errorf("metropolis: CanSampleFiniteMethod: %w", err)
	}
	s, ok := k.(*node.Stochastic)
	if !ok || s.Observed || s.Len() != 1 || !s.IsDiscreteValued() {
		return false, nil
	}
	if s.Dist.Name() == "dcat" {
		return true, nil
	}

	return s.Lower != nil && s.Upper != nil, nil
}

// FiniteMethod is the per-chain updater for a scalar discrete node with
// finite support: at each step it evaluates the log full conditional at
// every candidate in its support and draws the next value exactly from the
// resulting categorical distribution, rather than proposing and
// accepting/rejecting a single candidate. There is nothing to tune, so it
// is never adaptive (grounded on FiniteMethod.h's "has no adaptive mode").
type FiniteMethod struct {
	*Metropolis
	target  arena.ID
	support []float64
}

// NewFiniteMethod constructs the updater for one chain.
func NewFiniteMethod(g *dag.Graph, a *arena.Arena, target arena.ID, chain int) (*FiniteMethod, error) {
	ok, err := CanSampleFiniteMethod(target, g)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewFiniteMethod: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("metropolis: NewFiniteMethod: structural conditions not met")
	}
	s := mustStochastic(g, target)

	v, err := view.New(g, a, []arena.ID{target})
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewFiniteMethod: %w", err)
	}

	lower, upper, err := finiteBounds(g, s, chain, v.Evaluator())
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewFiniteMethod: %w", err)
	}
	if upper < lower {
		return nil, fmt.Errorf("metropolis: NewFiniteMethod: empty support [%d,%d]", lower, upper)
	}
	support := make([]float64, 0, upper-lower+1)
	for x := lower; x <= upper; x++ {
		support = append(support, float64(x))
	}

	x0, err := v.GetValue(chain)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewFiniteMethod: %w", err)
	}

	fm := &FiniteMethod{Metropolis: newMetropolis(v, chain, flattenOne(x0)), target: target, support: support}
	fm.bind(fm)

	return fm, nil
}

// finiteBounds resolves the integer support [lower,upper] for s: the
// weight-vector parent's length for dcat, or its declared truncation
// bounds for anything else CanSampleFiniteMethod accepted.
func finiteBounds(g *dag.Graph, s *node.Stochastic, chain int, env node.Evaluator) (int, int, error) {
	if s.Dist.Name() == "dcat" {
		p, err := g.Node(s.ParamNodes[0])
		if err != nil {
			return 0, 0, err
		}
		k := 1
		for _, d := range p.Dims() {
			k *= d
		}

		return 1, k, nil
	}

	lo, err := env.Value(*s.Lower, chain)
	if err != nil {
		return 0, 0, err
	}
	hi, err := env.Value(*s.Upper, chain)
	if err != nil {
		return 0, 0, err
	}

	return int(math.Round(lo[0])), int(math.Round(hi[0])), nil
}

// Name implements sampler.Method.
func (fm *FiniteMethod) Name() string { return "FiniteMethod" }

// setValue implements proposalModel: identity map into node coordinates.
func (fm *FiniteMethod) setValue(value []float64) error {
	return fm.view.SetValue(reshapeOne(value), fm.chain)
}

// rescale implements proposalModel: no-op, there is no scale to tune.
func (*FiniteMethod) rescale(float64, bool) {}

// IsAdaptive implements sampler.Method: an exact draw has nothing to adapt.
func (*FiniteMethod) IsAdaptive() bool { return false }

// CheckAdaptation implements sampler.Method.
func (*FiniteMethod) CheckAdaptation() bool { return true }

// Update implements sampler.Method: evaluates the log full conditional at
// every point in the node's finite support, then draws the next value
// exactly from the categorical distribution those log-densities define
// (a single-site Gibbs step, not an accept/reject proposal).
func (fm *FiniteMethod) Update(rng *rand.Rand) error {
	logDens := make([]float64, len(fm.support))
	maxLog := math.Inf(-1)
	for i, x := range fm.support {
		if err := fm.propose([]float64{x}); err != nil {
			return fmt.Errorf("metropolis: FiniteMethod.Update: %w", err)
		}
		lp, err := fm.logFullConditional()
		if err != nil {
			return fmt.Errorf("metropolis: FiniteMethod.Update: %w", err)
		}
		logDens[i] = lp
		if lp > maxLog {
			maxLog = lp
		}
	}

	weights := make([]float64, len(logDens))
	var sum float64
	for i, lp := range logDens {
		w := math.Exp(lp - maxLog)
		weights[i] = w
		sum += w
	}

	chosen := len(fm.support) - 1
	u := rng.Float64() * sum
	var cum float64
	for i, w := range weights {
		cum += w
		if u <= cum {
			chosen = i

			break
		}
	}

	if err := fm.propose([]float64{fm.support[chosen]}); err != nil {
		return fmt.Errorf("metropolis: FiniteMethod.Update: %w", err)
	}
	fm.lastAccepted = append([]float64{}, fm.value...)

	return nil
}
