package node

import (
	"fmt"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dist"
)

// Stochastic is a node carrying a random variable: either sampled by an
// updater (free) or fixed to supplied data (Observed). Its distribution
// parameters are themselves node values, resolved through env at
// evaluation time, following the BUGS convention that dnorm(mu, tau)'s mu
// and tau are graph nodes, not literals.
type Stochastic struct {
	Header
	Dist       dist.Distribution
	ParamNodes []arena.ID // one parent per distribution parameter, in order
	Lower      *arena.ID  // optional truncation lower-bound parent
	Upper      *arena.ID  // optional truncation upper-bound parent
	Observed   bool
}

// NewStochastic constructs a Stochastic node. parents must equal
// len(paramNodes) (+1 or +2 if Lower/Upper are supplied); callers pass the
// full parent list so Header.Parents() enumerates every upstream
// dependency including bounds.
func NewStochastic(id arena.ID, name string, dims []int, d dist.Distribution, paramNodes []arena.ID, lower, upper *arena.ID, observed bool, parents []arena.ID) *Stochastic {
	return &Stochastic{
		Header:     NewHeader(id, name, dims, parents),
		Dist:       d,
		ParamNodes: paramNodes,
		Lower:      lower,
		Upper:      upper,
		Observed:   observed,
	}
}

// IsStochastic implements Kind.
func (*Stochastic) IsStochastic() bool { return true }

// DeterministicSample implements Kind: a no-op; a stochastic node's value
// is written only by its updater (spec §4.A "writes to a deterministic
// node are allowed only from within that node's recomputation").
func (*Stochastic) DeterministicSample(a *arena.Arena, chain int, env Evaluator) error { return nil }

// paramValues resolves each parameter node's current value at chain.
func (s *Stochastic) paramValues(chain int, env Evaluator) (dist.Params, error) {
	params := make(dist.Params, len(s.ParamNodes))
	for i, pid := range s.ParamNodes {
		v, err := env.Value(pid, chain)
		if err != nil {
			return nil, fmt.Errorf("node: Stochastic(%s): paramValues: %w", s.Name(), err)
		}
		params[i] = v
	}

	return params, nil
}

// bounds resolves the optional truncation bounds at chain.
func (s *Stochastic) bounds(chain int, env Evaluator) (*float64, *float64, error) {
	var lower, upper *float64
	if s.Lower != nil {
		v, err := env.Value(*s.Lower, chain)
		if err != nil {
			return nil, nil, err
		}
		lv := v[0]
		lower = &lv
	}
	if s.Upper != nil {
		v, err := env.Value(*s.Upper, chain)
		if err != nil {
			return nil, nil, err
		}
		uv := v[0]
		upper = &uv
	}

	return lower, upper, nil
}

// CheckParentValues implements Kind: delegates to the distribution's
// parameter-value validity check.
func (s *Stochastic) CheckParentValues(chain int, env Evaluator) (bool, error) {
	params, err := s.paramValues(chain, env)
	if err != nil {
		return false, err
	}

	return s.Dist.CheckParamValue(params), nil
}

// LogDensity evaluates this node's log density at its current value and
// parameters, honoring truncation bounds if present.
func (s *Stochastic) LogDensity(value []float64, chain int, env Evaluator) (float64, error) {
	params, err := s.paramValues(chain, env)
	if err != nil {
		return 0, err
	}
	lower, upper, err := s.bounds(chain, env)
	if err != nil {
		return 0, err
	}

	return s.Dist.LogDensity(value, params, lower, upper)
}

// Rand draws a fresh sample from this node's current parameter values,
// used for initial-value generation and forward simulation.
func (s *Stochastic) Rand(rng *rand.Rand, chain int, env Evaluator) ([]float64, error) {
	params, err := s.paramValues(chain, env)
	if err != nil {
		return nil, err
	}

	return s.Dist.Rand(rng, params)
}

// IsLinear implements Kind: a stochastic node is a leaf of any
// linear-marks pass seeded elsewhere; it never itself propagates a
// linearity verdict downstream through this method (its downstream
// children mark it via their own parent-marks lookup, not by calling
// this), so it conservatively reports false.
func (*Stochastic) IsLinear(marks []Mark, fixed []bool) bool { return false }

// IsScale implements Kind.
func (*Stochastic) IsScale(marks []Mark, fixed []bool) bool { return false }

// IsDiscreteValued implements Kind.
func (s *Stochastic) IsDiscreteValued() bool { return s.Dist.IsDiscreteValued() }

// Deparse implements Kind.
func (s *Stochastic) Deparse(parentNames []string) string {
	return fmt.Sprintf("%s ~ %s(%v)", s.Name(), s.Dist.Name(), parentNames)
}
