package node

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dist"
)

// Logical is a deterministic node computed by delegating to a registered
// Function over its parents (spec §4.C "recompute by delegating to the
// function reference").
type Logical struct {
	Header
	Func     dist.Function
	ArgNodes []arena.ID // one entry per function parameter, in order
}

// NewLogical constructs a Logical node. argNodes must align 1:1 with the
// function's parameter list; parents passed to NewHeader should equal
// argNodes (a Logical node has no dependencies beyond its arguments).
func NewLogical(id arena.ID, name string, dims []int, f dist.Function, argNodes []arena.ID) *Logical {
	return &Logical{Header: NewHeader(id, name, dims, argNodes), Func: f, ArgNodes: argNodes}
}

// IsStochastic implements Kind.
func (*Logical) IsStochastic() bool { return false }

// argValues resolves each argument node's current value at chain.
func (l *Logical) argValues(chain int, env Evaluator) (dist.Params, error) {
	params := make(dist.Params, len(l.ArgNodes))
	for i, pid := range l.ArgNodes {
		v, err := env.Value(pid, chain)
		if err != nil {
			return nil, fmt.Errorf("node: Logical(%s): argValues: %w", l.Name(), err)
		}
		params[i] = v
	}

	return params, nil
}

// DeterministicSample implements Kind: evaluates the function and writes
// the result into the arena.
func (l *Logical) DeterministicSample(a *arena.Arena, chain int, env Evaluator) error {
	params, err := l.argValues(chain, env)
	if err != nil {
		return err
	}
	out := make([]float64, l.Len())
	if err := l.Func.Eval(out, params); err != nil {
		return fmt.Errorf("node: Logical(%s): Eval: %w", l.Name(), err)
	}

	return a.Write(l.ID(), chain, out)
}

// CheckParentValues implements Kind: delegates to the function's
// parameter-value validity check.
func (l *Logical) CheckParentValues(chain int, env Evaluator) (bool, error) {
	params, err := l.argValues(chain, env)
	if err != nil {
		return false, err
	}

	return l.Func.CheckParamValue(params), nil
}

// IsLinear implements Kind: FalseMark on any parent is absorbing;
// otherwise the in-play mask (TrueMark entries) and fixed flags are
// handed to the function's own structural predicate.
func (l *Logical) IsLinear(marks []Mark, fixed []bool) bool {
	if anyFalse(marks) {
		return false
	}
	mask := make([]bool, len(marks))
	for i, m := range marks {
		mask[i] = m == TrueMark
	}

	return l.Func.IsLinear(mask, fixed)
}

// IsScale implements Kind: analogous to IsLinear but for the scale
// predicate, and only meaningful for a single in-play parent.
func (l *Logical) IsScale(marks []Mark, fixed []bool) bool {
	if anyFalse(marks) {
		return false
	}
	idx := -1
	for i, m := range marks {
		if m == TrueMark {
			if idx >= 0 {
				return false // more than one parent in play: not a pure scale
			}
			idx = i
		}
	}

	return l.Func.IsScale(idx, fixed)
}

// IsDiscreteValued implements Kind.
func (l *Logical) IsDiscreteValued() bool {
	parentDiscrete := make([]bool, 0, len(l.ArgNodes))
	// Conservative default: callers that need parent discreteness
	// threaded through should prefer the view layer, which knows each
	// parent's own IsDiscreteValued(); absent that, assume continuous
	// parents (the common case for arithmetic functions).
	for range l.ArgNodes {
		parentDiscrete = append(parentDiscrete, false)
	}

	return l.Func.IsDiscreteValued(parentDiscrete)
}

// DiscreteValuedGiven reports discreteness given the actual parent
// discreteness flags, for callers (the dag/view layer) that track them.
func (l *Logical) DiscreteValuedGiven(parentDiscrete []bool) bool {
	return l.Func.IsDiscreteValued(parentDiscrete)
}

// Deparse implements Kind.
func (l *Logical) Deparse(parentNames []string) string {
	return fmt.Sprintf("%s <- %s(%v)", l.Name(), l.Func.Name(), parentNames)
}
