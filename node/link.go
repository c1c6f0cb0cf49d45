package node

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dist"
)

// Link is a deterministic node declared as `f(lhs) <- expr`: it shares
// Logical's recompute mechanics (evaluating the inverse-link Function
// against a single linear-predictor argument) but additionally exposes
// the forward link and its derivative for diagnostics and GLM bookkeeping
// (spec §4.B "Link functions additionally expose link(mu) and
// gradLink(mu)").
type Link struct {
	Header
	Fn     dist.LinkFunction
	Source arena.ID // the single linear-predictor argument node
}

// NewLink constructs a Link node.
func NewLink(id arena.ID, name string, dims []int, fn dist.LinkFunction, source arena.ID) *Link {
	return &Link{Header: NewHeader(id, name, dims, []arena.ID{source}), Fn: fn, Source: source}
}

// IsStochastic implements Kind.
func (*Link) IsStochastic() bool { return false }

// DeterministicSample implements Kind: mu <- f(eta), where f is the
// registered inverse-link function.
func (l *Link) DeterministicSample(a *arena.Arena, chain int, env Evaluator) error {
	eta, err := env.Value(l.Source, chain)
	if err != nil {
		return fmt.Errorf("node: Link(%s): %w", l.Name(), err)
	}
	out := make([]float64, l.Len())
	if err := l.Fn.Eval(out, dist.Params{eta}); err != nil {
		return fmt.Errorf("node: Link(%s): Eval: %w", l.Name(), err)
	}

	return a.Write(l.ID(), chain, out)
}

// CheckParentValues implements Kind.
func (l *Link) CheckParentValues(chain int, env Evaluator) (bool, error) {
	eta, err := env.Value(l.Source, chain)
	if err != nil {
		return false, err
	}

	return l.Fn.CheckParamValue(dist.Params{eta}), nil
}

// IsLinear implements Kind: a link transform is linear only if its single
// source is not in play (mirrors the underlying inverse-link Function's
// own predicate).
func (l *Link) IsLinear(marks []Mark, fixed []bool) bool {
	if anyFalse(marks) {
		return false
	}
	mask := make([]bool, len(marks))
	for i, m := range marks {
		mask[i] = m == TrueMark
	}

	return l.Fn.IsLinear(mask, fixed)
}

// IsScale implements Kind.
func (l *Link) IsScale(marks []Mark, fixed []bool) bool {
	if anyFalse(marks) {
		return false
	}
	idx := -1
	if len(marks) > 0 && marks[0] == TrueMark {
		idx = 0
	}

	return l.Fn.IsScale(idx, fixed)
}

// IsDiscreteValued implements Kind: inverse-link outputs are continuous.
func (l *Link) IsDiscreteValued() bool { return l.Fn.IsDiscreteValued([]bool{false}) }

// MuFromEta computes the forward link's inverse directly, bypassing the
// arena, for callers (e.g. GLM samplers) that need mu at an arbitrary eta
// without a full DeterministicSample write.
func (l *Link) MuFromEta(eta float64) (float64, error) {
	out := make([]float64, 1)
	if err := l.Fn.Eval(out, dist.Params{{eta}}); err != nil {
		return 0, err
	}

	return out[0], nil
}

// EtaFromMu computes the forward link, l.Fn.Link(mu).
func (l *Link) EtaFromMu(mu float64) float64 { return l.Fn.Link(mu) }

// GradLink computes the forward link's derivative at mu.
func (l *Link) GradLink(mu float64) float64 { return l.Fn.GradLink(mu) }

// Deparse implements Kind.
func (l *Link) Deparse(parentNames []string) string {
	return fmt.Sprintf("%s(%s) <- %v", l.Fn.Name(), l.Name(), parentNames)
}
