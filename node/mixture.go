package node

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
)

// Mixture is a deterministic node that selects one of several "choice"
// parents based on the value of one or more integer "index" parents (spec
// §4.C), the compiled form of a BUGS mixture expression like `y[k]` where
// `k` is itself a random index.
type Mixture struct {
	Header
	IndexNodes  []arena.ID
	ChoiceNodes []arena.ID // Parents() == append(IndexNodes, ChoiceNodes...)
}

// NewMixture constructs a Mixture node.
func NewMixture(id arena.ID, name string, dims []int, indexNodes, choiceNodes []arena.ID) *Mixture {
	parents := make([]arena.ID, 0, len(indexNodes)+len(choiceNodes))
	parents = append(parents, indexNodes...)
	parents = append(parents, choiceNodes...)

	return &Mixture{Header: NewHeader(id, name, dims, parents), IndexNodes: indexNodes, ChoiceNodes: choiceNodes}
}

// IsStochastic implements Kind.
func (*Mixture) IsStochastic() bool { return false }

// selectedIndex resolves the (possibly multi-digit, though in practice
// scalar) index parents into a single 0-based selection.
func (m *Mixture) selectedIndex(chain int, env Evaluator) (int, error) {
	if len(m.IndexNodes) != 1 {
		return 0, fmt.Errorf("node: Mixture(%s): only single-index selection is supported", m.Name())
	}
	v, err := env.Value(m.IndexNodes[0], chain)
	if err != nil {
		return 0, fmt.Errorf("node: Mixture(%s): %w", m.Name(), err)
	}
	idx := int(v[0]) - 1 // 1-based BUGS index convention, matching dcat
	if idx < 0 || idx >= len(m.ChoiceNodes) {
		return 0, fmt.Errorf("node: Mixture(%s): index %d out of range [0,%d)", m.Name(), idx, len(m.ChoiceNodes))
	}

	return idx, nil
}

// DeterministicSample implements Kind: copies the selected choice
// parent's value into the output buffer.
func (m *Mixture) DeterministicSample(a *arena.Arena, chain int, env Evaluator) error {
	idx, err := m.selectedIndex(chain, env)
	if err != nil {
		return err
	}
	v, err := env.Value(m.ChoiceNodes[idx], chain)
	if err != nil {
		return fmt.Errorf("node: Mixture(%s): %w", m.Name(), err)
	}
	out := make([]float64, len(v))
	copy(out, v)

	return a.Write(m.ID(), chain, out)
}

// CheckParentValues implements Kind: the index must resolve to a valid
// choice; selectedIndex already enforces that.
func (m *Mixture) CheckParentValues(chain int, env Evaluator) (bool, error) {
	_, err := m.selectedIndex(chain, env)

	return err == nil, nil
}

// IsLinear implements Kind: fails if any index parent is in play or
// already FalseMark (the target being switched on breaks linearity
// regardless of which way); otherwise succeeds unless a choice parent's
// mark shows a non-linear
// dependency was already found upstream (FalseMark, handled by
// anyFalse — a choice parent's TrueMark already certifies it is itself
// linear/scale, since that is how the marks forward pass computed it).
func (m *Mixture) IsLinear(marks []Mark, fixed []bool) bool {
	idxMarks := marks[:len(m.IndexNodes)]
	choiceMarks := marks[len(m.IndexNodes):]
	for _, im := range idxMarks {
		if im != NullMark {
			return false
		}
	}

	return !anyFalse(choiceMarks)
}

// IsScale implements Kind: identical gating to IsLinear — a mixture's
// scale-marks pass uses the same index/choice structure.
func (m *Mixture) IsScale(marks []Mark, fixed []bool) bool {
	return m.IsLinear(marks, fixed)
}

// IsDiscreteValued implements Kind: conservatively continuous; exact
// discreteness depends on which choice parent is currently selected and
// is resolved by the view layer when needed.
func (*Mixture) IsDiscreteValued() bool { return false }

// Deparse implements Kind.
func (m *Mixture) Deparse(parentNames []string) string {
	return fmt.Sprintf("%s <- mix(%v)", m.Name(), parentNames)
}
