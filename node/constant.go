package node

import "github.com/arnovik/bugsgraph/arena"

// Constant holds a fixed, externally supplied value (model data or a
// literal in the model expression). It has no parents and never changes
// once registered.
type Constant struct {
	Header
	discrete bool
}

// NewConstant constructs a Constant node. discrete marks whether the
// supplied value is integer-valued, for downstream discreteness checks.
func NewConstant(id arena.ID, name string, dims []int, discrete bool) *Constant {
	return &Constant{Header: NewHeader(id, name, dims, nil), discrete: discrete}
}

// IsStochastic implements Kind.
func (*Constant) IsStochastic() bool { return false }

// DeterministicSample implements Kind: a no-op, the value is fixed at
// registration time.
func (*Constant) DeterministicSample(a *arena.Arena, chain int, env Evaluator) error { return nil }

// CheckParentValues implements Kind: trivially true (no parents).
func (*Constant) CheckParentValues(chain int, env Evaluator) (bool, error) { return true, nil }

// IsLinear implements Kind: a constant is linear in anything trivially
// (it contributes no dependency on the seed set).
func (*Constant) IsLinear(marks []Mark, fixed []bool) bool { return true }

// IsScale implements Kind.
func (*Constant) IsScale(marks []Mark, fixed []bool) bool { return true }

// IsDiscreteValued implements Kind.
func (c *Constant) IsDiscreteValued() bool { return c.discrete }

// Deparse implements Kind.
func (c *Constant) Deparse(parentNames []string) string { return c.Name() }
