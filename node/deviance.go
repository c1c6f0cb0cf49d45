package node

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
)

// Deviance is the monitor-facing node value <- -2 * sum(logDensity(p_i))
// over a set of stochastic parents (spec §4.C), grounding the DIC-style
// diagnostics in `monitor`. It is never linear or scale (spec §4.C
// "Deviance... Never linear or scale"), matching the original source's
// DevianceNode, which exposes no structural predicates at all since no
// sampler ever treats a deviance node as part of a linear block.
type Deviance struct {
	Header
}

// NewDeviance constructs a Deviance node over the given stochastic
// parents.
func NewDeviance(id arena.ID, name string, parents []arena.ID) *Deviance {
	return &Deviance{Header: NewHeader(id, name, []int{1}, parents)}
}

// IsStochastic implements Kind.
func (*Deviance) IsStochastic() bool { return false }

// DeterministicSample implements Kind: value <- -2 * sum(logDensity(p_i)).
func (d *Deviance) DeterministicSample(a *arena.Arena, chain int, env Evaluator) error {
	var sum float64
	for _, p := range d.Parents() {
		ld, err := env.LogDensity(p, chain)
		if err != nil {
			return fmt.Errorf("node: Deviance(%s): %w", d.Name(), err)
		}
		sum += ld
	}

	return a.Write(d.ID(), chain, []float64{-2 * sum})
}

// CheckParentValues implements Kind: a deviance node imposes no
// additional validity constraint of its own.
func (*Deviance) CheckParentValues(chain int, env Evaluator) (bool, error) { return true, nil }

// IsLinear implements Kind: always false (spec §4.C).
func (*Deviance) IsLinear(marks []Mark, fixed []bool) bool { return false }

// IsScale implements Kind: always false (spec §4.C).
func (*Deviance) IsScale(marks []Mark, fixed []bool) bool { return false }

// IsDiscreteValued implements Kind: always false (Open Question #2,
// resolved in SPEC_FULL.md "assume continuous").
func (*Deviance) IsDiscreteValued() bool { return false }

// Deparse implements Kind.
func (d *Deviance) Deparse(parentNames []string) string {
	return fmt.Sprintf("%s <- deviance(%v)", d.Name(), parentNames)
}
