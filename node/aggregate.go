package node

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
)

// AggregateSegment describes one contiguous slice of a single parent's
// value copied into the Aggregate's output at DestOffset.
type AggregateSegment struct {
	Parent     arena.ID
	ParentFrom int // start offset within the parent's flat value
	Length     int
	DestOffset int // start offset within the Aggregate's own flat value
}

// Aggregate is a deterministic node whose recompute is a pure gather at
// fixed offsets (spec §4.C): it concatenates contiguous slices of its
// parents' values, e.g. `c(x[1:3], y)` or an index range `x[2:5]`.
type Aggregate struct {
	Header
	Segments []AggregateSegment
}

// NewAggregate constructs an Aggregate node. parents passed to NewHeader
// should list each distinct parent referenced by segments, in the same
// order segments reference them by index into marks/fixed (see IsLinear).
func NewAggregate(id arena.ID, name string, dims []int, segments []AggregateSegment, parents []arena.ID) *Aggregate {
	return &Aggregate{Header: NewHeader(id, name, dims, parents), Segments: segments}
}

// IsStochastic implements Kind.
func (*Aggregate) IsStochastic() bool { return false }

// DeterministicSample implements Kind: gathers each segment's source
// slice into the output buffer.
func (ag *Aggregate) DeterministicSample(a *arena.Arena, chain int, env Evaluator) error {
	out := make([]float64, ag.Len())
	for _, seg := range ag.Segments {
		v, err := env.Value(seg.Parent, chain)
		if err != nil {
			return fmt.Errorf("node: Aggregate(%s): %w", ag.Name(), err)
		}
		if seg.ParentFrom+seg.Length > len(v) || seg.DestOffset+seg.Length > len(out) {
			return fmt.Errorf("node: Aggregate(%s): segment out of range", ag.Name())
		}
		copy(out[seg.DestOffset:seg.DestOffset+seg.Length], v[seg.ParentFrom:seg.ParentFrom+seg.Length])
	}

	return a.Write(ag.ID(), chain, out)
}

// CheckParentValues implements Kind: a pure gather imposes no additional
// validity constraint beyond its parents' own.
func (*Aggregate) CheckParentValues(chain int, env Evaluator) (bool, error) { return true, nil }

// IsLinear implements Kind: linear iff at most one distinct parent
// contributes a marked (TrueMark) segment — a gather of a single
// contiguous, order-preserving block is itself linear; gathering pieces
// from two or more in-play parents is not representable as one linear
// coefficient block.
func (ag *Aggregate) IsLinear(marks []Mark, fixed []bool) bool {
	if anyFalse(marks) {
		return false
	}

	return countInPlay(marks) <= 1
}

// IsScale implements Kind: the same single-contiguous-block condition
// also makes the gather a pure scale (identity-copy) transform of its one
// in-play parent.
func (ag *Aggregate) IsScale(marks []Mark, fixed []bool) bool {
	return ag.IsLinear(marks, fixed)
}

// IsDiscreteValued implements Kind: conservatively continuous; callers
// needing exact parent-discreteness propagation should use the view
// layer's per-parent tracking, mirroring Logical.DiscreteValuedGiven.
func (*Aggregate) IsDiscreteValued() bool { return false }

// Deparse implements Kind.
func (ag *Aggregate) Deparse(parentNames []string) string {
	return fmt.Sprintf("%s <- c(%v)", ag.Name(), parentNames)
}
