// Package node implements the node taxonomy (spec §4.C): the closed set of
// seven kinds a compiled graph is built from, sharing a common header
// (stable arena ID, declared name, output dimension, parent list) and each
// implementing the behavior the graph/view/sampler layers depend on:
// recomputing a deterministic value, checking parent validity, the two
// structural predicates used by the marks forward pass (spec §4.D), a
// discreteness predicate, and a diagnostic deparse.
//
// Node kinds are a closed tagged variant, not an open interface hierarchy
// (spec §9 "avoid open inheritance because the kinds are closed by
// design"): every Kind implementation in this package is one of Constant,
// Stochastic, Logical, Link, Aggregate, Mixture, or Deviance, and callers
// that need to distinguish them do so with a type switch rather than a
// discriminator field.
//
// Adapted from the teacher's core.Vertex/Edge: small, data-carrying
// structs with a shared identity convention, here generalized to carry
// the graph-semantic behavior spec.md requires instead of plain topology.
package node

import (
	"errors"

	"github.com/arnovik/bugsgraph/arena"
)

// Mark is the ternary state the marks forward pass (spec §4.D) assigns to
// a node: NullMark means independent of the seed set, TrueMark means a
// linear/scale dependency has been confirmed so far, FalseMark means a
// non-linear/non-scale dependency was detected upstream and is absorbing.
type Mark int

const (
	// NullMark indicates the node is independent of the marks pass's seed set.
	NullMark Mark = iota
	// TrueMark indicates the node is in play: its value is a confirmed
	// linear (or scale) function of the seed set so far.
	TrueMark
	// FalseMark indicates a non-linear/non-scale dependency was already
	// detected upstream; it propagates to every downstream node.
	FalseMark
)

// String implements fmt.Stringer for diagnostics.
func (m Mark) String() string {
	switch m {
	case NullMark:
		return "null"
	case TrueMark:
		return "true"
	case FalseMark:
		return "false"
	default:
		return "invalid"
	}
}

// ErrWrongParentCount indicates a kind was constructed with a parent list
// of unexpected length.
var ErrWrongParentCount = errors.New("node: wrong parent count")

// Evaluator is the read-only view a node's DeterministicSample and
// CheckParentValues consult to learn about its parents. Concrete
// implementations live in the view/dag layer, which alone knows how to
// resolve a parent ID to its current arena buffer or (for stochastic
// parents) its distribution and parameters; node itself only declares the
// contract so the taxonomy has no import-cycle dependency on the graph
// that owns it.
type Evaluator interface {
	// Value returns the current value buffer for id at chain. The slice
	// aliases arena storage and must not be retained past the call.
	Value(id arena.ID, chain int) ([]float64, error)
	// LogDensity returns a stochastic node's current log density at
	// chain, evaluated at its present value and parameter values.
	LogDensity(id arena.ID, chain int) (float64, error)
}

// Header is the common state every Kind embeds: identity, declared output
// dimension, and the ordered parent list that defines the node's edges in
// the graph (spec §9 "shared behavior ... lives in a common header").
type Header struct {
	id      arena.ID
	name    string
	dims    []int
	parents []arena.ID
}

// NewHeader constructs a Header. dims is the node's output shape (flat
// length = arena buffer length); parents lists every upstream node this
// one reads from, in declaration order.
func NewHeader(id arena.ID, name string, dims []int, parents []arena.ID) Header {
	return Header{id: id, name: name, dims: dims, parents: parents}
}

// ID returns the node's stable arena identifier.
func (h Header) ID() arena.ID { return h.id }

// Name returns the node's declared name, used in deparse and diagnostics.
func (h Header) Name() string { return h.name }

// Dims returns the node's output shape.
func (h Header) Dims() []int { return h.dims }

// Len returns the flat buffer length (product of Dims).
func (h Header) Len() int {
	n := 1
	for _, d := range h.dims {
		n *= d
	}

	return n
}

// Parents returns the node's ordered parent list.
func (h Header) Parents() []arena.ID { return h.parents }

// Kind is the behavior every node taxonomy member implements (spec §4.C).
type Kind interface {
	// ID returns the node's stable arena identifier.
	ID() arena.ID
	// Name returns the node's declared name.
	Name() string
	// Dims returns the node's output shape.
	Dims() []int
	// Parents returns the node's ordered parent list.
	Parents() []arena.ID
	// IsStochastic reports whether this node owns a random draw (true
	// only for the Stochastic kind); it gates which nodes the sampler
	// framework and factory pipeline may claim.
	IsStochastic() bool
	// DeterministicSample recomputes the node's value from its parents
	// into the arena for chain. A no-op for Constant and Stochastic.
	DeterministicSample(a *arena.Arena, chain int, env Evaluator) error
	// CheckParentValues reports whether the node's current parent values
	// are within the domain this node requires (e.g. a distribution's
	// parameter validity, or a function's CheckParamValue).
	CheckParentValues(chain int, env Evaluator) (bool, error)
	// IsLinear reports, given the marks of this node's parents (aligned
	//1:1 with Parents()) and which of them are fixed (observed/constant
	// for this evaluation), whether this node's value is a linear
	// function of the nodes marked TrueMark.
	IsLinear(marks []Mark, fixed []bool) bool
	// IsScale reports the analogous predicate for pure scale (no additive
	// shift) dependence.
	IsScale(marks []Mark, fixed []bool) bool
	// IsDiscreteValued reports whether this node's support is integers.
	IsDiscreteValued() bool
	// Deparse renders a diagnostic expression string using parentNames in
	// Parents() order.
	Deparse(parentNames []string) string
}

// anyFalse reports whether any entry of marks is FalseMark, the absorbing
// state every deterministic kind must propagate.
func anyFalse(marks []Mark) bool {
	for _, m := range marks {
		if m == FalseMark {
			return true
		}
	}

	return false
}

// countInPlay counts parents marked TrueMark.
func countInPlay(marks []Mark) int {
	n := 0
	for _, m := range marks {
		if m == TrueMark {
			n++
		}
	}

	return n
}
