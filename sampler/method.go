// Package sampler implements the sampler framework (spec §4.F): the
// per-chain update contract every conjugate/metropolis updater satisfies,
// and the three ways a set of per-chain methods is bundled and driven —
// plain, concurrent-across-chains, and GLM-blocked.
//
// Adapted from the teacher's core.GraphOption functional-options shape
// for the adaptation lifecycle's state machine naming, and from
// vanderheijden86-beadwork's use of golang.org/x/sync/errgroup for
// fan-out-with-error-aggregation, reused here for ParallelSampler's
// concurrent per-chain update.
package sampler

import (
	"math/rand"
)

// AdaptState is the three-state adaptation lifecycle a sampler-owned
// state machine drives (spec §9 "Adapting, FrozenUntested, Frozen").
type AdaptState int

const (
	// Adapting is the initial state: every update may call rescale.
	Adapting AdaptState = iota
	// FrozenUntested means adaptOff was called but checkAdaptation has
	// not yet been asked to confirm convergence.
	FrozenUntested
	// Frozen means checkAdaptation has reported convergence; rescale is
	// permanently disabled.
	Frozen
)

// String implements fmt.Stringer for diagnostics.
func (s AdaptState) String() string {
	switch s {
	case Adapting:
		return "adapting"
	case FrozenUntested:
		return "frozen-untested"
	case Frozen:
		return "frozen"
	default:
		return "invalid"
	}
}

// Method is the per-chain update contract (spec §4.F): one instance is
// bound to exactly one chain of one sampled node (or node block), and
// carries whatever adaptation/proposal state that chain's updates need.
type Method interface {
	// Update performs one sampling step for this method's chain, drawing
	// whatever randomness it needs from rng.
	Update(rng *rand.Rand) error
	// IsAdaptive reports whether this method tunes itself during Update.
	IsAdaptive() bool
	// AdaptOff ends the tuning phase; subsequent Update calls must not
	// modify proposal/adaptation state.
	AdaptOff()
	// CheckAdaptation reports whether this method's adaptive phase met
	// its convergence criterion (e.g. acceptance rate within tolerance
	// of its target). Meaningless (and conventionally true) once frozen.
	CheckAdaptation() bool
	// Name returns a diagnostic identifier, typically the updater kind
	// plus the node(s) it owns.
	Name() string
}
