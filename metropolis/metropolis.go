// Package metropolis implements the Metropolis-family updaters (spec
// §4.H): samplers for the free stochastic nodes the GLM conjugate pass
// does not claim, each proposing a move in its own sampler-private
// coordinate space and accepting or rejecting it against the node's
// log full conditional.
//
// Grounded on the original source's Metropolis.h: a base type holding two
// buffers (current value, last-accepted value) in sampler coordinates,
// with setValue/rescale left to each concrete updater, and a shared
// propose/accept loop this package's Metropolis type provides once so
// every concrete updater (RWMetropolis, RealDSum, MixSampler,
// DirichletCat, DSumMethod) reuses it rather than reimplementing the
// accept/reject arithmetic.
package metropolis

import (
	"math/rand"

	"github.com/arnovik/bugsgraph/sampler"
	"github.com/arnovik/bugsgraph/view"
)

// proposalModel is implemented by each concrete updater: it owns the
// mapping between sampler coordinates and the graph view's node
// coordinates, and decides how its proposal scale reacts to an
// accept/reject outcome (spec §4.H "setValue"/"rescale").
type proposalModel interface {
	setValue(value []float64) error
	rescale(p float64, accepted bool)
}

// Metropolis is the shared per-chain base (spec §4.H "Metropolis base
// contract"): it is never used directly, only embedded by a concrete
// updater that also implements proposalModel and binds itself via bind.
type Metropolis struct {
	view  *view.View
	chain int
	model proposalModel

	value        []float64
	lastAccepted []float64

	sampler.Adaptive
}

// newMetropolis constructs the base with an initial sampler-coordinate
// value; the concrete updater must call bind before any propose/accept.
func newMetropolis(v *view.View, chain int, initial []float64) *Metropolis {
	return &Metropolis{
		view:         v,
		chain:        chain,
		value:        append([]float64{}, initial...),
		lastAccepted: append([]float64{}, initial...),
		Adaptive:     sampler.NewAdaptive(),
	}
}

// bind wires the concrete updater implementing proposalModel. Each
// constructor must call this exactly once, after the updater's own fields
// are initialized (since setValue/rescale usually read them).
func (m *Metropolis) bind(model proposalModel) { m.model = model }

// Value returns the sampler's current value in its own coordinate space.
func (m *Metropolis) Value() []float64 { return append([]float64{}, m.value...) }

// propose writes value into the sampler's current-value buffer and maps
// it into node coordinates via the bound model's setValue (spec §4.H
// "propose(new)").
func (m *Metropolis) propose(value []float64) error {
	m.value = append([]float64{}, value...)

	return m.model.setValue(m.value)
}

// logFullConditional reads the bound view's full conditional log density
// at the node coordinates currently written (i.e. after propose).
func (m *Metropolis) logFullConditional() (float64, error) {
	return m.view.LogFullConditional(m.chain)
}

// accept commits the proposed value with probability min(1,p), rolling
// back to the last accepted value otherwise, and — while adaptive —
// always invokes the bound model's rescale hook with the raw probability
// (spec §4.H "accept(rng, exp(logα)) ... calls rescale").
func (m *Metropolis) accept(rng *rand.Rand, p float64) (bool, error) {
	accepted := p >= 1 || rng.Float64() < p
	if accepted {
		m.lastAccepted = append([]float64{}, m.value...)
	} else {
		if err := m.model.setValue(m.lastAccepted); err != nil {
			return false, err
		}
		m.value = append([]float64{}, m.lastAccepted...)
	}
	if m.IsAdaptive() {
		m.model.rescale(p, accepted)
	}

	return accepted, nil
}
