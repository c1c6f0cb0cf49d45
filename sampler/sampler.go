package sampler

import (
	"errors"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/arnovik/bugsgraph/view"
)

// ErrChainCountMismatch indicates a Sampler was constructed, or Update was
// called, with a methods/rngs slice whose length does not match the
// sampler's declared chain count.
var ErrChainCountMismatch = errors.New("sampler: chain count mismatch")

// Sampler bundles a graph view with one Method per chain (spec §4.F).
// Update invokes each chain's method in order; chains are assumed to be
// run sequentially by default (spec §5 "single-threaded cooperative
// within a chain").
type Sampler struct {
	view    *view.View
	methods []Method // methods[c] updates chain c
}

// New constructs a Sampler over v with one method per chain, in chain
// order.
func New(v *view.View, methods []Method) (*Sampler, error) {
	if len(methods) == 0 {
		return nil, fmt.Errorf("sampler: New: %w: zero methods", ErrChainCountMismatch)
	}

	return &Sampler{view: v, methods: methods}, nil
}

// View returns the graph view this sampler updates.
func (s *Sampler) View() *view.View { return s.view }

// NumChains reports how many per-chain methods this sampler holds.
func (s *Sampler) NumChains() int { return len(s.methods) }

// Method returns the method bound to chain c.
func (s *Sampler) Method(c int) (Method, error) {
	if c < 0 || c >= len(s.methods) {
		return nil, fmt.Errorf("sampler: Method(%d): %w", c, ErrChainCountMismatch)
	}

	return s.methods[c], nil
}

// Update invokes every chain's method against its rng, in chain order
// (spec §5 "an iteration over chain c consists of ... invoke its method
// for chain c"). The first error aborts the remaining chains.
func (s *Sampler) Update(rngs []*rand.Rand) error {
	if len(rngs) != len(s.methods) {
		return fmt.Errorf("sampler: Update: %w (got %d rngs, want %d)", ErrChainCountMismatch, len(rngs), len(s.methods))
	}
	for c, m := range s.methods {
		if err := m.Update(rngs[c]); err != nil {
			return fmt.Errorf("sampler: Update: chain %d: %w", c, err)
		}
	}

	return nil
}

// Name returns chain 0's method name as the sampler's diagnostic name;
// chains of one sampler always share an updater kind, so that one name
// stands in for the sampler.
func (s *Sampler) Name() string {
	if len(s.methods) == 0 {
		return "sampler(empty)"
	}

	return s.methods[0].Name()
}

// ParallelSampler is the variant that declares its per-chain methods
// independent (spec §4.F, §5): Update fans each chain's method out to its
// own goroutine via errgroup, relying on the caller's disjoint per-chain
// RNGs and value-arena slots for safety.
type ParallelSampler struct {
	*Sampler
}

// NewParallel wraps an existing Sampler to update its chains concurrently.
func NewParallel(s *Sampler) *ParallelSampler { return &ParallelSampler{Sampler: s} }

// Update runs every chain's method concurrently, returning the first
// error encountered (errgroup semantics); other in-flight goroutines run
// to completion since Metropolis/conjugate updates have no cancellation
// points (spec §5 "an in-flight update always runs to completion").
func (p *ParallelSampler) Update(rngs []*rand.Rand) error {
	if len(rngs) != len(p.methods) {
		return fmt.Errorf("sampler: ParallelSampler.Update: %w (got %d rngs, want %d)", ErrChainCountMismatch, len(rngs), len(p.methods))
	}

	var g errgroup.Group
	for c, m := range p.methods {
		c, m := c, m
		g.Go(func() error {
			if err := m.Update(rngs[c]); err != nil {
				return fmt.Errorf("sampler: ParallelSampler.Update: chain %d: %w", c, err)
			}

			return nil
		})
	}

	return g.Wait()
}

// GLMSampler is the variant that owns sub-views and updates a blocked set
// of stochastic nodes with a primary method plus auxiliary per-sub-view
// methods (spec §4.F, §4.I "GLM factory greedily aggregates ... into a
// joint linear block").
type GLMSampler struct {
	primary   *Sampler
	subViews  []*view.View
	auxiliary []*Sampler // auxiliary[i] updates subViews[i]
}

// NewGLM constructs a GLMSampler from a primary joint-block sampler and
// one auxiliary sampler per sub-view. len(auxiliary) must equal
// len(subViews); either may be zero-length if the block needs no
// per-sub-view auxiliary updates.
func NewGLM(primary *Sampler, subViews []*view.View, auxiliary []*Sampler) (*GLMSampler, error) {
	if primary == nil {
		return nil, fmt.Errorf("sampler: NewGLM: %w: nil primary", ErrChainCountMismatch)
	}
	if len(auxiliary) != len(subViews) {
		return nil, fmt.Errorf("sampler: NewGLM: %w: %d sub-views, %d auxiliary samplers", ErrChainCountMismatch, len(subViews), len(auxiliary))
	}

	return &GLMSampler{primary: primary, subViews: subViews, auxiliary: auxiliary}, nil
}

// View returns the primary (joint-block) graph view.
func (g *GLMSampler) View() *view.View { return g.primary.View() }

// SubViews returns the owned sub-views, in construction order.
func (g *GLMSampler) SubViews() []*view.View { return append([]*view.View{}, g.subViews...) }

// Update runs the primary method for every chain, then each auxiliary
// sampler in turn (spec §4.F "a primary method plus auxiliary
// per-sub-view methods").
func (g *GLMSampler) Update(rngs []*rand.Rand) error {
	if err := g.primary.Update(rngs); err != nil {
		return fmt.Errorf("sampler: GLMSampler.Update: primary: %w", err)
	}
	for i, aux := range g.auxiliary {
		if err := aux.Update(rngs); err != nil {
			return fmt.Errorf("sampler: GLMSampler.Update: auxiliary %d: %w", i, err)
		}
	}

	return nil
}

// Name returns the primary sampler's diagnostic name, prefixed to mark
// the block as a GLM aggregate (spec §8 scenario 4 "sampler kind contains
// GLM").
func (g *GLMSampler) Name() string {
	return "GLM(" + g.primary.Name() + ")"
}
