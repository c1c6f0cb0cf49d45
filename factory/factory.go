// Package factory implements the sampler-factory pipeline (spec §4.I): a
// fixed-priority list of factories tried against the model's free
// stochastic nodes, each claiming a node or a block of nodes and
// producing one sampler.Sampler per claim. Any node left unclaimed once
// every factory has been tried is a fatal compilation error.
//
// Grounded on modules/glm/samplers/GLMFactory.cc (greedy block
// aggregation sorted by decreasing stochastic-child count, validated with
// a fresh structural check before committing) and
// modules/bugs/samplers/DSumFactory.cc (locate a claimed node's dsum
// child, collect its co-parents, hand the block to the constrained
// updater) — both reused here as the two block-forming strategies ahead
// of the per-node fallbacks.
package factory

import (
	"errors"
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/sampler"
	"github.com/arnovik/bugsgraph/view"
)

// ErrNoSampler indicates the pipeline exhausted every factory without
// claiming a free node (spec §7 "no-sampler").
var ErrNoSampler = errors.New("factory: no sampler claims node")

// Factory is one strategy in the fixed-priority pipeline. CanSample
// reports whether this factory can claim nodes (a single node, or — for
// block factories — the exact block passed in); Make builds one
// sampler.Method per chain and bundles them into a Sampler.
type Factory interface {
	// Name identifies the factory for diagnostics.
	Name() string
	// CanSample reports whether this factory claims nodes as a unit.
	CanSample(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error)
	// Make constructs nchain per-chain methods over nodes and bundles
	// them into a Sampler. Only called after CanSample has returned true
	// for the same nodes.
	Make(g *dag.Graph, a *arena.Arena, nodes []arena.ID, nchain int) (*sampler.Sampler, error)
}

// Pipeline holds the fixed priority order the spec assigns each factory
// kind: GLM block aggregation (ConjugateNormal), then the sum-constraint
// and mixture block updaters, then the per-node conjugate family and the
// remaining fallback updaters, with RWMetropolis last since it claims any
// remaining free continuous node.
type Pipeline struct {
	singleFactories []Factory // tried per remaining free node, in order
}

// NewPipeline returns the pipeline in the priority order spec §4.I
// describes: conjugate Dirichlet, truncated Gamma, DirichletCat,
// FiniteMethod for any remaining discrete-valued node, then RWMetropolis
// as the final (continuous-only) fallback. GLM block aggregation and the
// sum-constraint block passes run separately, ahead of this per-node
// loop, since they must see the whole free set at once.
func NewPipeline() *Pipeline {
	return &Pipeline{
		singleFactories: []Factory{
			dirichletFactory{},
			truncatedGammaFactory{},
			dirichletCatFactory{},
			finiteMethodFactory{},
			rwMetropolisFactory{},
		},
	}
}

// FreeStochasticNodes returns every unobserved stochastic node of g, in
// graph declaration order.
func FreeStochasticNodes(g *dag.Graph) ([]arena.ID, error) {
	var free []arena.ID
	for _, id := range g.Nodes() {
		k, err := g.Node(id)
		if err != nil {
			return nil, fmt.Errorf("factory: FreeStochasticNodes: %w", err)
		}
		if s, ok := k.(*node.Stochastic); ok && !s.Observed {
			free = append(free, id)
		}
	}

	return free, nil
}

// Build runs the whole pipeline against g's free stochastic nodes and
// returns one Sampler per claim, in the order claims were made (spec §5
// "updaters execute in the fixed order established at model
// finalization"). A free node left unclaimed after every pass is a fatal
// error naming the node (spec §4.I, §7 "no-sampler").
func (p *Pipeline) Build(g *dag.Graph, a *arena.Arena, nchain int) ([]*sampler.Sampler, error) {
	free, err := FreeStochasticNodes(g)
	if err != nil {
		return nil, fmt.Errorf("factory: Build: %w", err)
	}
	claimed := make(map[arena.ID]bool, len(free))
	var samplers []*sampler.Sampler

	glmSamplers, glmClaimed, err := buildGLMBlocks(g, a, free, nchain)
	if err != nil {
		return nil, fmt.Errorf("factory: Build: %w", err)
	}
	samplers = append(samplers, glmSamplers...)
	for _, id := range glmClaimed {
		claimed[id] = true
	}

	remaining := func() []arena.ID {
		var r []arena.ID
		for _, id := range free {
			if !claimed[id] {
				r = append(r, id)
			}
		}

		return r
	}

	dsumSamplers, dsumClaimed, err := buildDSumBlocks(g, a, remaining(), nchain)
	if err != nil {
		return nil, fmt.Errorf("factory: Build: %w", err)
	}
	samplers = append(samplers, dsumSamplers...)
	for _, id := range dsumClaimed {
		claimed[id] = true
	}

	mixSamplers, mixClaimed, err := buildMixBlocks(g, a, remaining(), nchain)
	if err != nil {
		return nil, fmt.Errorf("factory: Build: %w", err)
	}
	samplers = append(samplers, mixSamplers...)
	for _, id := range mixClaimed {
		claimed[id] = true
	}

	for _, id := range remaining() {
		s, err := p.claimSingle(g, a, id, nchain)
		if err != nil {
			return nil, fmt.Errorf("factory: Build: %w", err)
		}
		if s == nil {
			k, _ := g.Node(id)
			return nil, fmt.Errorf("factory: Build: %w: node %q", ErrNoSampler, k.Name())
		}
		samplers = append(samplers, s)
		claimed[id] = true
	}

	return samplers, nil
}

// claimSingle tries each single-node factory, in priority order, against
// one free node.
func (p *Pipeline) claimSingle(g *dag.Graph, a *arena.Arena, id arena.ID, nchain int) (*sampler.Sampler, error) {
	for _, f := range p.singleFactories {
		ok, err := f.CanSample([]arena.ID{id}, g, a)
		if err != nil {
			return nil, fmt.Errorf("factory: %s: %w", f.Name(), err)
		}
		if !ok {
			continue
		}
		s, err := f.Make(g, a, []arena.ID{id}, nchain)
		if err != nil {
			return nil, fmt.Errorf("factory: %s: %w", f.Name(), err)
		}

		return s, nil
	}

	return nil, nil
}

// stochasticChildrenOf returns id's immediate stochastic children via a
// throwaway single-node view, the same boundary a block factory consults
// to decide whether two candidates overlap.
func stochasticChildrenOf(g *dag.Graph, a *arena.Arena, id arena.ID) ([]arena.ID, error) {
	v, err := view.New(g, a, []arena.ID{id})
	if err != nil {
		return nil, err
	}

	return v.StochasticChildren(), nil
}

func mustStochastic(g *dag.Graph, id arena.ID) *node.Stochastic {
	k, _ := g.Node(id)

	return k.(*node.Stochastic)
}

// buildSamplerFor is the shared per-chain assembly step every factory.Make
// implementation uses: build a view over nodes once (for the returned
// Sampler's diagnostic View()), then ask newMethod to build one method
// per chain.
func buildSamplerFor(g *dag.Graph, a *arena.Arena, nodes []arena.ID, nchain int, newMethod func(chain int) (sampler.Method, error)) (*sampler.Sampler, error) {
	v, err := view.New(g, a, nodes)
	if err != nil {
		return nil, err
	}
	methods := make([]sampler.Method, nchain)
	for c := 0; c < nchain; c++ {
		m, err := newMethod(c)
		if err != nil {
			return nil, err
		}
		methods[c] = m
	}
	s, err := sampler.New(v, methods)
	if err != nil {
		return nil, err
	}

	return s, nil
}
