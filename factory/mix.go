package factory

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/metropolis"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/sampler"
)

// buildMixBlocks is the pipeline's last block-forming pass, tried after
// the GLM (ConjugateNormal) pass and the sum-constraint updaters have
// claimed whatever they could, and before the per-node factories
// (ConjugateDirichlet and TruncatedGamma included): it reuses the same
// shared-stochastic-child
// grouping aggregateByOverlap applies for GLM blocks, here validated by
// metropolis.CanSampleMixSampler instead of conjugate.CanSampleNormal, to
// catch continuous multi-component blocks whose prior is not Normal (so
// the GLM pass never considered them) but whose components are still
// correlated through a shared likelihood. Singleton "blocks" (a candidate
// that overlapped no other free node) are left unclaimed here for the
// per-node factories, since MixSampler requires at least two components.
func buildMixBlocks(g *dag.Graph, a *arena.Arena, free []arena.ID, nchain int) ([]*sampler.Sampler, []arena.ID, error) {
	candidates, err := collectCandidates(g, a, free, func(id arena.ID) (bool, error) {
		k, err := g.Node(id)
		if err != nil {
			return false, err
		}
		s, ok := k.(*node.Stochastic)

		return ok && !s.Observed && !s.IsDiscreteValued(), nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("factory: buildMixBlocks: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	blocks, err := aggregateByOverlap(candidates, func(block []arena.ID) (bool, error) {
		return metropolis.CanSampleMixSampler(block, g)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("factory: buildMixBlocks: %w", err)
	}

	var samplers []*sampler.Sampler
	var claimed []arena.ID
	for _, block := range blocks {
		if len(block) < 2 {
			continue
		}
		s, err := buildSamplerFor(g, a, block, nchain, func(chain int) (sampler.Method, error) {
			return metropolis.NewMixSampler(g, a, block, chain, 0, -1)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("factory: buildMixBlocks: %w", err)
		}
		samplers = append(samplers, s)
		claimed = append(claimed, block...)
	}

	return samplers, claimed, nil
}
