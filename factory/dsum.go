package factory

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/metropolis"
	"github.com/arnovik/bugsgraph/sampler"
)

// buildDSumBlocks implements DSumFactory.cc's discovery strategy: for
// each remaining free node, look among its stochastic children for an
// observed dsum node whose every parent also sits in the free set: that
// parent set is a sum-constrained block. RealDSum is tried first (the
// continuous case); DSumMethod (the discrete twin) is tried if RealDSum
// declines. A dsum child already claimed by an earlier candidate is
// skipped on a later one, since its whole block has already been formed.
func buildDSumBlocks(g *dag.Graph, a *arena.Arena, free []arena.ID, nchain int) ([]*sampler.Sampler, []arena.ID, error) {
	freeSet := make(map[arena.ID]bool, len(free))
	for _, id := range free {
		freeSet[id] = true
	}
	seenDsum := make(map[arena.ID]bool)

	var samplers []*sampler.Sampler
	var claimed []arena.ID
	for _, id := range free {
		children, err := stochasticChildrenOf(g, a, id)
		if err != nil {
			return nil, nil, fmt.Errorf("factory: buildDSumBlocks: %w", err)
		}
		for _, c := range children {
			if seenDsum[c] {
				continue
			}
			cs := mustStochastic(g, c)
			if !cs.Observed || cs.Dist.Name() != "dsum" {
				continue
			}
			allFree := true
			for _, p := range cs.ParamNodes {
				if !freeSet[p] {
					allFree = false
					break
				}
			}
			if !allFree {
				continue
			}
			seenDsum[c] = true
			block := append([]arena.ID{}, cs.ParamNodes...)

			s, err := tryRealDSum(g, a, block, nchain)
			if err != nil {
				return nil, nil, fmt.Errorf("factory: buildDSumBlocks: %w", err)
			}
			if s == nil {
				s, err = tryDSumMethod(g, a, block, nchain)
				if err != nil {
					return nil, nil, fmt.Errorf("factory: buildDSumBlocks: %w", err)
				}
			}
			if s == nil {
				continue // neither updater applies; leave the block for later passes
			}
			samplers = append(samplers, s)
			claimed = append(claimed, block...)
		}
	}

	return samplers, claimed, nil
}

func tryRealDSum(g *dag.Graph, a *arena.Arena, block []arena.ID, nchain int) (*sampler.Sampler, error) {
	ok, err := metropolis.CanSampleRealDSum(block, g, a)
	if err != nil || !ok {
		return nil, err
	}

	return buildSamplerFor(g, a, block, nchain, func(chain int) (sampler.Method, error) {
		return metropolis.NewRealDSum(g, a, block, chain, 1)
	})
}

func tryDSumMethod(g *dag.Graph, a *arena.Arena, block []arena.ID, nchain int) (*sampler.Sampler, error) {
	ok, err := metropolis.CanSampleDSumMethod(block, g, a)
	if err != nil || !ok {
		return nil, err
	}

	return buildSamplerFor(g, a, block, nchain, func(chain int) (sampler.Method, error) {
		return metropolis.NewDSumMethod(g, a, block, chain)
	})
}
