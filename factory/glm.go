package factory

import (
	"fmt"
	"sort"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/conjugate"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/sampler"
)

// candidateBlock is one free stochastic node under consideration for
// block aggregation, together with the stochastic children its own value
// reaches — the overlap test aggregateByOverlap consults.
type candidateBlock struct {
	node     arena.ID
	children map[arena.ID]bool
}

// collectCandidates builds one candidateBlock per id in free that passes
// accept, each carrying its own stochastic-children set.
func collectCandidates(g *dag.Graph, a *arena.Arena, free []arena.ID, accept func(id arena.ID) (bool, error)) ([]candidateBlock, error) {
	var out []candidateBlock
	for _, id := range free {
		ok, err := accept(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		children, err := stochasticChildrenOf(g, a, id)
		if err != nil {
			return nil, err
		}
		set := make(map[arena.ID]bool, len(children))
		for _, c := range children {
			set[c] = true
		}
		out = append(out, candidateBlock{node: id, children: set})
	}

	return out, nil
}

// aggregateByOverlap implements GLMFactory.cc's greedy block-forming
// algorithm: candidates are visited in decreasing order of stochastic-
// child count so larger blocks form first; each subsequent candidate
// joins the block under construction only if it shares at least one
// stochastic child with it, and only if validate still accepts the
// enlarged block (the original's "test the joint linear model before
// aggregating" step). Returns the blocks formed; every candidate ends up
// in exactly one block, and a candidate that joins no larger block forms
// a singleton block of its own. The candidates slice is sorted in place.
func aggregateByOverlap(candidates []candidateBlock, validate func(block []arena.ID) (bool, error)) ([][]arena.ID, error) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].children) > len(candidates[j].children)
	})

	used := make([]bool, len(candidates))
	var blocks [][]arena.ID
	for i := range candidates {
		if used[i] {
			continue
		}
		used[i] = true
		block := []arena.ID{candidates[i].node}
		children := make(map[arena.ID]bool, len(candidates[i].children))
		for c := range candidates[i].children {
			children[c] = true
		}

		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			overlap := false
			for c := range candidates[j].children {
				if children[c] {
					overlap = true
					break
				}
			}
			if !overlap {
				continue
			}
			trial := append(append([]arena.ID{}, block...), candidates[j].node)
			ok, err := validate(trial)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			block = trial
			for c := range candidates[j].children {
				children[c] = true
			}
			used[j] = true
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

// buildGLMBlocks runs the GLM aggregation pass over free: it finds every
// free dnorm candidate, greedily aggregates overlapping candidates into
// joint blocks validated by conjugate.CanSampleNormal, and returns one
// ConjugateNormal Sampler per block formed. Singleton blocks (a candidate
// that overlapped nothing) are still claimed here, since CanSampleNormal
// already accepts a block of one.
func buildGLMBlocks(g *dag.Graph, a *arena.Arena, free []arena.ID, nchain int) ([]*sampler.Sampler, []arena.ID, error) {
	candidates, err := collectCandidates(g, a, free, func(id arena.ID) (bool, error) {
		return conjugate.CanSampleNormal([]arena.ID{id}, g, a)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("factory: buildGLMBlocks: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil, nil
	}

	blocks, err := aggregateByOverlap(candidates, func(block []arena.ID) (bool, error) {
		return conjugate.CanSampleNormal(block, g, a)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("factory: buildGLMBlocks: %w", err)
	}

	var samplers []*sampler.Sampler
	var claimed []arena.ID
	for _, block := range blocks {
		s, err := buildSamplerFor(g, a, block, nchain, func(chain int) (sampler.Method, error) {
			return conjugate.NewConjugateNormal(g, a, block, chain)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("factory: buildGLMBlocks: %w", err)
		}
		samplers = append(samplers, s)
		claimed = append(claimed, block...)
	}

	return samplers, claimed, nil
}
