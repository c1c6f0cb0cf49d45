package factory

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/conjugate"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/metropolis"
	"github.com/arnovik/bugsgraph/sampler"
)

// singleNode extracts the one node a single-node Factory requires.
func singleNode(nodes []arena.ID) (arena.ID, error) {
	if len(nodes) != 1 {
		return 0, fmt.Errorf("factory: single-node factory requires exactly one node, got %d", len(nodes))
	}

	return nodes[0], nil
}

// dirichletFactory wraps conjugate.ConjugateDirichlet (spec §4.I, tried
// ahead of the generic DirichletCat fallback).
type dirichletFactory struct{}

func (dirichletFactory) Name() string { return "ConjugateDirichlet" }

func (dirichletFactory) CanSample(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return false, nil
	}

	return conjugate.CanSampleDirichlet(id, g, a)
}

func (dirichletFactory) Make(g *dag.Graph, a *arena.Arena, nodes []arena.ID, nchain int) (*sampler.Sampler, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return nil, err
	}

	return buildSamplerFor(g, a, nodes, nchain, func(chain int) (sampler.Method, error) {
		return conjugate.NewConjugateDirichlet(g, a, id, chain)
	})
}

// truncatedGammaFactory wraps conjugate.TruncatedGamma.
type truncatedGammaFactory struct{}

func (truncatedGammaFactory) Name() string { return "TruncatedGamma" }

func (truncatedGammaFactory) CanSample(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return false, nil
	}

	return conjugate.CanSampleTruncatedGamma(id, g, a)
}

func (truncatedGammaFactory) Make(g *dag.Graph, a *arena.Arena, nodes []arena.ID, nchain int) (*sampler.Sampler, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return nil, err
	}

	return buildSamplerFor(g, a, nodes, nchain, func(chain int) (sampler.Method, error) {
		return conjugate.NewTruncatedGamma(g, a, id, chain)
	})
}

// dirichletCatFactory wraps metropolis.DirichletCat, the generic
// random-walk fallback for a free Dirichlet vector ConjugateDirichlet
// could not claim in closed form.
type dirichletCatFactory struct{}

func (dirichletCatFactory) Name() string { return "DirichletCat" }

func (dirichletCatFactory) CanSample(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return false, nil
	}

	return metropolis.CanSampleDirichletCat(id, g)
}

func (dirichletCatFactory) Make(g *dag.Graph, a *arena.Arena, nodes []arena.ID, nchain int) (*sampler.Sampler, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return nil, err
	}

	return buildSamplerFor(g, a, nodes, nchain, func(chain int) (sampler.Method, error) {
		return metropolis.NewDirichletCat(g, a, id, chain)
	})
}

// finiteMethodFactory wraps metropolis.FiniteMethod, tried ahead of
// RWMetropolis so a bare discrete-valued node (a dcat indicator, or any
// discrete node carrying explicit truncation bounds) is claimed by an
// exact finite-support draw instead of falling through to a continuous
// random-walk proposal that cannot mix correctly over discrete support.
type finiteMethodFactory struct{}

func (finiteMethodFactory) Name() string { return "FiniteMethod" }

func (finiteMethodFactory) CanSample(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return false, nil
	}

	return metropolis.CanSampleFiniteMethod(id, g)
}

func (finiteMethodFactory) Make(g *dag.Graph, a *arena.Arena, nodes []arena.ID, nchain int) (*sampler.Sampler, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return nil, err
	}

	return buildSamplerFor(g, a, nodes, nchain, func(chain int) (sampler.Method, error) {
		return metropolis.NewFiniteMethod(g, a, id, chain)
	})
}

// rwMetropolisFactory wraps metropolis.RWMetropolis, the pipeline's final
// fallback: it claims any free, unobserved, continuous stochastic node
// (spec §4.I "any node left unclaimed ... causes model finalization to
// fail", i.e. this factory is what keeps that from happening for ordinary
// continuous nodes — a discrete node that reaches this factory without
// having been claimed by FiniteMethod above genuinely has no sampler).
type rwMetropolisFactory struct{}

func (rwMetropolisFactory) Name() string { return "RWMetropolis" }

func (rwMetropolisFactory) CanSample(nodes []arena.ID, g *dag.Graph, a *arena.Arena) (bool, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return false, nil
	}

	return metropolis.CanSampleRWMetropolis(id, g)
}

func (rwMetropolisFactory) Make(g *dag.Graph, a *arena.Arena, nodes []arena.ID, nchain int) (*sampler.Sampler, error) {
	id, err := singleNode(nodes)
	if err != nil {
		return nil, err
	}

	return buildSamplerFor(g, a, nodes, nchain, func(chain int) (sampler.Method, error) {
		return metropolis.NewRWMetropolis(g, a, id, chain)
	})
}
