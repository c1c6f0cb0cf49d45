package model

import (
	"errors"
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/factory"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/rng"
	"github.com/arnovik/bugsgraph/view"
)

// Initialize allocates per-chain storage, writes every fixed value,
// draws initial values for free stochastic nodes, evaluates every
// deterministic node once, and runs the sampler factory pipeline (spec
// §6 "initialize chains (and samplers)"). Must be called exactly once,
// after Compile.
func (m *Model) Initialize() error {
	if !m.compiled {
		return newError(Logic, "model", "", ErrNotCompiled)
	}
	if m.initialized {
		return newError(Logic, "model", "", ErrAlreadyInitialized)
	}

	order, err := m.graph.TopologicalOrder()
	if err != nil {
		return newError(Logic, "model", "", err)
	}

	a := arena.New(m.cfg.chains)
	for _, id := range order {
		k, err := m.graph.Node(id)
		if err != nil {
			return newError(Logic, "model", "", err)
		}
		if err := a.Register(id, dimsLen(k.Dims())); err != nil {
			return newError(Logic, "model", k.Name(), err)
		}
	}
	m.arenaV = a

	// Evaluator reads straight from the arena, independent of any
	// particular seed set (view.evaluator), so one View built over the
	// whole graph is enough to drive every DeterministicSample call below.
	v, err := view.New(m.graph, a, order)
	if err != nil {
		return newError(Logic, "model", "", err)
	}
	env := v.Evaluator()

	m.rngs = rng.Chains(m.cfg.seed, m.cfg.chains)

	for chain := 0; chain < m.cfg.chains; chain++ {
		if err := m.initializeChain(order, chain, env); err != nil {
			return err
		}
	}

	samplers, err := factory.NewPipeline().Build(m.graph, a, m.cfg.chains)
	if err != nil {
		if errors.Is(err, factory.ErrNoSampler) {
			m.cfg.logger.Error().Err(err).Msg("no sampler")

			return newError(NoSampler, "model", "", err)
		}

		return newError(Logic, "model", "", err)
	}
	m.samplers = samplers
	for _, s := range samplers {
		m.cfg.logger.Info().Str("sampler", s.Name()).Msg("sampler assigned")
	}

	m.initialized = true

	return nil
}

// dimsLen returns the flat buffer length (product of dims) a node.Kind's
// Dims() implies; node.Header.Len() computes the same thing but is not
// part of the Kind interface, so callers holding only a Kind recompute it.
func dimsLen(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}

	return n
}

// initializeChain writes every fixed value, draws a free stochastic
// node's initial value, and evaluates every deterministic node, in
// topological order, for one chain.
func (m *Model) initializeChain(order []arena.ID, chain int, env node.Evaluator) error {
	for _, id := range order {
		if fixed, ok := m.fixed[id]; ok {
			if err := m.arenaV.Write(id, chain, fixed); err != nil {
				return newError(Logic, "model", "", err)
			}

			continue
		}

		k, err := m.graph.Node(id)
		if err != nil {
			return newError(Logic, "model", "", err)
		}

		if s, ok := k.(*node.Stochastic); ok {
			val, err := s.Rand(m.rngs[chain], chain, env)
			if err != nil {
				return newError(InvalidParameterValue, "model", k.Name(), err)
			}
			if err := m.arenaV.Write(id, chain, val); err != nil {
				return newError(Logic, "model", k.Name(), err)
			}

			continue
		}

		if err := k.DeterministicSample(m.arenaV, chain, env); err != nil {
			return newError(Numerical, "model", k.Name(), fmt.Errorf("initializeChain: %w", err))
		}
	}

	return nil
}
