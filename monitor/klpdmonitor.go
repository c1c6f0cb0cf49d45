package monitor

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
)

// closedFormKL is implemented by a dist.Distribution that can compute its
// own KL divergence in closed form (spec §4.J "using the closed-form KL
// exposed by supported distributions"); dist.Normal is the only
// implementer today. Not part of the dist.Distribution interface itself
// — KLPDMonitor type-asserts for it at construction time and rejects any
// node whose distribution lacks it.
type closedFormKL interface {
	KL(p, q dist.Params) (float64, error)
}

// KLPDMonitor is PDMonitor's closed-form specialization (spec §4.J): in
// place of the numerical single-draw proxy, each node's distribution
// supplies an exact symmetric KL divergence between the two chains'
// current parameterizations. Grounded on KLPDMonitor.h's shape (a
// PDMonitor subclass overriding only the per-iteration update); KL.{h,cc}
// — the original's pluggable per-distribution KL object — is not in the
// retrieval pack, so the closedFormKL type assertion stands in for it.
type KLPDMonitor struct {
	*PDMonitor
}

// NewKLPDMonitor constructs the monitor; every node must be an observed
// stochastic node whose distribution implements closedFormKL.
func NewKLPDMonitor(g *dag.Graph, a *arena.Arena, nodes []arena.ID) (*KLPDMonitor, error) {
	pd, err := NewPDMonitor(g, a, nodes)
	if err != nil {
		return nil, fmt.Errorf("monitor: NewKLPDMonitor: %w", err)
	}
	for _, id := range nodes {
		s, err := mustStochastic(g, id)
		if err != nil {
			return nil, fmt.Errorf("monitor: NewKLPDMonitor: %w", err)
		}
		if _, ok := s.Dist.(closedFormKL); !ok {
			return nil, fmt.Errorf("monitor: NewKLPDMonitor: distribution %q has no closed-form KL", s.Dist.Name())
		}
	}

	return &KLPDMonitor{PDMonitor: pd}, nil
}

// Update implements Monitor: overrides PDMonitor's numerical proxy with
// the exact symmetric KL between every chain pair's current parameters.
func (m *KLPDMonitor) Update(g *dag.Graph, a *arena.Arena) error {
	env := &graphEvaluator{graph: g, arena: a}
	nchain := a.NChains()
	var total float64
	for _, id := range m.nodes {
		s, err := mustStochastic(g, id)
		if err != nil {
			return fmt.Errorf("monitor: KLPDMonitor.Update: %w", err)
		}
		kl := s.Dist.(closedFormKL)
		params := make([]dist.Params, nchain)
		for c := 0; c < nchain; c++ {
			p, err := paramValues(s, c, env)
			if err != nil {
				return fmt.Errorf("monitor: KLPDMonitor.Update: %w", err)
			}
			params[c] = p
		}
		for i := 0; i < nchain; i++ {
			for j := i + 1; j < nchain; j++ {
				pq, err := kl.KL(params[i], params[j])
				if err != nil {
					return fmt.Errorf("monitor: KLPDMonitor.Update: %w", err)
				}
				qp, err := kl.KL(params[j], params[i])
				if err != nil {
					return fmt.Errorf("monitor: KLPDMonitor.Update: %w", err)
				}
				total += pq + qp
			}
		}
	}
	m.values = append(m.values, total)

	return nil
}

// paramValues resolves s's distribution parameters at chain, mirroring
// the unexported resolution node.Stochastic performs internally (which
// this package cannot call directly, having no access to it outside the
// node package).
func paramValues(s *node.Stochastic, chain int, env node.Evaluator) (dist.Params, error) {
	params := make(dist.Params, len(s.ParamNodes))
	for i, pid := range s.ParamNodes {
		v, err := env.Value(pid, chain)
		if err != nil {
			return nil, err
		}
		params[i] = v
	}

	return params, nil
}
