package monitor

import (
	"fmt"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/sarray"
)

// PoptMonitor is the penalized-deviance monitor (spec §4.J): each
// iteration, for every chain and every observed node, it draws nrep
// posterior predictive replications from the node's current
// parameterization and averages their deviance, then combines the
// per-chain averages (uniform weights, one RNG per chain so no chain
// shares randomness with another) into a single scalar appended to a
// growing trace.
//
// Grounded on PoptMonitor.h's shape: an owned RNG per chain, a fixed
// replication count, and per-chain weights feeding one pooled value per
// iteration.
type PoptMonitor struct {
	nodes  []arena.ID
	rngs   []*rand.Rand
	nrep   int
	values []float64
}

// NewPoptMonitor constructs the monitor. rngs must supply exactly one RNG
// per chain (spec §5 "RNGs are never shared across chains"); every node
// must be observed.
func NewPoptMonitor(g *dag.Graph, a *arena.Arena, nodes []arena.ID, rngs []*rand.Rand, nrep int) (*PoptMonitor, error) {
	if len(rngs) != a.NChains() {
		return nil, fmt.Errorf("monitor: NewPoptMonitor: %d rngs, want %d (one per chain)", len(rngs), a.NChains())
	}
	if nrep < 1 {
		return nil, fmt.Errorf("monitor: NewPoptMonitor: nrep must be >= 1, got %d", nrep)
	}
	if err := validateObserved(g, nodes); err != nil {
		return nil, fmt.Errorf("monitor: NewPoptMonitor: %w", err)
	}

	return &PoptMonitor{nodes: append([]arena.ID{}, nodes...), rngs: rngs, nrep: nrep}, nil
}

// chainDeviance draws nrep replications of node id under chain's current
// parameters and returns their mean deviance (-2*log density).
func (m *PoptMonitor) chainDeviance(g *dag.Graph, a *arena.Arena, id arena.ID, chain int) (float64, error) {
	s, err := mustStochastic(g, id)
	if err != nil {
		return 0, err
	}
	env := &graphEvaluator{graph: g, arena: a}
	params, err := paramValues(s, chain, env)
	if err != nil {
		return 0, err
	}

	var sum float64
	for r := 0; r < m.nrep; r++ {
		rep, err := s.Dist.Rand(m.rngs[chain], params)
		if err != nil {
			return 0, err
		}
		ld, err := s.Dist.LogDensity(rep, params, nil, nil)
		if err != nil {
			return 0, err
		}
		sum += -2 * ld
	}

	return sum / float64(m.nrep), nil
}

// Update implements Monitor.
func (m *PoptMonitor) Update(g *dag.Graph, a *arena.Arena) error {
	nchain := a.NChains()
	var total float64
	for _, id := range m.nodes {
		for c := 0; c < nchain; c++ {
			d, err := m.chainDeviance(g, a, id, c)
			if err != nil {
				return fmt.Errorf("monitor: PoptMonitor.Update: %w", err)
			}
			total += d / float64(nchain)
		}
	}
	m.values = append(m.values, total)

	return nil
}

// Dim implements Monitor.
func (m *PoptMonitor) Dim() []int { return []int{len(m.values)} }

// Value implements Monitor: pooled across chains, so chain is ignored.
func (m *PoptMonitor) Value(int) []float64 { return append([]float64{}, m.values...) }

// Reserve implements Monitor.
func (m *PoptMonitor) Reserve(niter int) {
	grown := make([]float64, len(m.values), len(m.values)+niter)
	copy(grown, m.values)
	m.values = grown
}

// Dump implements Monitor.
func (m *PoptMonitor) Dump() (*sarray.SArray, error) { return dumpTrace(m.values) }

// PoolChains implements Monitor: one value per iteration, not per chain.
func (*PoptMonitor) PoolChains() bool { return true }

// PoolIterations implements Monitor: a growing trace, not a running stat.
func (*PoptMonitor) PoolIterations() bool { return false }
