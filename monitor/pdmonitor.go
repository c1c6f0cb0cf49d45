package monitor

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/sarray"
)

// PDMonitor is the cross-chain predictive-divergence monitor (spec §4.J):
// each Update call computes a numerical proxy for the symmetric KL
// divergence between every pair of chains' predictive densities at each
// observed node, sums it over node and chain-pair, and appends the result
// to a growing per-iteration trace. Requires at least 2 chains (spec
// §4.J "PDMonitor. Requires ≥2 chains").
//
// Grounded on PDMonitor.cc's shape (a single accumulating _values vector,
// reserved up front, dumped with dimension name "iteration"); the
// original's actual divergence computation is not in the retrieval pack,
// so the numerical proxy here is the symmetrized single-draw log-
// likelihood-ratio estimator: for chains i, j at node x with current
// value x_i, x_j and log density log f under each chain's own parameters,
//
//	proxy(i,j) = (log f_i(x_i) - log f_i(x_j)) + (log f_j(x_j) - log f_j(x_i))
//
// an unbiased (if noisy) point estimate of the symmetric KL divergence
// between the two chains' predictive densities.
type PDMonitor struct {
	nodes  []arena.ID
	values []float64
}

// NewPDMonitor constructs the monitor over nodes, every one of which must
// be an observed stochastic node; a requires nchain >= 2.
func NewPDMonitor(g *dag.Graph, a *arena.Arena, nodes []arena.ID) (*PDMonitor, error) {
	if a.NChains() < 2 {
		return nil, fmt.Errorf("monitor: NewPDMonitor: %w", ErrTooFewChains)
	}
	if err := validateObserved(g, nodes); err != nil {
		return nil, fmt.Errorf("monitor: NewPDMonitor: %w", err)
	}

	return &PDMonitor{nodes: append([]arena.ID{}, nodes...)}, nil
}

// pairwiseProxy computes this iteration's summed divergence proxy over
// every node and every unordered chain pair.
func (m *PDMonitor) pairwiseProxy(g *dag.Graph, a *arena.Arena) (float64, error) {
	env := &graphEvaluator{graph: g, arena: a}
	nchain := a.NChains()
	var total float64
	for _, id := range m.nodes {
		s, err := mustStochastic(g, id)
		if err != nil {
			return 0, err
		}
		for i := 0; i < nchain; i++ {
			xi, err := a.Read(id, i)
			if err != nil {
				return 0, err
			}
			ldii, err := s.LogDensity(xi, i, env)
			if err != nil {
				return 0, err
			}
			for j := i + 1; j < nchain; j++ {
				xj, err := a.Read(id, j)
				if err != nil {
					return 0, err
				}
				ldjj, err := s.LogDensity(xj, j, env)
				if err != nil {
					return 0, err
				}
				ldij, err := s.LogDensity(xj, i, env) // x_j under chain i's parameters
				if err != nil {
					return 0, err
				}
				ldji, err := s.LogDensity(xi, j, env) // x_i under chain j's parameters
				if err != nil {
					return 0, err
				}
				total += (ldii - ldij) + (ldjj - ldji)
			}
		}
	}

	return total, nil
}

// Update implements Monitor.
func (m *PDMonitor) Update(g *dag.Graph, a *arena.Arena) error {
	v, err := m.pairwiseProxy(g, a)
	if err != nil {
		return fmt.Errorf("monitor: PDMonitor.Update: %w", err)
	}
	m.values = append(m.values, v)

	return nil
}

// Dim implements Monitor.
func (m *PDMonitor) Dim() []int { return []int{len(m.values)} }

// Value implements Monitor: pooled across chains, so chain is ignored.
func (m *PDMonitor) Value(int) []float64 { return append([]float64{}, m.values...) }

// Reserve implements Monitor.
func (m *PDMonitor) Reserve(niter int) {
	grown := make([]float64, len(m.values), len(m.values)+niter)
	copy(grown, m.values)
	m.values = grown
}

// Dump implements Monitor.
func (m *PDMonitor) Dump() (*sarray.SArray, error) { return dumpTrace(m.values) }

// PoolChains implements Monitor: one value per iteration, not per chain.
func (*PDMonitor) PoolChains() bool { return true }

// PoolIterations implements Monitor: a growing trace, not a running stat.
func (*PDMonitor) PoolIterations() bool { return false }
