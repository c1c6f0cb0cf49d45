package monitor

import (
	"errors"
	"fmt"
	"math"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/sarray"
)

// Kind selects which scalar transform of a stochastic node's log density
// DensityPoolMean accumulates (spec §4.J "log-density, density, or
// deviance").
type Kind int

const (
	// LogDensity accumulates the raw log density.
	LogDensity Kind = iota
	// Density accumulates exp(log density).
	Density
	// Deviance accumulates -2*log density, the DIC convention.
	Deviance
)

// String implements fmt.Stringer for diagnostics.
func (k Kind) String() string {
	switch k {
	case LogDensity:
		return "logdensity"
	case Density:
		return "density"
	case Deviance:
		return "deviance"
	default:
		return "invalid"
	}
}

// ErrUnknownKind indicates a Kind value outside {LogDensity, Density,
// Deviance}.
var ErrUnknownKind = errors.New("monitor: unknown kind")

// DensityPoolMean is the running mean over chains and iterations of a
// Kind-transformed log density for a set of nodes (spec §4.J): after n
// Update calls, value = (1/n)·Σ_iter Σ_chain f(node.value), i.e. the
// per-iteration cross-chain sum is itself averaged over iterations.
type DensityPoolMean struct {
	nodes []arena.ID
	kind  Kind
	mean  float64
	n     int
}

// NewDensityPoolMean constructs the monitor over nodes, every one of
// which must be a stochastic node (observed or free; the mean is taken of
// whatever density that node currently reports).
func NewDensityPoolMean(g *dag.Graph, nodes []arena.ID, kind Kind) (*DensityPoolMean, error) {
	if kind != LogDensity && kind != Density && kind != Deviance {
		return nil, fmt.Errorf("monitor: NewDensityPoolMean: %w: %d", ErrUnknownKind, kind)
	}
	for _, id := range nodes {
		if _, err := mustStochastic(g, id); err != nil {
			return nil, fmt.Errorf("monitor: NewDensityPoolMean: %w", err)
		}
	}

	return &DensityPoolMean{nodes: append([]arena.ID{}, nodes...), kind: kind}, nil
}

// transform maps a raw log density to this monitor's Kind.
func (m *DensityPoolMean) transform(logDensity float64) float64 {
	switch m.kind {
	case Density:
		return math.Exp(logDensity)
	case Deviance:
		return -2 * logDensity
	default:
		return logDensity
	}
}

// Update implements Monitor: sums the transformed density over every
// chain and node, then folds that sum into the running mean.
func (m *DensityPoolMean) Update(g *dag.Graph, a *arena.Arena) error {
	env := &graphEvaluator{graph: g, arena: a}
	var sum float64
	for chain := 0; chain < a.NChains(); chain++ {
		for _, id := range m.nodes {
			ld, err := env.LogDensity(id, chain)
			if err != nil {
				return fmt.Errorf("monitor: DensityPoolMean.Update: %w", err)
			}
			sum += m.transform(ld)
		}
	}
	m.n++
	m.mean += (sum - m.mean) / float64(m.n)

	return nil
}

// Dim implements Monitor: a pooled scalar.
func (m *DensityPoolMean) Dim() []int { return []int{1} }

// Value implements Monitor: the same running mean regardless of chain.
func (m *DensityPoolMean) Value(int) []float64 { return []float64{m.mean} }

// Reserve implements Monitor: a running scalar needs no preallocation.
func (*DensityPoolMean) Reserve(int) {}

// Dump implements Monitor.
func (m *DensityPoolMean) Dump() (*sarray.SArray, error) {
	s, err := sarray.NewFromValues([]int{1}, []float64{m.mean})
	if err != nil {
		return nil, fmt.Errorf("monitor: DensityPoolMean.Dump: %w", err)
	}

	return s, nil
}

// PoolChains implements Monitor.
func (*DensityPoolMean) PoolChains() bool { return true }

// PoolIterations implements Monitor.
func (*DensityPoolMean) PoolIterations() bool { return true }
