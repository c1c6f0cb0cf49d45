package model

import (
	"fmt"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/monitor"
	"github.com/arnovik/bugsgraph/sarray"
)

// MonitorKind selects what Attach records for a set of nodes (spec §6
// "attach monitors by node name and type").
type MonitorKind string

const (
	// KindTrace records every chain's raw value at each iteration.
	KindTrace MonitorKind = "trace"
	// KindMean is the pooled running mean of log density (spec §4.J).
	KindMean MonitorKind = "mean"
	// KindPD is the cross-chain predictive-divergence monitor.
	KindPD MonitorKind = "pD"
	// KindPopt is the penalized-deviance monitor: the mean deviance of
	// posterior-predictive replicates.
	KindPopt MonitorKind = "popt"
	// KindDeviance is the pooled running mean of -2*log density.
	KindDeviance MonitorKind = "deviance"
	// KindLogDensity is the pooled running mean of raw log density.
	KindLogDensity MonitorKind = "logdensity"
)

// Attach resolves names to node IDs and starts a monitor of kind over
// them, returning an opaque handle for later Detach/Result calls. Must be
// called after Initialize (the pD and popt monitors read the arena, and
// popt the per-chain RNGs, at construction).
func (m *Model) Attach(kind MonitorKind, names ...string) (string, error) {
	if !m.initialized {
		return "", newError(Logic, "model", "", ErrNotInitialized)
	}
	ids := make([]arena.ID, len(names))
	for i, n := range names {
		id, ok := m.nodes[n]
		if !ok {
			return "", newError(DimensionMismatch, "model", n, ErrUnknownNode)
		}
		ids[i] = id
	}

	var mon monitor.Monitor
	var err error
	switch kind {
	case KindTrace:
		mon, err = newTraceMonitor(m.graph, ids)
	case KindMean:
		mon, err = monitor.NewDensityPoolMean(m.graph, ids, monitor.LogDensity)
	case KindLogDensity:
		mon, err = monitor.NewDensityPoolMean(m.graph, ids, monitor.LogDensity)
	case KindDeviance:
		mon, err = monitor.NewDensityPoolMean(m.graph, ids, monitor.Deviance)
	case KindPD:
		mon, err = monitor.NewPDMonitor(m.graph, m.arenaV, ids)
	case KindPopt:
		mon, err = monitor.NewPoptMonitor(m.graph, m.arenaV, ids, m.rngs, defaultPoptReplicates)
	default:
		return "", newError(Logic, "model", "", fmt.Errorf("Attach: %q: %w", kind, ErrUnknownMonitorKind))
	}
	if err != nil {
		return "", newError(Logic, "model", "", err)
	}

	m.nextHandle++
	handle := fmt.Sprintf("mon-%d", m.nextHandle)
	m.monitors[handle] = mon

	return handle, nil
}

// defaultPoptReplicates is how many posterior-predictive replicates
// PoptMonitor draws per iteration when Attach does not ask for a
// specific count.
const defaultPoptReplicates = 20

// Detach stops and discards the monitor behind handle.
func (m *Model) Detach(handle string) error {
	if _, ok := m.monitors[handle]; !ok {
		return newError(DimensionMismatch, "model", handle, ErrUnknownHandle)
	}
	delete(m.monitors, handle)

	return nil
}

// Result dumps the monitor behind handle as a named SArray (spec §6
// "extract monitor results").
func (m *Model) Result(handle string) (*sarray.SArray, error) {
	mon, ok := m.monitors[handle]
	if !ok {
		return nil, newError(DimensionMismatch, "model", handle, ErrUnknownHandle)
	}

	return mon.Dump()
}

// traceMonitor is the plain per-node value trace monitor.Monitor does not
// itself provide: one growing [iteration, chain, element] record of every
// requested node's raw written value, grounded on PDMonitor's "single
// reserved, growing values slice" shape but keeping each chain/element
// separate instead of folding them into one scalar proxy.
type traceMonitor struct {
	nodes  []arena.ID
	width  int // total scalar elements per iteration across nodes and chains
	nchain int
	dims   []int
	rows   [][]float64
}

func newTraceMonitor(g *dag.Graph, nodes []arena.ID) (*traceMonitor, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("model: newTraceMonitor: no nodes")
	}
	width := 0
	for _, id := range nodes {
		k, err := g.Node(id)
		if err != nil {
			return nil, fmt.Errorf("model: newTraceMonitor: %w", err)
		}
		width += dimsLen(k.Dims())
	}

	return &traceMonitor{nodes: append([]arena.ID{}, nodes...), width: width}, nil
}

// Update implements monitor.Monitor: appends one row per chain,
// concatenating every node's current value.
func (t *traceMonitor) Update(g *dag.Graph, a *arena.Arena) error {
	t.nchain = a.NChains()
	row := make([]float64, 0, t.width*t.nchain)
	for chain := 0; chain < t.nchain; chain++ {
		for _, id := range t.nodes {
			v, err := a.Read(id, chain)
			if err != nil {
				return fmt.Errorf("model: traceMonitor.Update: %w", err)
			}
			row = append(row, v...)
		}
	}
	t.rows = append(t.rows, row)
	t.dims = []int{len(t.rows), t.nchain, t.width}

	return nil
}

// Dim implements monitor.Monitor.
func (t *traceMonitor) Dim() []int { return append([]int{}, t.dims...) }

// Value implements monitor.Monitor: the flattened per-iteration series
// for chain (every node's width concatenated).
func (t *traceMonitor) Value(chain int) []float64 {
	out := make([]float64, 0, len(t.rows)*t.width)
	for _, row := range t.rows {
		start := chain * t.width
		out = append(out, row[start:start+t.width]...)
	}

	return out
}

// Reserve implements monitor.Monitor.
func (t *traceMonitor) Reserve(niter int) {
	if cap(t.rows) < niter {
		grown := make([][]float64, len(t.rows), niter)
		copy(grown, t.rows)
		t.rows = grown
	}
}

// Dump implements monitor.Monitor: shape [iteration, chain, element].
func (t *traceMonitor) Dump() (*sarray.SArray, error) {
	flat := make([]float64, 0, len(t.rows)*t.nchain*t.width)
	for _, row := range t.rows {
		flat = append(flat, row...)
	}
	s, err := sarray.NewFromValues([]int{len(t.rows), t.nchain, t.width}, flat)
	if err != nil {
		return nil, fmt.Errorf("model: traceMonitor.Dump: %w", err)
	}
	if err := s.SetDimNames([]string{"iteration", "chain", "element"}); err != nil {
		return nil, fmt.Errorf("model: traceMonitor.Dump: %w", err)
	}

	return s, nil
}

// PoolChains implements monitor.Monitor: each chain keeps its own series.
func (*traceMonitor) PoolChains() bool { return false }

// PoolIterations implements monitor.Monitor: a growing per-iteration trace.
func (*traceMonitor) PoolIterations() bool { return false }
