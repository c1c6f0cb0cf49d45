// Package model implements the public runtime API (spec §6): create a
// model from a parse tree, add data by name, compile the parse tree into
// a graph, initialize chains and samplers, run iterations, attach
// monitors by node name and type, and extract monitor results as
// SArrays.
//
// The BUGS-style lexer/parser producing a ParseTree from source text is
// an external collaborator (spec §1 "deliberately out of scope"); this
// package consumes the resulting tree, mirroring builder.BuildGraph's
// single-orchestrator shape (resolve functional options once, then run a
// fixed pipeline of stages) generalized from one BuildGraph call to the
// four-stage New/Compile/Initialize/Run lifecycle spec §6 describes.
//
// Logging is the one ambient concern this package carries that the inner
// hot-path packages (arena, node, view, sampler, conjugate, metropolis)
// deliberately do not: model logs sampler assignment, adaptation-phase
// transitions, and no-sampler diagnostics through zerolog, the way
// smilemakc-mbflow's internal/application/executor wires it at its API
// boundary.
package model

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/rs/zerolog"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/metropolis"
	"github.com/arnovik/bugsgraph/monitor"
	"github.com/arnovik/bugsgraph/rng"
	"github.com/arnovik/bugsgraph/sampler"
	"github.com/arnovik/bugsgraph/sarray"
)

// config is the immutable configuration Option values resolve into,
// mirroring builder.builderConfig's "defaults, then apply each option in
// order" shape.
type config struct {
	chains   int
	seed     int64
	logger   zerolog.Logger
	adaptTol float64
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		chains:   1,
		seed:     0,
		logger:   zerolog.New(os.Stderr).With().Timestamp().Str("component", "model").Logger(),
		adaptTol: metropolis.AdaptationTolerance,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Option configures a Model's chain count, seed, logger, and adaptation
// tolerance (spec §9 Open Question 3).
type Option func(cfg *config)

// WithChains sets the number of parallel chains. n <= 0 is a no-op,
// leaving the default of 1.
func WithChains(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.chains = n
		}
	}
}

// WithSeed sets the base RNG seed every chain's stream is derived from
// (rng.Chains).
func WithSeed(seed int64) Option {
	return func(cfg *config) { cfg.seed = seed }
}

// WithLogger overrides the default stderr zerolog logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithAdaptationTolerance overwrites the package-level
// metropolis.AdaptationTolerance used by every RWMetropolis-family
// updater's CheckAdaptation (spec §9 Open Question 3). Values <= 0 are a
// no-op.
func WithAdaptationTolerance(tol float64) Option {
	return func(cfg *config) {
		if tol > 0 {
			cfg.adaptTol = tol
			metropolis.AdaptationTolerance = tol
		}
	}
}

// Model is the compiled, initialized runtime state spec §6 operates on.
type Model struct {
	cfg  *config
	tree *ParseTree
	reg  *dist.Registry
	data map[string]*sarray.SArray

	graph  *dag.Graph
	nextID arena.ID
	nodes  map[string]arena.ID // resolved VarRef key -> node ID

	// fixed holds the value Initialize writes into every chain's slot for
	// a node whose value never comes from an updater: every Constant
	// node (literal or data-backed) and every observed Stochastic node,
	// resolved once at Compile time since data is supplied before
	// Compile runs (spec §6 ordering: add data, then compile).
	fixed map[arena.ID][]float64

	flat []*flatRelation // in declaration order, for diagnostics

	compiled    bool
	initialized bool

	arenaV   *arena.Arena
	rngs     []*rand.Rand
	samplers []*sampler.Sampler

	monitors   map[string]monitor.Monitor
	nextHandle int
}

// New constructs a Model from tree, consuming the external parser's
// output (spec §6 "create model from parse tree"). The standard
// distribution/function registry (dist.Standard) is used; no operation in
// this package's external interface exposes swapping it, matching spec
// §4.B's "populated at module-load time" framing.
func New(tree *ParseTree, opts ...Option) (*Model, error) {
	if tree == nil {
		return nil, newError(Logic, "model", "", fmt.Errorf("New: nil parse tree"))
	}

	return &Model{
		cfg:      newConfig(opts...),
		tree:     tree,
		reg:      dist.Standard(),
		data:     make(map[string]*sarray.SArray),
		nodes:    make(map[string]arena.ID),
		fixed:    make(map[arena.ID][]float64),
		monitors: make(map[string]monitor.Monitor),
	}, nil
}

// SetData binds name (a bare VarRef.Name, e.g. "y", not "y[3]") to arr
// (spec §6 "add data by name -> SArray"). Individual elements of arr are
// looked up by the flat index corresponding to each StochRel/VarDecl
// relation's VarRef indices at Compile time. Must be called before
// Compile.
func (m *Model) SetData(name string, arr *sarray.SArray) error {
	if m.compiled {
		return newError(Logic, "model", name, ErrAlreadyCompiled)
	}
	if arr == nil {
		return newError(DimensionMismatch, "model", name, fmt.Errorf("SetData: nil array"))
	}
	m.data[name] = arr

	return nil
}

// dataScalar looks up the scalar value supplied for ref, if any.
func (m *Model) dataScalar(ref VarRef) (float64, bool, error) {
	arr, ok := m.data[ref.Name]
	if !ok {
		return 0, false, nil
	}
	idx := ref.ints()
	if len(idx) == 0 {
		if arr.Len() != 1 {
			return 0, false, newError(DimensionMismatch, "model", ref.Name,
				fmt.Errorf("dataScalar: %q is a scalar reference but data has %d elements", ref.Name, arr.Len()))
		}
		v, err := arr.At(0)
		if err != nil {
			return 0, false, newError(DimensionMismatch, "model", ref.Name, err)
		}

		return v, true, nil
	}
	zero := make([]int, len(idx))
	for i, v := range idx {
		zero[i] = v - 1 // BUGS indices are 1-based; SArray is 0-based.
	}
	v, err := arr.At(zero...)
	if err != nil {
		return 0, false, newError(DimensionMismatch, "model", ref.key(), err)
	}

	return v, true, nil
}

// dataVector looks up the full vector supplied for a bare (unindexed)
// name reference, used when a distribution parameter is itself a whole
// array (e.g. ddirch(alpha) taking a data-backed alpha vector).
func (m *Model) dataVector(name string) (*sarray.SArray, bool) {
	arr, ok := m.data[name]

	return arr, ok
}
