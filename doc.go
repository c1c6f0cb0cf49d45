// Package bugsgraph implements a BUGS/JAGS-style Bayesian graphical-model
// simulation engine: a parse tree of stochastic, deterministic, and link
// relations compiles into a directed acyclic graph of typed nodes, a
// factory pipeline claims each free stochastic node with a conjugate or
// Metropolis-family updater, and Gibbs iteration advances one or more
// parallel chains while monitors accumulate traces, pooled log-density
// summaries, and convergence diagnostics.
//
// Subpackages, bottom-up:
//
//	sarray/     — shaped float64 arrays with named dimensions
//	rng/        — deterministic per-chain RNG streams
//	linalg/     — Cholesky/LU decompositions backing multivariate densities
//	dist/       — the named distribution/function registry
//	node/       — the node taxonomy (Constant, Stochastic, Logical, Link, ...)
//	dag/        — the directed acyclic graph of nodes
//	view/       — induced views (seed set + deterministic closure + boundary)
//	sampler/    — the per-node/per-block sampler and its adaptive state machine
//	conjugate/  — closed-form conjugate updaters
//	metropolis/ — random-walk and block Metropolis-Hastings updaters
//	factory/    — the pipeline that claims every free node with an updater
//	monitor/    — running summaries and convergence diagnostics
//	model/      — the public runtime API: create, compile, initialize, run
package bugsgraph
