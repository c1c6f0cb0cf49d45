package metropolis

import "math"

// targetAcceptance is the Robbins-Monro acceptance-rate target shared by
// every random-walk updater in this package (spec §4.H "0.234 acceptance
// target").
const targetAcceptance = 0.234

// AdaptationTolerance is how close the empirical acceptance rate must be
// to targetAcceptance before checkAdaptation reports convergence (spec §9
// Open Question 3: "exposed as metropolis.AdaptationTolerance, default
// 0.05"). model.WithAdaptationTolerance overwrites this package variable.
var AdaptationTolerance = 0.05

// minAdaptationIterations is the minimum number of rescale calls before
// checkAdaptation is even considered: too few samples make the empirical
// acceptance rate noisy enough to spuriously fall within tolerance.
const minAdaptationIterations = 50

// randomWalkScale holds one random-walk updater's adaptive proposal scale
// in log space (always positive after exponentiation) along with the
// running acceptance-rate statistics Robbins-Monro and checkAdaptation
// both consult.
type randomWalkScale struct {
	logScale float64
	accepted int
	total    int
}

// scale returns the current proposal standard deviation.
func (r *randomWalkScale) scale() float64 { return math.Exp(r.logScale) }

// rescale implements Robbins-Monro stochastic approximation toward
// targetAcceptance: each step nudges logScale by a shrinking increment in
// the direction that moves the empirical rate toward the target.
func (r *randomWalkScale) rescale(p float64, accepted bool) {
	r.total++
	if accepted {
		r.accepted++
	}
	clamped := p
	if clamped > 1 {
		clamped = 1
	}
	step := 1 / float64(r.total+1)
	r.logScale += step * (clamped - targetAcceptance)
}

// acceptanceRate returns the empirical acceptance fraction so far, or 0
// before any rescale call.
func (r *randomWalkScale) acceptanceRate() float64 {
	if r.total == 0 {
		return 0
	}

	return float64(r.accepted) / float64(r.total)
}

// converged reports whether enough rescale calls have accumulated and the
// empirical acceptance rate is within AdaptationTolerance of the target.
func (r *randomWalkScale) converged() bool {
	return r.total >= minAdaptationIterations && math.Abs(r.acceptanceRate()-targetAcceptance) < AdaptationTolerance
}
