package metropolis

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/dist"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/view"
)

// dirichletCatBaseConcentration scales the proposal's tightness; larger
// values propose values closer to the current point.
const dirichletCatBaseConcentration = 200.0

// CanSampleDirichletCat reports whether target is a free Dirichlet node
// (spec §4.H "DirichletCat: block sampler for discrete constraints
// analogous to RealDSum"): like RealDSum's hard sum-to-constant
// constraint, a Dirichlet vector carries a hard sum-to-one constraint,
// here preserved by a Dirichlet-distributed proposal rather than a
// paired additive shift. Tried by the factory pipeline only after
// ConjugateDirichlet has had a chance to claim the same node in closed
// form.
func CanSampleDirichletCat(target arena.ID, g *dag.Graph) (bool, error) {
	k, err := g.Node(target)
	if err != nil {
		return false, fmt.Errorf("metropolis: CanSampleDirichletCat: %w", err)
	}
	s, ok := k.(*node.Stochastic)
	if !ok || s.Observed || s.Dist.Name() != "ddirch" || s.Len() < 2 {
		return false, nil
	}

	return true, nil
}

// DirichletCat is the per-chain block updater for a free Dirichlet vector
// (spec §4.H): proposes a new point via a tight Dirichlet distribution
// centered at the current value, then corrects for the proposal's
// asymmetry with the standard Metropolis-Hastings log-proposal-ratio
// term (Dirichlet(c*x) is not a symmetric proposal in x).
type DirichletCat struct {
	*Metropolis
	target arena.ID
	dim    int
	scale  randomWalkScale
}

// NewDirichletCat constructs the updater for one chain.
func NewDirichletCat(g *dag.Graph, a *arena.Arena, target arena.ID, chain int) (*DirichletCat, error) {
	ok, err := CanSampleDirichletCat(target, g)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewDirichletCat: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("metropolis: NewDirichletCat: structural conditions not met")
	}
	v, err := view.New(g, a, []arena.ID{target})
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewDirichletCat: %w", err)
	}
	x0, err := v.GetValue(chain)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewDirichletCat: %w", err)
	}

	dc := &DirichletCat{Metropolis: newMetropolis(v, chain, x0[0]), target: target, dim: len(x0[0])}
	dc.bind(dc)

	return dc, nil
}

// Name implements sampler.Method.
func (dc *DirichletCat) Name() string { return "DirichletCat" }

// setValue implements proposalModel: identity map, one vector seed node.
func (dc *DirichletCat) setValue(value []float64) error {
	return dc.view.SetValue([][]float64{value}, dc.chain)
}

// rescale implements proposalModel.
func (dc *DirichletCat) rescale(p float64, accepted bool) { dc.scale.rescale(p, accepted) }

// CheckAdaptation overrides sampler.Adaptive's default.
func (dc *DirichletCat) CheckAdaptation() bool { return dc.scale.converged() }

// concentration returns the Dirichlet proposal's current tightness: a
// higher value concentrates more mass near the current point.
func (dc *DirichletCat) concentration() float64 {
	s := dc.scale.scale()

	return math.Max(dirichletCatBaseConcentration/(s*s), 1e-3)
}

// dirichletParams scales the current value by concentration into a
// Dirichlet parameter vector, guarding against the all-zero coordinates a
// structural-zero target may carry.
func dirichletParams(x []float64, concentration float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * concentration
		if out[i] <= 0 {
			out[i] = 1e-6
		}
	}

	return out
}

// Update implements sampler.Method: draws a proposal from Dirichlet(c*x),
// accepts with the Metropolis-Hastings ratio log α = Δ(log full
// conditional) + log q(x|x') − log q(x'|x).
func (dc *DirichletCat) Update(rng *rand.Rand) error {
	d := dist.NewDirichlet()
	c := dc.concentration()
	cur := dc.Value()

	before, err := dc.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: DirichletCat.Update: %w", err)
	}

	proposal, err := d.Rand(rng, dist.Params{dirichletParams(cur, c)})
	if err != nil {
		return fmt.Errorf("metropolis: DirichletCat.Update: %w", err)
	}
	logQForward, err := d.LogDensity(proposal, dist.Params{dirichletParams(cur, c)}, nil, nil)
	if err != nil {
		return fmt.Errorf("metropolis: DirichletCat.Update: %w", err)
	}
	logQReverse, err := d.LogDensity(cur, dist.Params{dirichletParams(proposal, c)}, nil, nil)
	if err != nil {
		return fmt.Errorf("metropolis: DirichletCat.Update: %w", err)
	}

	if err := dc.propose(proposal); err != nil {
		return fmt.Errorf("metropolis: DirichletCat.Update: %w", err)
	}
	after, err := dc.logFullConditional()
	if err != nil {
		return fmt.Errorf("metropolis: DirichletCat.Update: %w", err)
	}

	logAlpha := (after - before) + (logQReverse - logQForward)
	p := math.Exp(logAlpha)
	if _, err := dc.accept(rng, p); err != nil {
		return fmt.Errorf("metropolis: DirichletCat.Update: %w", err)
	}

	return nil
}
