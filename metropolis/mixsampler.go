package metropolis

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/dag"
	"github.com/arnovik/bugsgraph/node"
	"github.com/arnovik/bugsgraph/view"
)

const (
	defaultMixLevels    = 50
	defaultMixMinPower  = 0.5
	defaultMixTargetAcc = targetAcceptance
)

// CanSampleMixSampler reports whether nodes form a multi-component block
// MixSampler can drive: at least two free, continuous stochastic nodes
// with no structural constraint between them (spec §4.H "tempered
// random-walk over multi-component blocks"). This is deliberately the
// most permissive block gate in the package — factories try it only after
// the GLM (ConjugateNormal) pass and RealDSum/DSumMethod have claimed
// what they can, and before the per-node factories.
func CanSampleMixSampler(nodes []arena.ID, g *dag.Graph) (bool, error) {
	if len(nodes) < 2 {
		return false, nil
	}
	for _, id := range nodes {
		k, err := g.Node(id)
		if err != nil {
			return false, fmt.Errorf("metropolis: CanSampleMixSampler: %w", err)
		}
		s, ok := k.(*node.Stochastic)
		if !ok || s.Observed || s.IsDiscreteValued() {
			return false, nil
		}
	}

	return true, nil
}

// MixSampler is a tempered random-walk block updater (spec §4.H): nlevels
// power levels scale the likelihood term of the log full conditional from
// power = minPower (the prior alone only when minPower is 0) up to the
// full posterior (power = 1), each level
// carrying its own Robbins-Monro-adapted proposal scale. One level is
// picked uniformly at random each Update call and driven as an ordinary
// random-walk Metropolis step at that level's temperature — a
// simplification of the original source's full simulated-tempering
// machinery (which also proposes moves between levels); that cross-level
// swap step is not implemented here.
type MixSampler struct {
	*Metropolis
	nodeLens []int // flat length contributed by each seed node, for splitting Value()
	nlevels  int
	minPower float64
	levels   []randomWalkScale
	lastIdx  int
}

// NewMixSampler constructs the updater for one chain. nlevels and
// minPower default to the original source's constructor defaults (50,
// 0.5) when given as <= 0 / < 0.
func NewMixSampler(g *dag.Graph, a *arena.Arena, nodes []arena.ID, chain, nlevels int, minPower float64) (*MixSampler, error) {
	ok, err := CanSampleMixSampler(nodes, g)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewMixSampler: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("metropolis: NewMixSampler: structural conditions not met")
	}
	if nlevels <= 0 {
		nlevels = defaultMixLevels
	}
	if minPower < 0 {
		minPower = defaultMixMinPower
	}

	v, err := view.New(g, a, nodes)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewMixSampler: %w", err)
	}
	x0, err := v.GetValue(chain)
	if err != nil {
		return nil, fmt.Errorf("metropolis: NewMixSampler: %w", err)
	}
	lens := make([]int, len(x0))
	var flat []float64
	for i, b := range x0 {
		lens[i] = len(b)
		flat = append(flat, b...)
	}

	ms := &MixSampler{
		Metropolis: newMetropolis(v, chain, flat),
		nodeLens:   lens,
		nlevels:    nlevels,
		minPower:   minPower,
		levels:     make([]randomWalkScale, nlevels),
	}
	ms.bind(ms)

	return ms, nil
}

// Name implements sampler.Method.
func (ms *MixSampler) Name() string { return "MixSampler" }

// setValue implements proposalModel: identity map, re-split by each seed
// node's declared length.
func (ms *MixSampler) setValue(value []float64) error {
	bufs := make([][]float64, len(ms.nodeLens))
	off := 0
	for i, n := range ms.nodeLens {
		bufs[i] = append([]float64{}, value[off:off+n]...)
		off += n
	}

	return ms.view.SetValue(bufs, ms.chain)
}

// rescale implements proposalModel: forwarded to the level active for the
// in-progress Update call.
func (ms *MixSampler) rescale(p float64, accepted bool) { ms.levels[ms.lastIdx].rescale(p, accepted) }

// CheckAdaptation overrides sampler.Adaptive's default: every level's
// acceptance rate must have converged independently (spec §4.H "per-level
// scales adapt independently toward a common target acceptance").
func (ms *MixSampler) CheckAdaptation() bool {
	for i := range ms.levels {
		if !ms.levels[i].converged() {
			return false
		}
	}

	return true
}

// power returns level i's tempering power, linearly interpolated from
// minPower at level 0 to 1 at level nlevels-1.
func (ms *MixSampler) power(i int) float64 {
	if ms.nlevels == 1 {
		return 1
	}

	return ms.minPower + (1-ms.minPower)*float64(i)/float64(ms.nlevels-1)
}

// temperedLogDensity evaluates the seed set's own (prior) log density
// plus the stochastic children's (likelihood) log density scaled by
// power, the tempered full conditional this level's chain explores.
func (ms *MixSampler) temperedLogDensity(power float64) (float64, error) {
	env := ms.view.Evaluator()
	var prior float64
	for _, id := range ms.view.Nodes() {
		ld, err := env.LogDensity(id, ms.chain)
		if err != nil {
			return 0, err
		}
		prior += ld
	}
	var likelihood float64
	for _, id := range ms.view.StochasticChildren() {
		ld, err := env.LogDensity(id, ms.chain)
		if err != nil {
			return 0, err
		}
		likelihood += ld
	}

	return prior + power*likelihood, nil
}

// Update implements sampler.Method: selects a level uniformly at random,
// proposes a random-walk step scaled by that level's own proposal scale,
// and accepts against the tempered log density at that level's power.
func (ms *MixSampler) Update(rng *rand.Rand) error {
	ms.lastIdx = rng.Intn(ms.nlevels)
	power := ms.power(ms.lastIdx)

	before, err := ms.temperedLogDensity(power)
	if err != nil {
		return fmt.Errorf("metropolis: MixSampler.Update: %w", err)
	}

	cur := ms.Value()
	s := ms.levels[ms.lastIdx].scale()
	proposal := make([]float64, len(cur))
	for i := range proposal {
		proposal[i] = cur[i] + rng.NormFloat64()*s
	}
	if err := ms.propose(proposal); err != nil {
		return fmt.Errorf("metropolis: MixSampler.Update: %w", err)
	}

	after, err := ms.temperedLogDensity(power)
	if err != nil {
		return fmt.Errorf("metropolis: MixSampler.Update: %w", err)
	}

	p := math.Exp(after - before)
	if _, err := ms.accept(rng, p); err != nil {
		return fmt.Errorf("metropolis: MixSampler.Update: %w", err)
	}

	return nil
}
