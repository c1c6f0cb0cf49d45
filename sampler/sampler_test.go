package sampler_test

import (
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/sampler"
	"github.com/arnovik/bugsgraph/view"
)

// fakeMethod counts updates and optionally fails on a specific call.
type fakeMethod struct {
	name     string
	calls    int32
	failOn   int32 // 0 means never fail
	adaptive bool
	sampler.Adaptive
}

func (f *fakeMethod) Update(rng *rand.Rand) error {
	n := atomic.AddInt32(&f.calls, 1)
	if f.failOn != 0 && n == f.failOn {
		return errors.New("fakeMethod: induced failure")
	}

	return nil
}
func (f *fakeMethod) IsAdaptive() bool { return f.adaptive }
func (f *fakeMethod) Name() string     { return f.name }

func newFake(name string) *fakeMethod {
	return &fakeMethod{name: name, adaptive: true, Adaptive: sampler.NewAdaptive()}
}

func TestSamplerUpdateInvokesEveryChain(t *testing.T) {
	m0, m1, m2 := newFake("a"), newFake("a"), newFake("a")
	s, err := sampler.New(nil, []sampler.Method{m0, m1, m2})
	require.NoError(t, err)

	rngs := []*rand.Rand{rand.New(rand.NewSource(1)), rand.New(rand.NewSource(2)), rand.New(rand.NewSource(3))}
	require.NoError(t, s.Update(rngs))
	require.EqualValues(t, 1, m0.calls)
	require.EqualValues(t, 1, m1.calls)
	require.EqualValues(t, 1, m2.calls)
}

func TestSamplerUpdateRejectsChainCountMismatch(t *testing.T) {
	s, err := sampler.New(nil, []sampler.Method{newFake("a")})
	require.NoError(t, err)
	err = s.Update([]*rand.Rand{rand.New(rand.NewSource(1)), rand.New(rand.NewSource(2))})
	require.ErrorIs(t, err, sampler.ErrChainCountMismatch)
}

func TestSamplerUpdatePropagatesChainError(t *testing.T) {
	m0 := newFake("a")
	m1 := &fakeMethod{name: "b", failOn: 1, Adaptive: sampler.NewAdaptive()}
	s, err := sampler.New(nil, []sampler.Method{m0, m1})
	require.NoError(t, err)

	rngs := []*rand.Rand{rand.New(rand.NewSource(1)), rand.New(rand.NewSource(2))}
	err = s.Update(rngs)
	require.Error(t, err)
}

func TestParallelSamplerUpdatesAllChains(t *testing.T) {
	methods := make([]sampler.Method, 8)
	fakes := make([]*fakeMethod, 8)
	for i := range methods {
		f := newFake("p")
		fakes[i] = f
		methods[i] = f
	}
	s, err := sampler.New(nil, methods)
	require.NoError(t, err)
	ps := sampler.NewParallel(s)

	rngs := make([]*rand.Rand, 8)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewSource(int64(i + 1)))
	}
	require.NoError(t, ps.Update(rngs))
	for _, f := range fakes {
		require.EqualValues(t, 1, f.calls)
	}
}

func TestGLMSamplerUpdatesPrimaryThenAuxiliary(t *testing.T) {
	primaryMethod := newFake("glm-primary")
	primary, err := sampler.New(nil, []sampler.Method{primaryMethod})
	require.NoError(t, err)

	auxMethod := newFake("glm-aux")
	aux, err := sampler.New(nil, []sampler.Method{auxMethod})
	require.NoError(t, err)

	g, err := sampler.NewGLM(primary, []*view.View{nil}, []*sampler.Sampler{aux})
	require.NoError(t, err)

	rngs := []*rand.Rand{rand.New(rand.NewSource(1))}
	require.NoError(t, g.Update(rngs))
	require.EqualValues(t, 1, primaryMethod.calls)
	require.EqualValues(t, 1, auxMethod.calls)
	require.Contains(t, g.Name(), "GLM")
}

func TestAdaptiveLifecycleTransitions(t *testing.T) {
	a := sampler.NewAdaptive()
	require.True(t, a.IsAdaptive())
	a.AdaptOff()
	require.False(t, a.IsAdaptive())
	require.Equal(t, sampler.FrozenUntested, a.State())
	a.Freeze()
	require.Equal(t, sampler.Frozen, a.State())
	require.False(t, a.IsAdaptive())
}
