package dist_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arnovik/bugsgraph/dist"
)

func TestIdentityLinkRoundTrip(t *testing.T) {
	l := dist.IdentityLink{}
	out := make([]float64, 1)
	require.NoError(t, l.Eval(out, dist.Params{{3.5}}))
	require.Equal(t, 3.5, out[0])
	require.Equal(t, 3.5, l.Link(out[0]))
	require.Equal(t, 1.0, l.GradLink(out[0]))
}

func TestLogLinkInverseAndForwardAgree(t *testing.T) {
	l := dist.LogLink{}
	eta := 1.2
	out := make([]float64, 1)
	require.NoError(t, l.Eval(out, dist.Params{{eta}}))
	require.InDelta(t, math.Exp(eta), out[0], 1e-12)
	require.InDelta(t, eta, l.Link(out[0]), 1e-9)
	require.InDelta(t, 1/out[0], l.GradLink(out[0]), 1e-9)
}

func TestLogitLinkInverseAndForwardAgree(t *testing.T) {
	l := dist.LogitLink{}
	eta := -0.75
	out := make([]float64, 1)
	require.NoError(t, l.Eval(out, dist.Params{{eta}}))
	require.True(t, out[0] > 0 && out[0] < 1)
	require.InDelta(t, eta, l.Link(out[0]), 1e-9)
}

func TestProbitLinkInverseAndForwardAgree(t *testing.T) {
	l := dist.ProbitLink{}
	eta := 0.3
	out := make([]float64, 1)
	require.NoError(t, l.Eval(out, dist.Params{{eta}}))
	require.InDelta(t, eta, l.Link(out[0]), 1e-6)
	require.True(t, l.GradLink(out[0]) > 0)
}

func TestLinksAreNonlinearOnceArgumentInPlay(t *testing.T) {
	for _, l := range []dist.Function{dist.LogLink{}, dist.LogitLink{}, dist.ProbitLink{}} {
		require.False(t, l.IsLinear([]bool{true}, nil))
		require.True(t, l.IsLinear([]bool{false}, nil))
	}
}

func TestStandardRegistryHasAllFunctionsAndLinks(t *testing.T) {
	r := dist.Standard()
	for _, name := range []string{"+", "-", "*", "/", "^", "abs", "identity", "log", "logit", "probit"} {
		_, err := r.Function(name)
		require.NoError(t, err, name)
	}
	for _, name := range []string{"dnorm", "dgamma", "dbeta", "ddirch", "dcat", "dmulti", "dsum"} {
		_, err := r.Distribution(name)
		require.NoError(t, err, name)
	}
}
