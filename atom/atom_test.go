package atom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guage-run/guage/sourcemap"
)

func sourcemapSpan(lo uint32) sourcemap.Span {
	return sourcemap.Span{Lo: lo, Len: 1, Ctxt: 0}
}

func TestNumberIntegerAreDistinctTags(t *testing.T) {
	n := NewNumber(2)
	i := NewInteger(2)
	assert.NotEqual(t, n.Tag(), i.Tag())
	assert.Equal(t, Number, n.Tag())
	assert.Equal(t, Integer, i.Tag())
}

func TestTruthiness(t *testing.T) {
	assert.True(t, NewNumber(0).IsTruthy())
	assert.True(t, NewInteger(0).IsTruthy())
	assert.False(t, NewBool(false).IsTruthy())
	assert.True(t, NewBool(true).IsTruthy())
	assert.False(t, NewNil().IsTruthy())
	assert.True(t, NewString([]byte("")).IsTruthy())
}

func TestPairReleaseIsTransitive(t *testing.T) {
	head := NewNumber(1)
	tail := NewNumber(2)
	require.Equal(t, int32(1), head.RefCount())

	p := NewPair(head, tail)
	require.Equal(t, int32(2), head.RefCount()) // NewPair retained it

	Release(p)
	assert.Equal(t, int32(1), head.RefCount())
}

func TestRetainReleaseRoundTrip(t *testing.T) {
	a := NewNumber(3.14)
	Retain(a)
	assert.Equal(t, int32(2), a.RefCount())
	Release(a)
	assert.Equal(t, int32(1), a.RefCount())
}

func TestLambdaReleasesBodyAndEnv(t *testing.T) {
	body := NewNumber(9)
	captured := RetainEnv(Env{NewInteger(1), NewInteger(2)})
	lam := NewLambda(1, body, captured, "f")
	require.Equal(t, int32(2), body.RefCount())
	require.Equal(t, int32(2), captured[0].RefCount())

	Release(lam)
	assert.Equal(t, int32(1), body.RefCount())
	assert.Equal(t, int32(1), captured[0].RefCount())
}

func TestErrorAtomSeedsTraceWithOwnSpan(t *testing.T) {
	err := NewError("undefined variable", nil, nil, sourcemapSpan(3))
	require.Equal(t, 1, err.ErrorInfo().Trace.Len())
	assert.Equal(t, Nil, NewNil().Tag())
}
