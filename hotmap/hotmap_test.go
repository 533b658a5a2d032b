package hotmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guage-run/guage/atom"
)

type fakeTrace struct{ invalid bool }

func (f *fakeTrace) Invalidated() bool { return f.invalid }

func TestTouchFirstSightingIsWarming(t *testing.T) {
	h := New(3)
	expr := atom.NewInteger(1)

	e, crossed := h.Touch(expr)

	assert.False(t, crossed)
	assert.Equal(t, Warming, e.State)
	assert.Equal(t, uint32(1), e.Count)
}

func TestTouchCrossesThresholdExactlyOnce(t *testing.T) {
	h := New(3)
	expr := atom.NewInteger(1)

	_, c1 := h.Touch(expr)
	_, c2 := h.Touch(expr)
	_, c3 := h.Touch(expr)
	_, c4 := h.Touch(expr)

	assert.False(t, c1)
	assert.False(t, c2)
	assert.True(t, c3)
	assert.False(t, c4, "already has no trace yet but should not re-cross without a fresh Touch cycle")
}

func TestTouchDoesNotReCrossOnceCompiled(t *testing.T) {
	h := New(2)
	expr := atom.NewInteger(1)

	_, _ = h.Touch(expr)
	e, crossed := h.Touch(expr)
	require.True(t, crossed)
	e.MarkCompiled(&fakeTrace{})

	_, crossedAgain := h.Touch(expr)
	assert.False(t, crossedAgain)
	assert.Equal(t, Compiled, e.State)
}

func TestMarkRefusedPreventsRetry(t *testing.T) {
	h := New(2)
	expr := atom.NewInteger(1)

	_, _ = h.Touch(expr)
	e, crossed := h.Touch(expr)
	require.True(t, crossed)
	e.MarkRefused()

	for i := 0; i < 5; i++ {
		_, crossedAgain := h.Touch(expr)
		assert.False(t, crossedAgain)
	}
	assert.Equal(t, Warming, e.State)
}

func TestDistinctExpressionsTrackedIndependently(t *testing.T) {
	h := New(10)
	a := atom.NewInteger(1)
	b := atom.NewInteger(1) // same value, different identity

	h.Touch(a)
	h.Touch(a)
	h.Touch(b)

	ea, _ := h.Touch(a)
	eb, _ := h.Touch(b)
	assert.Equal(t, uint32(3), ea.Count)
	assert.Equal(t, uint32(2), eb.Count)
	assert.Equal(t, 2, h.Len())
}

func TestMarkDeoptedThenRecompiledReachable(t *testing.T) {
	h := New(1)
	expr := atom.NewInteger(1)
	e, crossed := h.Touch(expr)
	require.True(t, crossed)
	e.MarkCompiled(&fakeTrace{})
	e.MarkDeopted()
	assert.Equal(t, Deopted, e.State)

	e.MarkCompiled(&fakeTrace{})
	assert.Equal(t, Compiled, e.State)
}

func TestEntriesPreservesInsertionOrder(t *testing.T) {
	h := New(100)
	a := atom.NewInteger(1)
	b := atom.NewInteger(2)
	c := atom.NewInteger(3)
	h.Touch(b)
	h.Touch(a)
	h.Touch(c)

	entries := h.Entries()
	require.Len(t, entries, 3)
	assert.Same(t, b, entries[0].Expr)
	assert.Same(t, a, entries[1].Expr)
	assert.Same(t, c, entries[2].Expr)
}
