//go:build amd64 || arm64

package jit

import (
	"testing"

	"github.com/guage-run/guage/atom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompiler(t *testing.T) *Compiler {
	t.Helper()
	c, err := NewCompiler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// TestCompileAddMatchesExpectedResult compiles (+ p0 p1) through Lower,
// the codegen backend, the arena and the call path, and checks the
// compiled trace computes the same sum the arithmetic primitive would.
func TestCompileAddMatchesExpectedResult(t *testing.T) {
	c := newCompiler(t)
	plusSym := freeSym("+")
	defer atom.Release(plusSym)
	body := pairList(plusSym, atom.NewInteger(0), atom.NewInteger(1))
	defer atom.Release(body)

	trace, ok := c.Compile(body)
	require.True(t, ok)

	result, ok := trace.Call(atom.Env{atom.NewInteger(3), atom.NewInteger(4)})
	require.True(t, ok)
	defer atom.Release(result)
	assert.Equal(t, int64(7), result.Int())
}

func TestCompileArithmeticChain(t *testing.T) {
	c := newCompiler(t)
	// (* (- p0 p1) p0) — exercises both SUB and MUL, and reusing p0 twice.
	minusSym := freeSym("-")
	defer atom.Release(minusSym)
	mulSym := freeSym("*")
	defer atom.Release(mulSym)

	diff := pairList(minusSym, atom.NewInteger(0), atom.NewInteger(1))
	defer atom.Release(diff)
	body := pairList(mulSym, diff, atom.NewInteger(0))
	defer atom.Release(body)

	trace, ok := c.Compile(body)
	require.True(t, ok)

	result, ok := trace.Call(atom.Env{atom.NewInteger(10), atom.NewInteger(3)})
	require.True(t, ok)
	defer atom.Release(result)
	assert.Equal(t, int64(70), result.Int()) // (10 - 3) * 10

	result2, ok := trace.Call(atom.Env{atom.NewInteger(-4), atom.NewInteger(6)})
	require.True(t, ok)
	defer atom.Release(result2)
	assert.Equal(t, int64(40), result2.Int()) // (-4 - 6) * -4
}

func TestCompileComparisonReturnsBooleanAsZeroOrOne(t *testing.T) {
	c := newCompiler(t)
	ltSym := freeSym("<")
	defer atom.Release(ltSym)
	body := pairList(ltSym, atom.NewInteger(0), atom.NewInteger(1))
	defer atom.Release(body)

	trace, ok := c.Compile(body)
	require.True(t, ok)

	truthy, ok := trace.Call(atom.Env{atom.NewInteger(1), atom.NewInteger(2)})
	require.True(t, ok)
	defer atom.Release(truthy)
	assert.Equal(t, int64(1), truthy.Int())

	falsy, ok := trace.Call(atom.Env{atom.NewInteger(5), atom.NewInteger(2)})
	require.True(t, ok)
	defer atom.Release(falsy)
	assert.Equal(t, int64(0), falsy.Int())
}

func TestCompileRefusesUnsupportedBody(t *testing.T) {
	c := newCompiler(t)
	callSym := freeSym("car")
	defer atom.Release(callSym)
	body := pairList(callSym, atom.NewInteger(0))
	defer atom.Release(body)

	_, ok := c.Compile(body)
	assert.False(t, ok)
}

func TestTraceDeoptimizesOnNonIntegerFrame(t *testing.T) {
	c := newCompiler(t)
	plusSym := freeSym("+")
	defer atom.Release(plusSym)
	body := pairList(plusSym, atom.NewInteger(0), atom.NewInteger(1))
	defer atom.Release(body)

	trace, ok := c.Compile(body)
	require.True(t, ok)

	_, ok = trace.Call(atom.Env{atom.NewString([]byte("x")), atom.NewInteger(1)})
	assert.False(t, ok)
}
