package eval

import (
	"runtime"
	"testing"

	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/hotmap"
	"github.com/guage-run/guage/intern"
	"github.com/guage-run/guage/jit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newJITTestEvaluator is like newTestEvaluator but also wires a real JIT
// compiler, skipping on architectures codegen_other.go refuses outright
// (spec.md §4.4 makes that refusal safe, but there would be nothing left
// to exercise here).
func newJITTestEvaluator(t *testing.T, threshold uint32) (*Evaluator, *intern.Table, *intern.Cache, func()) {
	t.Helper()
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "arm64" {
		t.Skip("jit has no codegen backend for this architecture")
	}
	table := intern.NewTable()
	cache := intern.NewCache()
	ev := NewEvaluator(table, threshold)
	compiler, err := jit.NewCompiler()
	require.NoError(t, err)
	ev.Compiler = compiler
	return ev, table, cache, func() { _ = compiler.Close() }
}

// TestJITCompilesAfterThresholdAndMatchesInterpreter calls a small
// integer-arithmetic lambda past its hot threshold and checks native
// dispatch takes over with results identical to pure interpretation.
func TestJITCompilesAfterThresholdAndMatchesInterpreter(t *testing.T) {
	const threshold = 5
	ev, table, cache, closeCompiler := newJITTestEvaluator(t, threshold)
	defer closeCompiler()

	plus := sym(table, cache, "+")
	defer atom.Release(plus)
	body := list(plus, atom.NewInteger(0), atom.NewInteger(1))
	defer atom.Release(body)
	lambda := atom.NewLambda(2, body, nil, "")
	defer atom.Release(lambda)

	for i := 0; i < int(threshold)+3; i++ {
		args := atom.Env{atom.NewInteger(3), atom.NewInteger(4)}
		result := ev.Apply(lambda, args)
		require.False(t, IsErrorAtom(result))
		assert.Equal(t, int64(7), result.Int())
		atom.Release(result)
	}

	entries := ev.Hot.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, hotmap.Compiled, entries[0].State)
	assert.Equal(t, uint64(0), ev.DeoptCount())
}

// TestJITDeoptimizesOnNonIntegerArgument compiles a trace with integer
// calls, then calls it once more with a non-integer argument the native
// code has no encoding for: the evaluator must fall back to
// interpretation rather than lose or corrupt the result.
func TestJITDeoptimizesOnNonIntegerArgument(t *testing.T) {
	const threshold = 3
	ev, table, cache, closeCompiler := newJITTestEvaluator(t, threshold)
	defer closeCompiler()

	plus := sym(table, cache, "+")
	defer atom.Release(plus)
	body := list(plus, atom.NewInteger(0), atom.NewInteger(1))
	defer atom.Release(body)
	lambda := atom.NewLambda(2, body, nil, "")
	defer atom.Release(lambda)

	for i := 0; i < int(threshold)+1; i++ {
		args := atom.Env{atom.NewInteger(1), atom.NewInteger(2)}
		atom.Release(ev.Apply(lambda, args))
	}
	entries := ev.Hot.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, hotmap.Compiled, entries[0].State)

	// a string argument has no native-code encoding, so the trace deopts
	// and the call falls back to the interpreter, which then raises the
	// same type error "+" always raises for a non-numeric operand.
	args := atom.Env{atom.NewString([]byte("nope")), atom.NewInteger(2)}
	result := ev.Apply(lambda, args)
	defer atom.Release(result)
	assert.True(t, IsErrorAtom(result))

	entries = ev.Hot.Entries()
	assert.Equal(t, hotmap.Deopted, entries[0].State)
	assert.Equal(t, uint64(1), ev.DeoptCount())
}
