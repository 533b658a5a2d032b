package jit

import (
	"unsafe"

	"github.com/guage-run/guage/atom"
)

// Trace is a compiled native routine for one hot lambda body, together
// with enough bookkeeping to call it safely from Go. It implements
// eval.Compiled.
type Trace struct {
	code    []byte
	argc    int
	arena   *Arena
	retired bool
}

// Invalidated reports whether the trace should no longer be dispatched
// to. Traces compile against a fixed snapshot of which free variables
// name arithmetic primitives (lower.go), so nothing short of explicit
// retirement invalidates one; MarkDeopted already routes the hot entry
// back to the interpreter independently of this flag.
func (t *Trace) Invalidated() bool { return t.retired }

// retire releases the trace's native code back to its arena. Callers
// must guarantee no concurrent Call is in flight; an Evaluator is single
// goroutine (spec.md §5), so this only ever runs between calls.
func (t *Trace) retire() {
	if t.retired {
		return
	}
	t.retired = true
	t.arena.Release(t.code)
}

// Call runs the compiled trace over frameEnv. It deoptimizes (returns
// ok=false) if the frame doesn't match the integer-only shape the trace
// was compiled for — a parameter holding a non-integer value, or a
// fractional Number, or an arity mismatch — since the restricted
// arithmetic subset has no encoding for anything else.
func (t *Trace) Call(frameEnv atom.Env) (*atom.Atom, bool) {
	if len(frameEnv) < t.argc {
		return nil, false
	}
	args := make([]int64, len(frameEnv)+1) // +1: never take &args[0] of an empty slice
	for i, v := range frameEnv {
		switch v.Tag() {
		case atom.Integer:
			args[i] = v.Int()
		case atom.Number:
			n := v.Num()
			if n != float64(int64(n)) {
				return nil, false
			}
			args[i] = int64(n)
		default:
			return nil, false
		}
	}
	result := callTrace(uintptr(unsafe.Pointer(&t.code[0])), &args[0], int64(len(frameEnv)))
	return atom.NewInteger(result), true
}
