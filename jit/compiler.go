package jit

import (
	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/eval"
)

// defaultArenaSize reserves a handful of pages up front; Emit grows the
// underlying buddy allocator's view lazily via its own free lists, so
// this only bounds how much native code a single Evaluator's JIT can
// hold resident at once before Compile starts refusing for lack of room.
const defaultArenaSize = 16 * arenaMaxBlock

// Compiler implements eval.Compiler: it lowers a hot lambda body to IR
// (lower.go), hands the result to the architecture's codegen backend,
// and wraps the resulting machine code in a Trace. One Compiler owns one
// executable Arena, so all its traces share a single mapping.
type Compiler struct {
	arena *Arena
}

// NewCompiler reserves a fresh executable arena and returns a Compiler
// backed by it, or an error if the platform has no mapExecutable support.
func NewCompiler() (*Compiler, error) {
	arena, err := NewArena(defaultArenaSize)
	if err != nil {
		return nil, err
	}
	return &Compiler{arena: arena}, nil
}

// Compile attempts to JIT-compile expr, implementing eval.Compiler. It
// refuses (ok=false) whenever Lower refuses, the architecture has no
// codegen backend (codegen_other.go), or the arena has run out of room —
// any of which leaves the hot entry Warming with its one-shot
// do-not-retry flag set, never a hard error (spec.md §4.4).
func (c *Compiler) Compile(expr *atom.Atom) (eval.Compiled, bool) {
	prog, ok := Lower(expr)
	if !ok {
		return nil, false
	}
	raw, ok := codegenArch(prog)
	if !ok {
		return nil, false
	}
	code, err := c.arena.Emit(raw)
	if err != nil {
		return nil, false
	}
	return &Trace{code: code, argc: maxLoadArg(prog) + 1, arena: c.arena}, true
}

// Close releases the compiler's arena. Any trace it produced must not be
// called afterward.
func (c *Compiler) Close() error {
	return c.arena.Close()
}

func maxLoadArg(prog Program) int {
	max := -1
	for _, inst := range prog {
		if inst.Op == OpLoadArg && int(inst.Imm) > max {
			max = int(inst.Imm)
		}
	}
	return max
}
