// Package jit lowers a hot expression to a small stack-machine IR, emits
// native machine code for it (arm64 and amd64), and dispatches compiled
// traces for the evaluator, falling back to interpretation (deopt) for
// anything the lowering pass refuses (spec.md §4.4).
//
// The JIT only ever compiles a strict integer arithmetic/comparison
// subset: constants, bound-variable loads (De Bruijn indices into the
// call frame), +, -, *, /, and the five comparison operators. Anything
// else — lambdas, strings, effects, symbols resolved at eval time —
// causes Lower to refuse, the same "stays Warming, one-shot do-not-retry"
// path hotmap.HotEntry.MarkRefused already models.
package jit

// Op is one stack-machine instruction.
type Op uint8

const (
	OpConst Op = iota
	OpLoadArg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpRet
)

// Inst is one IR instruction. Imm is the constant operand for OpConst and
// the frame slot index for OpLoadArg; unused otherwise.
type Inst struct {
	Op  Op
	Imm int64
}

// Program is a flat, already-linearized instruction stream a codegen
// backend turns into machine code. The last instruction is always OpRet.
type Program []Inst
