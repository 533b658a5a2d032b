//go:build amd64

package jit

// callTrace jumps into a block of native code previously emitted by
// codegen_amd64.go, with argsPtr in RBX and argc in RCX (the calling
// convention codegen_amd64.go's emitters assume), and returns whatever
// the code left in RAX. Implemented in callasm_amd64.s: the generated
// code is an ordinary leaf routine from the hardware stack's point of
// view, so a ABI0 assembly trampoline is enough to reach it without any
// cgo or runtime funcval surgery.
//
//go:noescape
func callTrace(code uintptr, argsPtr *int64, argc int64) int64
