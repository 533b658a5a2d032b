//go:build arm64

package jit

// callTrace reaches native code emitted by codegen_arm64.go, passing
// argsPtr in R1 and argc in R2 (see callasm_arm64.s), returning whatever
// the code left in R0.
//
//go:noescape
func callTrace(code uintptr, argsPtr *int64, argc int64) int64
