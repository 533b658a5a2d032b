//go:build !amd64 && !arm64

package jit

// codegenArch has no backend on this architecture; Compiler.Compile
// always refuses here, same effect as Lower refusing an unsupported
// expression shape, so the evaluator simply never leaves the
// interpreter on platforms this package hasn't been taught.
func codegenArch(prog Program) ([]byte, bool) {
	return nil, false
}
