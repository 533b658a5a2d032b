//go:build !linux && !darwin

package jit

import "fmt"

// mapExecutable has no portable implementation outside Unix; platforms
// that land here (including Windows, until an IOCP-style VirtualAlloc
// path is added) simply never get a working Arena, so NewArena fails and
// Compiler.Compile always refuses, same as codegen_other.go's unsupported
// architectures.
func mapExecutable(size int) ([]byte, error) {
	return nil, fmt.Errorf("jit: executable memory mapping not supported on this platform")
}

func unmapExecutable(mem []byte) error {
	return nil
}
