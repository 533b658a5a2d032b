//go:build linux || darwin

package jit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mapExecutable reserves size bytes of anonymous memory mapped read,
// write, and exec. Unlike internal/iouring's file-backed mmap, this
// mapping has no fd behind it (spec.md §6.4 wants a single RWX region
// rather than the usual W^X pair of mappings, trading the stronger
// security posture for one less syscall and one less page-remap per
// trace — acceptable since traces never execute untrusted bytes, only
// the codegen backend's own output).
func mapExecutable(size int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("jit: mmap executable arena: %w", err)
	}
	return mem, nil
}

func unmapExecutable(mem []byte) error {
	return unix.Munmap(mem)
}
