package jit

import (
	"fmt"
	"sync"

	"github.com/guage-run/guage/unsafex/malloc"
)

// arenaMinBlock and arenaMaxBlock size the buddy allocator's blocks for
// JIT traces: a compiled binary-arithmetic trace is at most a few dozen
// instructions, comfortably inside one 256-byte block, and pages are
// handed out in 4KB (one native page) chunks so a fresh Arena only ever
// grows a whole page at a time.
const (
	arenaMinBlock = 256
	arenaMaxBlock = 4096
)

// Arena owns a single mmap'd RWX region and sub-allocates it with the
// same power-of-two buddy allocator unsafex/malloc backs non-executable
// pools with (spec.md §6.4), repurposed here to hand out slices of
// executable memory instead of plain heap blocks.
type Arena struct {
	mu    sync.Mutex
	mem   []byte
	alloc *malloc.BuddyAllocator
}

// NewArena reserves an RWX region of size bytes, rounded up to a multiple
// of arenaMaxBlock, and returns an Arena sub-allocating it.
func NewArena(size int) (*Arena, error) {
	if size <= 0 {
		size = arenaMaxBlock
	}
	if size%arenaMaxBlock != 0 {
		size += arenaMaxBlock - size%arenaMaxBlock
	}
	mem, err := mapExecutable(size)
	if err != nil {
		return nil, err
	}
	alloc, err := malloc.NewBuddyAllocatorWithBlockSize(mem, arenaMinBlock, arenaMaxBlock)
	if err != nil {
		unmapExecutable(mem)
		return nil, fmt.Errorf("jit: building arena allocator: %w", err)
	}
	return &Arena{mem: mem, alloc: alloc}, nil
}

// Emit copies code into a fresh block of executable memory and returns
// it. The returned slice's address is stable for the arena's lifetime;
// traces never move once emitted (no compaction, matching the
// allocator's lazy-coalesce-on-free design).
func (a *Arena) Emit(code []byte) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	block := a.alloc.Alloc(len(code))
	if block == nil {
		return nil, fmt.Errorf("jit: arena exhausted (%d bytes requested, %d available)", len(code), a.alloc.Available())
	}
	copy(block, code)
	return block, nil
}

// Release returns code's block to the allocator. Callers must only do
// this once no live Trace still points at it.
func (a *Arena) Release(code []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alloc.Free(code)
}

// Close unmaps the arena's backing memory. The Arena must not be used
// afterward.
func (a *Arena) Close() error {
	return unmapExecutable(a.mem)
}
