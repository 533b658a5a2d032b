package ring

import (
	"fmt"

	"github.com/guage-run/guage/unsafex/malloc"
)

// minSlotBlockSize is the bitmap allocator's per-block granularity:
// BufferGroup always requests exactly one block per slot (AllocSlot),
// so this only has to satisfy BitmapAllocator's own minimum.
const minSlotBlockSize = malloc.DefaultBitmapMinBlockSize

// BufferGroup is a registered pool of equal-sized slots a ring backend
// picks from on a provided-buffer recv (spec.md §4.5's buffer-ring
// contract): the ring itself tracks only which slots are free, never
// which are semantically "owned" by in-flight I/O — that bookkeeping is
// the application's, returned explicitly via Return.
type BufferGroup struct {
	slotSize int
	alloc    *malloc.BitmapAllocator
	// id is set by whichever ring backend's RegisterBufferGroup call
	// claims this group; a recv submission against it stamps sqe's
	// group field with this value so the kernel (or kqueue emulation)
	// knows which pool to pick a slot from.
	id uint16
}

// NewBufferGroup builds a pool of count slots of slotSize bytes each.
// slotSize is rounded up to the allocator's block granularity.
func NewBufferGroup(count, slotSize int) (*BufferGroup, error) {
	if count <= 0 || slotSize <= 0 {
		return nil, fmt.Errorf("ring: buffer group needs positive count and slot size")
	}
	blockSize := slotSize
	if blockSize < minSlotBlockSize {
		blockSize = minSlotBlockSize
	}
	if blockSize%4096 != 0 {
		blockSize += 4096 - blockSize%4096
	}
	arena := make([]byte, blockSize*count+blockSize) // +1 block for the allocator's own header region
	alloc, err := malloc.NewBitmapAllocatorWithBlockSize(arena, blockSize, blockSize*2)
	if err != nil {
		return nil, fmt.Errorf("ring: building buffer group: %w", err)
	}
	return &BufferGroup{slotSize: slotSize, alloc: alloc}, nil
}

// Acquire claims a free slot, returning its id and backing storage
// (capped to slotSize even though the underlying block may be larger
// after rounding). ok is false once the pool is exhausted.
func (g *BufferGroup) Acquire() (id uint16, data []byte, ok bool) {
	idx, slot := g.alloc.AllocSlot()
	if idx == -1 {
		return 0, nil, false
	}
	return uint16(idx), slot[:g.slotSize], true
}

// Return releases a previously acquired slot back to the pool. Callers
// must not touch data returned by the matching Acquire afterward.
func (g *BufferGroup) Return(id uint16) {
	g.alloc.FreeSlot(int(id))
}

// Data looks up the bytes backing a slot id without claiming or freeing
// it — used by a harvest loop to read a filled provided buffer the ring
// reported via RingCQE.BufferID.
func (g *BufferGroup) Data(id uint16) []byte {
	return g.alloc.SlotData(int(id))[:g.slotSize]
}
