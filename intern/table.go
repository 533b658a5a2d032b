// Package intern implements the hot-path symbol interner: a thread-local
// address cache over a shared, read-write-locked open-addressing table
// (spec.md §4.1).
package intern

import (
	"sync"

	"github.com/guage-run/guage/internal/hack"
	"github.com/guage-run/guage/internal/siphash"
)

const (
	initialCapacity = 64   // power of two, > groupWidth
	reservedIDSpace = 4096 // ids [0, reservedIDSpace) are headroom for special forms
	maxInternIDs    = 1 << 16
)

// Table is the shared intern table. Safe for concurrent use: probes take
// a read lock, inserts take a write lock and re-probe to resolve races
// (spec.md §5).
type Table struct {
	mu   sync.RWMutex
	ops  GroupOps
	key  siphash.Key
	ctrl []uint8
	ents []*Entry
	mask uint32
	size int
	next uint32 // next id to assign; kept wider than uint16 to detect overflow before it wraps
}

// NewTable creates an empty Table and preloads the reserved special-form
// identifiers (spec.md §4.1, §6) so their ids match the ABI every
// evaluator dispatch table is generated from.
func NewTable() *Table {
	t := &Table{ops: DefaultGroupOps, key: siphash.NewKey()}
	t.ctrl = make([]uint8, initialCapacity)
	for i := range t.ctrl {
		t.ctrl[i] = ctrlEmpty
	}
	t.ents = make([]*Entry, initialCapacity)
	t.mask = initialCapacity - 1
	if len(ReservedIdentifiers) > reservedIDSpace {
		// spec.md §4.1: id overflow above the 4096 reserved range is fatal.
		panic("intern: more reserved identifiers than the reserved id range allows")
	}
	t.next = reservedIDSpace
	for i, name := range ReservedIdentifiers {
		t.insertLocked(name, uint16(i))
	}
	return t
}

// Intern looks up or creates the entry for text, optionally consulting and
// populating the caller-owned Cache first.
func (t *Table) Intern(c *Cache, text string) *Entry {
	hash := siphash.SumString(t.key, text)

	if c != nil {
		if e, ok := c.lookup(text); ok {
			return e
		}
	}

	if e := t.probe(text, hash); e != nil {
		if c != nil {
			c.store(text, e)
		}
		return e
	}

	t.mu.Lock()
	// another writer may have inserted text while we waited for the lock
	if e := t.probeLocked(text, hash); e != nil {
		t.mu.Unlock()
		if c != nil {
			c.store(text, e)
		}
		return e
	}
	if t.size+1 > (len(t.ents)*3)/4 {
		t.grow()
	}
	id := t.allocID()
	e := t.insertLocked(text, id)
	t.mu.Unlock()

	if c != nil {
		c.store(text, e)
	}
	return e
}

func (t *Table) allocID() uint16 {
	if t.next >= maxInternIDs {
		panic("intern: id space exhausted")
	}
	id := t.next
	t.next++
	return uint16(id)
}

// probe takes the read lock and scans for text.
func (t *Table) probe(text string, hash uint64) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.probeLocked(text, hash)
}

// probeLocked scans the table for text under whatever lock the caller
// already holds (read or write).
func (t *Table) probeLocked(text string, hash uint64) *Entry {
	want := h2(hash)
	gw := t.ops.GroupWidth()
	cap := len(t.ctrl)
	start := int(uint32(hash) & t.mask)

	for probed := 0; probed < cap; {
		base := (start + probed) % cap
		end := base + gw
		if end > cap {
			end = cap
		}
		group := t.ctrl[base:end]

		mask := t.ops.MatchH2(group, want)
		for {
			i, rest := nextSetBit(mask)
			if i < 0 {
				break
			}
			mask = rest
			e := t.ents[base+i]
			if e != nil && e.matches(text, hash) {
				return e
			}
		}
		if t.ops.MatchEmpty(group) != 0 {
			return nil // empty slot in this group: text is not present
		}
		probed += end - base
	}
	return nil
}

// insertLocked inserts text with a pre-assigned id. Caller holds the write
// lock (or is NewTable's single-threaded preload).
func (t *Table) insertLocked(text string, id uint16) *Entry {
	hash := siphash.SumString(t.key, text)
	e := newEntry(text, id, hash)
	t.placeLocked(e, hash)
	t.size++
	return e
}

func (t *Table) placeLocked(e *Entry, hash uint64) {
	cap := len(t.ctrl)
	mask := t.mask
	idx := int(uint32(hash) & mask)
	for {
		if t.ctrl[idx] == ctrlEmpty {
			t.ctrl[idx] = h2(hash)
			t.ents[idx] = e
			return
		}
		idx = (idx + 1) % cap
	}
}

func (t *Table) grow() {
	oldEnts := t.ents
	newCap := len(t.ctrl) * 2
	t.ctrl = make([]uint8, newCap)
	for i := range t.ctrl {
		t.ctrl[i] = ctrlEmpty
	}
	t.ents = make([]*Entry, newCap)
	t.mask = uint32(newCap - 1)
	for _, e := range oldEnts {
		if e != nil {
			t.placeLocked(e, e.hash)
		}
	}
}

// Len returns the number of interned identifiers, for tests.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// ByID returns the entry registered with the given id, if any, by a linear
// scan of the table.
func (t *Table) ByID(id uint16) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.ents {
		if e != nil && e.id == id {
			return e, true
		}
	}
	return nil, false
}

// stringDataAddr wraps hack.StringDataAddr for the Cache implementation in
// this package.
func stringDataAddr(s string) uintptr { return hack.StringDataAddr(s) }
