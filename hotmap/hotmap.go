// Package hotmap tracks how often each expression is evaluated and drives
// the tiered-JIT state machine described for the evaluator: Cold, then
// Warming once seen, then Compiled once a trace exists, then Deopted on
// fallback (spec.md §4.4).
package hotmap

import (
	"unsafe"

	"github.com/bytedance/gopkg/util/xxhash3"

	"github.com/guage-run/guage/atom"
)

// State is a hot expression's position in the tiering state machine.
type State uint8

const (
	Cold State = iota
	Warming
	Compiled
	Deopted
)

func (s State) String() string {
	switch s {
	case Cold:
		return "cold"
	case Warming:
		return "warming"
	case Compiled:
		return "compiled"
	case Deopted:
		return "deopted"
	default:
		return "unknown"
	}
}

// Trace is the subset of a JIT trace HotMap needs to know about; the jit
// package supplies the concrete type satisfying it.
type Trace interface {
	// Invalidated reports whether the trace has been deopted and should
	// no longer be dispatched to.
	Invalidated() bool
}

// HotEntry is one tracked expression: its identity, call count, state,
// and (once compiled) its trace.
type HotEntry struct {
	Expr    *atom.Atom
	Count   uint32
	State   State
	Trace   Trace
	noRetry bool // codegen refused this trace once; do not retry
	bucket  uint64
}

// HotMap records a call count per expression identity (pointer equality,
// not structural equality — two structurally identical expressions in
// different call sites are tracked independently). Buckets are indexed by
// a non-keyed hash of the expression's pointer value: HashDoS resistance
// is irrelevant here because the key space is process-local pointers, not
// attacker-controlled bytes, which is exactly the case spec.md's intern
// table (keyed SipHash) does not cover.
type HotMap struct {
	threshold uint32
	buckets   map[uint64][]*HotEntry
	order     []*HotEntry // insertion order, for deterministic iteration
}

// New creates a HotMap with the given promotion threshold T.
func New(threshold uint32) *HotMap {
	return &HotMap{threshold: threshold, buckets: make(map[uint64][]*HotEntry)}
}

func exprKey(expr *atom.Atom) uint64 {
	ptr := uintptr(unsafe.Pointer(expr))
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(ptr >> (8 * i))
	}
	return xxhash3.Hash(b[:])
}

func (h *HotMap) find(expr *atom.Atom, key uint64) *HotEntry {
	for _, e := range h.buckets[key] {
		if e.Expr == expr {
			return e
		}
	}
	return nil
}

// Touch records one evaluation of expr, returning its updated entry and
// whether this call just crossed the promotion threshold (the caller
// should invoke the JIT exactly once, on that transition).
func (h *HotMap) Touch(expr *atom.Atom) (entry *HotEntry, crossedThreshold bool) {
	key := exprKey(expr)
	e := h.find(expr, key)
	if e == nil {
		e = &HotEntry{Expr: expr, State: Cold, bucket: key}
		h.buckets[key] = append(h.buckets[key], e)
		h.order = append(h.order, e)
	}

	e.Count++
	if e.State == Cold {
		e.State = Warming
	}

	if e.State == Warming && !e.noRetry && e.Count == h.threshold && e.Trace == nil {
		return e, true
	}
	return e, false
}

// MarkRefused records that codegen declined to compile entry's trace,
// per spec.md's "stays Warming on codegen refusal with a one-shot 'do
// not retry' flag".
func (e *HotEntry) MarkRefused() {
	e.noRetry = true
}

// MarkCompiled transitions entry to Compiled once a trace exists.
func (e *HotEntry) MarkCompiled(t Trace) {
	e.Trace = t
	e.State = Compiled
}

// MarkDeopted transitions entry to Deopted after a fallback from native
// code. Compiled remains reachable again later (no auto-reattempt).
func (e *HotEntry) MarkDeopted() {
	e.State = Deopted
}

// Len returns the number of tracked expressions.
func (h *HotMap) Len() int { return len(h.order) }

// Entries returns tracked entries in insertion order, for deterministic
// snapshotting in tests and diagnostics.
func (h *HotMap) Entries() []*HotEntry {
	out := make([]*HotEntry, len(h.order))
	copy(out, h.order)
	return out
}
