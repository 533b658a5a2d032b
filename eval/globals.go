package eval

import (
	"fmt"

	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/container/strmap"
)

// nativeArity marks a Lambda atom as a primitive implemented in Go: its
// Body and Captured fields are unused, and Name identifies the entry in
// the owning Evaluator's native table. Atom's tag set has no dedicated
// "native function" tag (spec.md §3 fixes the enum), so this reuses
// Lambda the same way the converted-lambda marker reuses Pair: a sentinel
// field value distinguishes the two kinds of callable.
const nativeArity = -1

// NativeFn is a primitive implemented in Go. It receives already-evaluated
// arguments and returns an owned result atom; failures are reported as an
// error atom, the same contract interpreted code has (spec.md §4.3).
type NativeFn func(ev *Evaluator, args []*atom.Atom) *atom.Atom

// Globals is the evaluator's free-variable binding map: a read-only
// snapshot of built-in primitives, generated once into a
// container/strmap.StrMap for cache-friendly lookup, with a mutable
// overlay for `define`d names. The teacher's StrMap is read-only by
// design; the overlay exists because spec.md's global table must accept
// writes at runtime, which StrMap never does.
type Globals struct {
	natives *strmap.StrMap[NativeFn]
	overlay map[string]*atom.Atom
	// dynamic holds natives synthesized at run time (compose/pipe
	// combinators) rather than preloaded at startup. strmap.StrMap is
	// built once from a fixed slice and has no insertion path, so these
	// live in a plain map the same way user `define`s live in overlay.
	dynamic map[string]NativeFn
}

// NewGlobals builds a Globals preloaded with the primitive table.
func NewGlobals() *Globals {
	names := make([]string, 0, len(builtinTable))
	fns := make([]NativeFn, 0, len(builtinTable))
	for name, fn := range builtinTable {
		names = append(names, name)
		fns = append(fns, fn)
	}
	return &Globals{
		natives: strmap.NewFromSlice(names, fns),
		overlay: make(map[string]*atom.Atom),
	}
}

// Lookup resolves a free symbol. The overlay is consulted first so a
// user `define` can shadow a primitive of the same name.
func (g *Globals) Lookup(name string) (*atom.Atom, bool) {
	if v, ok := g.overlay[name]; ok {
		return atom.Retain(v), true
	}
	if _, ok := g.natives.Get(name); ok {
		return atom.NewLambda(nativeArity, atom.NewNil(), nil, name), true
	}
	return nil, false
}

// Define binds name to value in the mutable overlay, releasing any prior
// binding under that name.
func (g *Globals) Define(name string, value *atom.Atom) {
	if old, ok := g.overlay[name]; ok {
		atom.Release(old)
	}
	g.overlay[name] = atom.Retain(value)
}

func (g *Globals) native(name string) (NativeFn, bool) {
	if fn, ok := g.dynamic[name]; ok {
		return fn, true
	}
	return g.natives.Get(name)
}

// registerDynamic adds fn to the dynamic native table under a fresh name
// (<combinator:N>, N counting registrations; Lookup never resolves it)
// and returns that name for use as a Lambda's Name
// field. Combinators built by compose/pipe are the only current callers.
func (g *Globals) registerDynamic(fn NativeFn) string {
	if g.dynamic == nil {
		g.dynamic = make(map[string]NativeFn)
	}
	name := fmt.Sprintf("<combinator:%d>", len(g.dynamic))
	g.dynamic[name] = fn
	return name
}

// Names returns every bound free-variable name: primitives first, then
// overlay definitions. Used by suggest.go to build its candidate list.
func (g *Globals) Names() []string {
	out := make([]string, 0, g.natives.Len()+len(g.overlay))
	for i := 0; i < g.natives.Len(); i++ {
		name, _ := g.natives.Item(i)
		out = append(out, name)
	}
	for name := range g.overlay {
		out = append(out, name)
	}
	return out
}
