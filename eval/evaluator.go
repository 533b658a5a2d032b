// Package eval implements the recursive tree-walking evaluator over
// De Bruijn-converted expressions: indexed environment lookup, special
// form dispatch by interned id rather than string compare, and the
// hot-counter hook that invokes the JIT (spec.md §4.3, §4.4).
package eval

import (
	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/hotmap"
	"github.com/guage-run/guage/intern"
	"github.com/guage-run/guage/sourcemap"
)

// Compiled is the subset of a JIT trace the evaluator needs to invoke
// native code for a hot expression. The jit package's Trace type
// implements it; eval never imports jit directly, avoiding a cycle (the
// JIT lowers already-converted expressions the evaluator hands it).
type Compiled interface {
	hotmap.Trace
	// Call runs the compiled native function over env, returning an
	// owned result, or (nil, false) to signal deoptimization.
	Call(env atom.Env) (*atom.Atom, bool)
}

// Compiler is implemented by the JIT: given a hot expression, it either
// returns a Trace ready to dispatch to, or refuses (ok=false).
type Compiler interface {
	Compile(expr *atom.Atom) (Compiled, bool)
}

// Evaluator holds everything a single logical interpreter instance needs:
// the shared intern table plus its own address cache, the global binding
// table, the hot-expression tracker, and (optionally) a JIT compiler.
// Per spec.md §5 an Evaluator is used from exactly one goroutine.
type Evaluator struct {
	Table    *intern.Table
	Cache    *intern.Cache
	Globals  *Globals
	Hot      *hotmap.HotMap
	Compiler Compiler
	Macros   map[uint16]*atom.Atom // macro-define registrations, keyed by name's intern id
	handlers []handlerFrame        // active `handle` stack, innermost last
	types    map[uint16]*atom.Atom // type-declare records, keyed by name's intern id
	effects  map[uint16]bool       // effect-define registrations
	deopts   uint64
}

const defaultHotThreshold = 100

// NewEvaluator builds an Evaluator sharing table (and its own fresh
// Cache) with threshold T for JIT promotion.
func NewEvaluator(table *intern.Table, threshold uint32) *Evaluator {
	if threshold == 0 {
		threshold = defaultHotThreshold
	}
	return &Evaluator{
		Table:   table,
		Cache:   intern.NewCache(),
		Globals: NewGlobals(),
		Hot:     hotmap.New(threshold),
		Macros:  make(map[uint16]*atom.Atom),
		types:   make(map[uint16]*atom.Atom),
	}
}

// recurSignal unwinds the Go call stack for a (recur …) tail call: apply's
// loop catches it after a step of the current lambda's body and loops
// instead of recursing, giving tail iteration constant stack depth.
type recurSignal struct {
	args atom.Env
}

// Eval evaluates expr (already De Bruijn-converted) under env, returning
// an owned result atom. A failed step returns an error atom rather than a
// Go error (spec.md §4.3); callers test with IsErrorAtom. A (recur …) at
// the top level, with no enclosing lambda call to re-enter, is a user
// error: apply's own loop is what actually absorbs recur signals for
// tail iteration (spec.md §4.3 point 6).
func (ev *Evaluator) Eval(expr *atom.Atom, env atom.Env) *atom.Atom {
	result, recur := ev.step(expr, env)
	if recur != nil {
		atom.ReleaseEnv(recur.args)
		return newErrorf(expr.Span(), "recur used outside of a lambda body")
	}
	return result
}

// step evaluates expr once. A non-nil recurSignal return means the caller
// should loop with its args as the new environment instead of treating
// the nil result as final.
func (ev *Evaluator) step(expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	switch expr.Tag() {
	case atom.Bool, atom.Nil, atom.String, atom.ErrorTag:
		return atom.Retain(expr), nil

	case atom.Integer:
		// a bare integer after conversion is always a De Bruijn index.
		return envAt(env, expr.Int()), nil

	case atom.Number:
		// only reachable for malformed pre-conversion input; treat as
		// self-evaluating since quoting is the converter's job.
		return atom.Retain(expr), nil

	case atom.Symbol:
		return ev.evalFreeSymbol(expr), nil

	case atom.Pair:
		return ev.evalPair(expr, env)

	default:
		return atom.Retain(expr), nil
	}
}

func (ev *Evaluator) evalFreeSymbol(sym *atom.Atom) *atom.Atom {
	name := *sym.SymbolInfo().Canonical
	if v, ok := ev.Globals.Lookup(name); ok {
		return v
	}
	return ev.undefinedSymbolError(sym, name)
}

func (ev *Evaluator) evalPair(expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	head := expr.Head()
	if head.Tag() == atom.Symbol {
		if handler, ok := specialForms[head.SymbolInfo().ID]; ok {
			return handler(ev, expr, env)
		}
	}
	return ev.evalApplication(expr, env)
}

// evalApplication handles ordinary function application: evaluate the
// head to a callable, evaluate arguments left to right, then apply.
func (ev *Evaluator) evalApplication(expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	callee := ev.Eval(expr.Head(), env)
	if IsErrorAtom(callee) {
		return callee, nil
	}
	defer atom.Release(callee)

	args, err := ev.evalArgs(expr.Tail(), env)
	if err != nil {
		return err, nil
	}
	defer atom.ReleaseEnv(args)

	if callee.Tag() != atom.Lambda {
		return newErrorf(expr.Span(), "cannot apply non-lambda value of type %s", callee.Tag()), nil
	}
	return ev.apply(callee, args)
}

func (ev *Evaluator) evalArgs(list *atom.Atom, env atom.Env) (atom.Env, *atom.Atom) {
	var args atom.Env
	for cur := list; cur.Tag() == atom.Pair; cur = cur.Tail() {
		v := ev.Eval(cur.Head(), env)
		if IsErrorAtom(v) {
			atom.ReleaseEnv(args)
			return nil, v
		}
		args = append(args, v)
	}
	return args, nil
}

// apply invokes a Lambda atom — native or interpreted — with an argument
// vector the caller still owns: apply never releases args, its callers do.
func (ev *Evaluator) apply(lambda *atom.Atom, args atom.Env) (*atom.Atom, *recurSignal) {
	info := lambda.LambdaInfo()
	if info.ParamCount == nativeArity {
		fn, ok := ev.Globals.native(info.Name)
		if !ok {
			return newErrorf(sourcemap.NoSpan, "undefined primitive %q", info.Name), nil
		}
		return fn(ev, args), nil
	}

	frameEnv := pushFrame(args, info.Captured)

	if ev.Hot != nil {
		if result, recur, handled := ev.tryCompiled(info.Body, frameEnv); handled {
			return result, recur
		}
	}

	for {
		result, recur := ev.step(info.Body, frameEnv)
		if recur == nil {
			return result, nil
		}
		frameEnv = pushFrame(recur.args, info.Captured)
	}
}

// tryCompiled records a call against the hot-expression tracker and, once a
// trace is compiled and live, dispatches to native code instead of
// interpreting body directly. handled is false whenever the caller should
// fall back to the interpreter loop as usual: the expression is still
// cold or warming, codegen refused it, or the trace itself declined this
// particular call's argument shape and deoptimized (spec.md §4.4).
func (ev *Evaluator) tryCompiled(body *atom.Atom, frameEnv atom.Env) (*atom.Atom, *recurSignal, bool) {
	entry, crossed := ev.Hot.Touch(body)
	if crossed && ev.Compiler != nil {
		if trace, ok := ev.Compiler.Compile(body); ok {
			entry.MarkCompiled(trace)
		} else {
			entry.MarkRefused()
		}
	}
	if entry.State != hotmap.Compiled || entry.Trace == nil || entry.Trace.Invalidated() {
		return nil, nil, false
	}
	compiled, ok := entry.Trace.(Compiled)
	if !ok {
		return nil, nil, false
	}
	result, ok := compiled.Call(frameEnv)
	if !ok {
		entry.MarkDeopted()
		ev.deopts++
		return nil, nil, false
	}
	return result, nil, true
}

// Apply is the exported entry point other packages (native primitives
// implementing higher-order functions like compose/pipe) use to invoke a
// Lambda value.
func (ev *Evaluator) Apply(lambda *atom.Atom, args atom.Env) *atom.Atom {
	result, _ := ev.apply(lambda, args)
	return result
}

// DeoptCount returns the number of times JIT-compiled code has fallen
// back to the interpreter, for diagnostics.
func (ev *Evaluator) DeoptCount() uint64 { return ev.deopts }
