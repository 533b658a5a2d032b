package eval

import "github.com/guage-run/guage/atom"

// formTypeDeclare and formTypeCheck implement the "type-checking beyond
// the reserved identifiers" that spec.md §1 keeps in scope while
// explicitly excluding a full static type-checking pipeline as a
// Non-goal: these are plain dynamic tag checks, not a type system.

func formTypeDeclare(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	nameSym := rest.Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "type-declare expects a symbol name"))
	}
	typeExpr := rest.Tail().Head()
	if ev.types == nil {
		ev.types = make(map[uint16]*atom.Atom)
	}
	ev.types[nameSym.SymbolInfo().ID] = atom.Retain(typeExpr)
	return noRecur(atom.NewNil())
}

// formTypeCheck implements the generic two-argument form
// (type-check value type-name), comparing value's tag against a symbol
// naming one of the fixed Atom tags.
func formTypeCheck(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	value := ev.Eval(rest.Head(), env)
	if IsErrorAtom(value) {
		return value, nil
	}
	defer atom.Release(value)

	typeSym := rest.Tail().Head()
	if typeSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "type-check expects a symbol type name"))
	}
	wantTag := *typeSym.SymbolInfo().Canonical
	return noRecur(atom.NewBool(value.Tag().String() == wantTag))
}

// formTypeCheckTag builds a single-argument predicate bound to one fixed
// tag, backing type-check-number/integer/string/bool.
func formTypeCheckTag(tag atom.Tag) formHandler {
	return func(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
		value := ev.Eval(expr.Tail().Head(), env)
		if IsErrorAtom(value) {
			return value, nil
		}
		defer atom.Release(value)
		return noRecur(atom.NewBool(value.Tag() == tag))
	}
}

// formRefineDefine registers a named refinement predicate — a lambda
// used to further narrow a declared type at the call sites that choose
// to invoke it. Storage is the same side table type-declare uses; no
// refinement pipeline enforces it automatically (same Non-goal as
// type-checking beyond the reserved identifiers).
func formRefineDefine(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	nameSym := rest.Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "refine-define expects a symbol name"))
	}
	predicate := ev.Eval(rest.Tail().Head(), env)
	if IsErrorAtom(predicate) {
		return predicate, nil
	}
	if ev.types == nil {
		ev.types = make(map[uint16]*atom.Atom)
	}
	ev.types[nameSym.SymbolInfo().ID] = predicate
	return noRecur(atom.Retain(nameSym))
}
