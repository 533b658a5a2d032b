package eval

import (
	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/intern"
)

// formQuasiquote walks its operand as literal data, evaluating unquote
// (or unquote-alt) sub-forms in the current environment and splicing
// their results in place. Nested quasiquote raises the depth so an
// unquote only fires when it belongs to the outermost quasiquote being
// evaluated (depth 1), the usual Lisp nesting rule.
func formQuasiquote(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	result := ev.quasi(expr.Tail().Head(), env, 1)
	if IsErrorAtom(result) {
		return result, nil
	}
	return noRecur(result)
}

func (ev *Evaluator) quasi(form *atom.Atom, env atom.Env, depth int) *atom.Atom {
	if form.Tag() != atom.Pair {
		return atom.Retain(form)
	}

	head := form.Head()
	if head.Tag() == atom.Symbol {
		switch head.SymbolInfo().ID {
		case intern.IDUnquote, intern.IDUnquoteAlt:
			if depth == 1 {
				return ev.Eval(form.Tail().Head(), env)
			}
			inner := ev.quasi(form.Tail().Head(), env, depth-1)
			if IsErrorAtom(inner) {
				return inner
			}
			return wrapUnary(head, inner)
		case intern.IDQuasiquote, intern.IDQuasiquoteAlt:
			inner := ev.quasi(form.Tail().Head(), env, depth+1)
			if IsErrorAtom(inner) {
				return inner
			}
			return wrapUnary(head, inner)
		}
	}

	h := ev.quasi(head, env, depth)
	if IsErrorAtom(h) {
		return h
	}
	t := ev.quasi(form.Tail(), env, depth)
	if IsErrorAtom(t) {
		atom.Release(h)
		return t
	}
	result := atom.NewPair(h, t)
	atom.Release(h)
	atom.Release(t)
	return result
}

func wrapUnary(headSym, operand *atom.Atom) *atom.Atom {
	inner := atom.NewPair(operand, atom.NewNil())
	result := atom.NewPair(headSym, inner)
	atom.Release(inner)
	atom.Release(operand)
	return result
}

// formUnquoteOutsideQuasiquote handles unquote/unquote-alt reached
// directly by the evaluator rather than by formQuasiquote's own walk,
// which only happens when a program uses one outside any enclosing
// quasiquote.
func formUnquoteOutsideQuasiquote(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return noRecur(newErrorf(expr.Span(), "unquote used outside of quasiquote"))
}
