package eval

import (
	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/intern"
)

// formHandler evaluates one special form. A non-nil recurSignal return
// means a (recur …) aimed at the enclosing lambda call is still in
// flight and must keep propagating up to it.
type formHandler func(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal)

// specialForms dispatches a pair's head by interned id rather than
// string compare (spec.md §4.3 point 1): every reserved identifier
// preloaded into the intern table has an entry here.
var specialForms = map[uint16]formHandler{
	intern.IDQuote:                 formQuote,
	intern.IDQuasiquote:            formQuasiquote,
	intern.IDMacroDefine:           formMacroDefine,
	intern.IDMacroExpand:           formMacroExpand,
	intern.IDDefine:                formDefine,
	intern.IDTypeDeclare:           formTypeDeclare,
	intern.IDTypeCheck:             formTypeCheck,
	intern.IDTypeCheckNumber:       formTypeCheckTag(atom.Number),
	intern.IDTypeCheckInteger:      formTypeCheckTag(atom.Integer),
	intern.IDTypeCheckString:       formTypeCheckTag(atom.String),
	intern.IDTypeCheckBool:         formTypeCheckTag(atom.Bool),
	intern.IDLambdaConvertedMarker: formLambdaConverted,
	intern.IDLambda:                formRawLambda,
	intern.IDIf:                    formIf,
	intern.IDSequence:              formSequence,
	intern.IDRecur:                 formRecur,
	intern.IDEffectDefine:          formEffectDefine,
	intern.IDEffectQuery:           formEffectQuery,
	intern.IDEffectGet:             formEffectGet,
	intern.IDHandle:                formHandle,
	intern.IDResume:                formResume,
	intern.IDPerform:               formPerform,
	intern.IDCompose:               formCompose,
	intern.IDPipe:                  formPipe,
	intern.IDIndexed:               formIndexed,
	intern.IDUnquote:               formUnquoteOutsideQuasiquote,
	intern.IDQuasiquoteAlt:         formQuasiquote,
	intern.IDUnquoteAlt:            formUnquoteOutsideQuasiquote,
	intern.IDAnd:                   formAnd,
	intern.IDOr:                    formOr,
	intern.IDTryPropagate:          formTryPropagate,
	intern.IDRefineDefine:          formRefineDefine,
}

func noRecur(a *atom.Atom) (*atom.Atom, *recurSignal) { return a, nil }

func formQuote(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return noRecur(atom.Retain(expr.Tail().Head()))
}

// formLambdaConverted evaluates a (:lambda-converted params body) marker
// into a Lambda value capturing the current environment. The marker
// prevents debruijn.Converter from ever converting the same form twice;
// here it is simply the closure-construction step.
func formLambdaConverted(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	params := rest.Head()
	body := rest.Tail().Head()
	captured := atom.RetainEnv(append(atom.Env(nil), env...))
	return noRecur(atom.NewLambda(countParams(params), body, captured, ""))
}

// formRawLambda only fires if a (lambda …) form reaches the evaluator
// without having gone through debruijn conversion first — the marker
// exists precisely so that never happens in normal operation.
func formRawLambda(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return noRecur(newErrorf(expr.Span(), "uncoverted lambda form reached the evaluator; De Bruijn conversion must run first"))
}

func formIf(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	condExpr := rest.Head()
	thenExpr := rest.Tail().Head()
	var elseExpr *atom.Atom
	if rest.Tail().Tail().Tag() == atom.Pair {
		elseExpr = rest.Tail().Tail().Head()
	}

	cond := ev.Eval(condExpr, env)
	if IsErrorAtom(cond) {
		return cond, nil
	}
	truthy := cond.IsTruthy()
	atom.Release(cond)

	if truthy {
		return ev.step(thenExpr, env)
	}
	if elseExpr != nil {
		return ev.step(elseExpr, env)
	}
	return noRecur(atom.NewNil())
}

func formSequence(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	cur := expr.Tail()
	if cur.Tag() != atom.Pair {
		return noRecur(atom.NewNil())
	}
	for cur.Tail().Tag() == atom.Pair {
		v := ev.Eval(cur.Head(), env)
		if IsErrorAtom(v) {
			return v, nil
		}
		atom.Release(v)
		cur = cur.Tail()
	}
	return ev.step(cur.Head(), env)
}

func formRecur(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	args, err := ev.evalArgs(expr.Tail(), env)
	if err != nil {
		return err, nil
	}
	return nil, &recurSignal{args: args}
}

func formDefine(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	nameSym := rest.Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "define expects a symbol name"))
	}
	value := ev.Eval(rest.Tail().Head(), env)
	if IsErrorAtom(value) {
		return value, nil
	}
	ev.Globals.Define(*nameSym.SymbolInfo().Canonical, value)
	return noRecur(value)
}

func formAnd(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	cur := expr.Tail()
	if cur.Tag() != atom.Pair {
		return noRecur(atom.NewBool(true))
	}
	for cur.Tail().Tag() == atom.Pair {
		v := ev.Eval(cur.Head(), env)
		if IsErrorAtom(v) {
			return v, nil
		}
		truthy := v.IsTruthy()
		atom.Release(v)
		if !truthy {
			return noRecur(atom.NewBool(false))
		}
		cur = cur.Tail()
	}
	return ev.step(cur.Head(), env)
}

func formOr(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	cur := expr.Tail()
	if cur.Tag() != atom.Pair {
		return noRecur(atom.NewBool(false))
	}
	for cur.Tail().Tag() == atom.Pair {
		v := ev.Eval(cur.Head(), env)
		if IsErrorAtom(v) {
			return v, nil
		}
		if v.IsTruthy() {
			return v, nil
		}
		atom.Release(v)
		cur = cur.Tail()
	}
	return ev.step(cur.Head(), env)
}

// formTryPropagate evaluates its single operand in tail position. There
// is no Result/union Atom tag to unwrap (spec.md §3 fixes the tag set),
// so "propagate" here means exactly what every other form already does
// with an error result — stop and hand it to the caller — made explicit
// as its own form for use inside a sequence body.
func formTryPropagate(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return ev.step(expr.Tail().Head(), env)
}
