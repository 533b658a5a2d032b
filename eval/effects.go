package eval

import "github.com/guage-run/guage/atom"

// handlerFrame is one active `handle` installation: which effect it
// covers (by the effect name symbol's intern id, compared the same way
// special forms are dispatched) and the handler lambda to invoke.
type handlerFrame struct {
	effectID uint16
	handler  *atom.Atom
}

// formEffectDefine declares an effect name by recording its intern id in
// ev.effects; handle/perform/effect-query work from the symbol's intern id
// directly, do not require a prior declaration, and do not consult this
// record.
func formEffectDefine(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	nameSym := expr.Tail().Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "effect-define expects a symbol name"))
	}
	if ev.effects == nil {
		ev.effects = make(map[uint16]bool)
	}
	ev.effects[nameSym.SymbolInfo().ID] = true
	return noRecur(atom.Retain(nameSym))
}

func (ev *Evaluator) findHandler(id uint16) (*atom.Atom, bool) {
	for i := len(ev.handlers) - 1; i >= 0; i-- {
		if ev.handlers[i].effectID == id {
			return ev.handlers[i].handler, true
		}
	}
	return nil, false
}

// formEffectQuery reports whether an effect currently has an active
// handler in scope.
func formEffectQuery(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	nameSym := expr.Tail().Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "effect-query expects a symbol name"))
	}
	_, ok := ev.findHandler(nameSym.SymbolInfo().ID)
	return noRecur(atom.NewBool(ok))
}

// formEffectGet returns the handler lambda currently installed for an
// effect, for callers that want to inspect or forward it explicitly.
func formEffectGet(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	nameSym := expr.Tail().Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "effect-get expects a symbol name"))
	}
	h, ok := ev.findHandler(nameSym.SymbolInfo().ID)
	if !ok {
		return noRecur(newErrorf(expr.Span(), "no active handler for effect %q", *nameSym.SymbolInfo().Canonical))
	}
	return noRecur(atom.Retain(h))
}

// formHandle installs a handler lambda for an effect over the dynamic
// extent of body, popping it again on the way out.
func formHandle(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	nameSym := rest.Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "handle expects a symbol effect name"))
	}
	handlerExpr := rest.Tail().Head()
	bodyExpr := rest.Tail().Tail().Head()

	handler := ev.Eval(handlerExpr, env)
	if IsErrorAtom(handler) {
		return handler, nil
	}
	if handler.Tag() != atom.Lambda {
		atom.Release(handler)
		return noRecur(newErrorf(expr.Span(), "handle expects its handler to evaluate to a lambda"))
	}

	ev.handlers = append(ev.handlers, handlerFrame{effectID: nameSym.SymbolInfo().ID, handler: handler})
	result, recur := ev.step(bodyExpr, env)
	ev.handlers = ev.handlers[:len(ev.handlers)-1]
	atom.Release(handler)
	return result, recur
}

// formPerform invokes the nearest active handler for an effect, passing
// it the evaluated arguments. This runtime implements one-shot, direct-
// style effect handling: the handler's return value is perform's result
// immediately, rather than a delimited continuation the handler can
// invoke zero, one, or many times. Go has no first-class continuations
// to build the general form on top of, and spec.md's evaluator has no
// stack-capture primitive of its own (only the `recur` tail-call marker,
// which is not a continuation), so this is the faithful reduction of
// "install a handler, perform an effect" to what a plain recursive
// evaluator can actually express.
func formPerform(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	nameSym := rest.Head()
	if nameSym.Tag() != atom.Symbol {
		return noRecur(newErrorf(expr.Span(), "perform expects a symbol effect name"))
	}
	handler, ok := ev.findHandler(nameSym.SymbolInfo().ID)
	if !ok {
		return noRecur(newErrorf(expr.Span(), "perform: no active handler for effect %q", *nameSym.SymbolInfo().Canonical))
	}
	args, err := ev.evalArgs(rest.Tail(), env)
	if err != nil {
		return err, nil
	}
	defer atom.ReleaseEnv(args)
	return noRecur(ev.Apply(handler, args))
}

// formResume is the identity function: (resume v) evaluates and returns
// v. Under formPerform's one-shot direct-style model the handler's
// return already is the resumption value, so resume exists only so
// handler bodies keep the same shape a delimited-continuation-based
// implementation would use.
func formResume(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return ev.step(expr.Tail().Head(), env)
}
