package eval

import "github.com/guage-run/guage/atom"

// formCompose and formPipe build a new callable out of existing lambdas.
// Atom's Lambda payload only knows how to run interpreted bodies or call
// back into the native table by name (spec.md §3 fixes the tag set, so
// there is no separate "closure over Go values" representation); rather
// than synthesizing an equivalent AST out of De Bruijn index atoms, each
// combinator registers a fresh entry in the owning Evaluator's dynamic
// native table and returns a Lambda referencing it by name. The captured
// function list is retained for the life of that entry — the same
// process-lifetime retention spec.md §5 already gives a JIT trace's
// constant table.
func formCompose(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return ev.buildCombinator(expr, env, true)
}

func formPipe(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return ev.buildCombinator(expr, env, false)
}

func (ev *Evaluator) buildCombinator(expr *atom.Atom, env atom.Env, rightToLeft bool) (*atom.Atom, *recurSignal) {
	fns, err := ev.evalArgs(expr.Tail(), env)
	if err != nil {
		return err, nil
	}
	for _, f := range fns {
		if f.Tag() != atom.Lambda {
			atom.ReleaseEnv(fns)
			return noRecur(newErrorf(expr.Span(), "compose/pipe expects lambda arguments, got %s", f.Tag()))
		}
	}

	stages := atom.RetainEnv(append(atom.Env(nil), fns...))
	atom.ReleaseEnv(fns)

	name := ev.Globals.registerDynamic(func(ev *Evaluator, args []*atom.Atom) *atom.Atom {
		order := stages
		if rightToLeft {
			order = reversedEnv(stages)
		}
		cur := args
		var result *atom.Atom
		for _, fn := range order {
			result = ev.Apply(fn, cur)
			if IsErrorAtom(result) {
				return result
			}
			cur = atom.Env{result}
		}
		return result
	})
	return noRecur(atom.NewLambda(nativeArity, atom.NewNil(), nil, name))
}

func reversedEnv(e atom.Env) atom.Env {
	out := make(atom.Env, len(e))
	for i, v := range e {
		out[len(e)-1-i] = v
	}
	return out
}

// formIndexed implements generic indexed access into a vector or a
// proper list, backing the language's one collection-access primitive
// that needs to work across both Atom container shapes.
func formIndexed(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	rest := expr.Tail()
	coll := ev.Eval(rest.Head(), env)
	if IsErrorAtom(coll) {
		return coll, nil
	}
	defer atom.Release(coll)

	idxAtom := ev.Eval(rest.Tail().Head(), env)
	if IsErrorAtom(idxAtom) {
		return idxAtom, nil
	}
	defer atom.Release(idxAtom)

	idxF, ok := numericValue(idxAtom)
	if !ok {
		return noRecur(newErrorf(expr.Span(), "indexed expects a numeric index"))
	}
	i := int(idxF)

	switch coll.Tag() {
	case atom.Vector:
		elems := coll.Elems()
		if i < 0 || i >= len(elems) {
			return noRecur(newErrorf(expr.Span(), "indexed: index %d out of range", i))
		}
		return noRecur(atom.Retain(elems[i]))
	case atom.Pair, atom.Nil:
		cur := coll
		for ; i > 0 && cur.Tag() == atom.Pair; i-- {
			cur = cur.Tail()
		}
		if i != 0 || cur.Tag() != atom.Pair {
			return noRecur(newErrorf(expr.Span(), "indexed: index out of range"))
		}
		return noRecur(atom.Retain(cur.Head()))
	default:
		return noRecur(newErrorf(expr.Span(), "indexed expects a vector or list, got %s", coll.Tag()))
	}
}
