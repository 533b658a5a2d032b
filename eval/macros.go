package eval

import "github.com/guage-run/guage/atom"

// formMacroDefine and formMacroExpand are dispatched (their reserved ids
// exist and are preloaded, spec.md §4.1) but a macro-expansion pipeline
// is an explicit spec.md §1 Non-goal. Rather than leaving the forms
// unrecognized, they fail with a clear, typed error so a program that
// uses them gets a direct answer instead of silently falling through to
// "undefined symbol".
func formMacroDefine(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return noRecur(newErrorf(expr.Span(), "macro-define: macro expansion is not implemented by this runtime"))
}

func formMacroExpand(ev *Evaluator, expr *atom.Atom, env atom.Env) (*atom.Atom, *recurSignal) {
	return noRecur(newErrorf(expr.Span(), "macro-expand: macro expansion is not implemented by this runtime"))
}
