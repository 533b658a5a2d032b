package eval

import "github.com/guage-run/guage/atom"

// pushFrame builds the environment a lambda body runs under: its argument
// vector prepended to the closure's captured environment (spec.md §4.3).
// A fresh slice is always allocated rather than growing args in place,
// since sibling frames may share the same captured tail and must never
// observe each other's writes.
func pushFrame(args atom.Env, captured atom.Env) atom.Env {
	frame := make(atom.Env, len(args)+len(captured))
	copy(frame, args)
	copy(frame[len(args):], captured)
	return frame
}

// envAt fetches the atom bound at a De Bruijn index, returning an owned
// reference. Out-of-range indices are a converter/evaluator bug, not a
// user error, and panic rather than silently returning nil.
func envAt(env atom.Env, index int64) *atom.Atom {
	if index < 0 || int(index) >= len(env) {
		panic("eval: De Bruijn index out of range")
	}
	return atom.Retain(env[index])
}
