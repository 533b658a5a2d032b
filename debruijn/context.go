// Package debruijn converts named-variable lambda expressions into
// nameless indexed form, so the evaluator's variable lookup becomes a
// constant-time indexed fetch into an environment vector.
package debruijn

// NameContext is one lambda's parameter scope, chained to its enclosing
// scope. It is built fresh for each lambda encountered during conversion
// and discarded once that lambda's body has been converted.
type NameContext struct {
	names  []string
	parent *NameContext
}

// newContext extends parent with names, in left-to-right parameter order.
func newContext(names []string, parent *NameContext) *NameContext {
	return &NameContext{names: names, parent: parent}
}

// lookup walks the context chain innermost-first. A name bound in the
// current (innermost) scope resolves to its position there; a name bound
// further out accumulates the parameter counts of every scope walked
// before reaching it, matching how entering a lambda prepends its
// argument vector onto the already-captured environment: more deeply
// nested bindings always sit at lower indices.
func (ctx *NameContext) lookup(name string) (int, bool) {
	depth := 0
	for c := ctx; c != nil; c = c.parent {
		for i, n := range c.names {
			if n == name {
				return depth + i, true
			}
		}
		depth += len(c.names)
	}
	return 0, false
}
