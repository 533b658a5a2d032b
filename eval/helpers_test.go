package eval

import (
	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/intern"
)

func newTestEvaluator() (*Evaluator, *intern.Table, *intern.Cache) {
	table := intern.NewTable()
	cache := intern.NewCache()
	return NewEvaluator(table, 0), table, cache
}

func sym(table *intern.Table, cache *intern.Cache, name string) *atom.Atom {
	e := table.Intern(cache, name)
	return atom.NewSymbol(e.Canonical(), e.ID(), e.Hash())
}

func list(items ...*atom.Atom) *atom.Atom {
	result := atom.NewNil()
	for i := len(items) - 1; i >= 0; i-- {
		next := atom.NewPair(items[i], result)
		atom.Release(result)
		result = next
	}
	return result
}

// lambdaConverted builds a (:lambda-converted (p0 p1 …) body) marker form
// the way debruijn.Converter would, for tests that exercise the evaluator
// directly without running the converter first. paramCount only needs to
// be the right length; the evaluator never inspects the names themselves
// once converted, only the list's length via countParams' text-based walk,
// so plain placeholder symbols are enough.
func lambdaConverted(table *intern.Table, cache *intern.Cache, paramCount int, body *atom.Atom) *atom.Atom {
	marker := sym(table, cache, ":lambda-converted")
	params := make([]*atom.Atom, paramCount)
	for i := range params {
		params[i] = sym(table, cache, "_p")
	}
	paramsList := list(params...)
	result := list(marker, paramsList, body)
	atom.Release(marker)
	atom.Release(paramsList)
	return result
}
