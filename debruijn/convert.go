package debruijn

import (
	"unicode"

	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/intern"
)

// genericParamMarker and annotationColon are reader-level sigils that
// appear inside parameter lists but carry no De Bruijn slot of their own:
// "⊳ name [:Constraint]" introduces a generic parameter, "name : Type"
// annotates a plain one. Neither is a reserved identifier (the evaluator
// never dispatches on them); a Converter interns them once and compares
// by canonical pointer thereafter.
const (
	genericParamText = "⊳" // ⊳
	annotationText   = ":"
)

// Converter holds the canonical pointers a conversion pass needs
// repeatedly, so it only has to intern them once per owning interpreter
// instance rather than once per lambda.
type Converter struct {
	table   *intern.Table
	cache   *intern.Cache
	quote   *intern.Entry
	marker  *intern.Entry
	generic *string
	colon   *string
}

// NewConverter builds a Converter bound to table, using cache (which may
// be nil) for the hot-path identifiers it interns up front.
func NewConverter(table *intern.Table, cache *intern.Cache) *Converter {
	return &Converter{
		table:   table,
		cache:   cache,
		quote:   table.Intern(cache, "quote"),
		marker:  table.Intern(cache, ":lambda-converted"),
		generic: table.Intern(cache, genericParamText).Canonical(),
		colon:   table.Intern(cache, annotationText).Canonical(),
	}
}

// Convert transforms expr from named-variable to De Bruijn form under ctx
// (nil for the top-level root scope). The result is an owned reference;
// expr's own ownership is unaffected.
func (c *Converter) Convert(expr *atom.Atom, ctx *NameContext) *atom.Atom {
	switch expr.Tag() {
	case atom.Bool, atom.Nil, atom.String:
		return atom.Retain(expr)

	case atom.Number, atom.Integer:
		// a bare number input is a literal; wrap it so that after
		// conversion every bare number unambiguously denotes an index.
		return c.wrapQuoted(expr)

	case atom.Symbol:
		return c.convertSymbol(expr, ctx)

	case atom.Pair:
		return c.convertPair(expr, ctx)

	default:
		return atom.Retain(expr)
	}
}

func (c *Converter) wrapQuoted(lit *atom.Atom) *atom.Atom {
	sym := atom.NewSymbol(c.quote.Canonical(), c.quote.ID(), c.quote.Hash())
	inner := atom.NewPair(lit, atom.NewNil())
	result := atom.NewPair(sym, inner)
	atom.Release(sym)
	atom.Release(inner)
	return result
}

func (c *Converter) convertSymbol(sym *atom.Atom, ctx *NameContext) *atom.Atom {
	name := *sym.SymbolInfo().Canonical
	if depth, ok := ctx.lookup(name); ok {
		return atom.NewInteger(int64(depth))
	}
	// free variable: primitive or global, resolved at evaluation time.
	return atom.Retain(sym)
}

func (c *Converter) convertPair(expr *atom.Atom, ctx *NameContext) *atom.Atom {
	head := expr.Head()
	if head.Tag() == atom.Symbol && head.SymbolInfo().ID == intern.IDLambda {
		return c.convertLambda(expr, ctx)
	}

	first := c.Convert(head, ctx)
	rest := c.convertList(expr.Tail(), ctx)
	result := atom.NewPair(first, rest)
	atom.Release(first)
	atom.Release(rest)
	return result
}

// convertList maps Convert over a list spine, preserving an improper
// final tail by converting it in place instead of requiring Nil.
func (c *Converter) convertList(list *atom.Atom, ctx *NameContext) *atom.Atom {
	if list.Tag() == atom.Nil {
		return atom.NewNil()
	}
	if list.Tag() != atom.Pair {
		return c.Convert(list, ctx)
	}
	head := c.Convert(list.Head(), ctx)
	tail := c.convertList(list.Tail(), ctx)
	result := atom.NewPair(head, tail)
	atom.Release(head)
	atom.Release(tail)
	return result
}

// convertLambda handles (lambda (params…) body): build the extended
// context from the parameter list, convert the body under it, and emit
// the converted-lambda marker so a second pass never reconverts it.
func (c *Converter) convertLambda(expr *atom.Atom, ctx *NameContext) *atom.Atom {
	rest := expr.Tail()
	params := rest.Head()
	bodyExpr := rest.Tail().Head()

	names := c.paramNames(params)
	newCtx := newContext(names, ctx)
	convertedBody := c.Convert(bodyExpr, newCtx)

	markerSym := atom.NewSymbol(c.marker.Canonical(), c.marker.ID(), c.marker.Hash())
	bodyList := atom.NewPair(convertedBody, atom.NewNil())
	paramsList := atom.NewPair(params, bodyList)
	result := atom.NewPair(markerSym, paramsList)

	atom.Release(markerSym)
	atom.Release(paramsList)
	atom.Release(bodyList)
	atom.Release(convertedBody)
	return result
}

// paramNames walks a parameter list, skipping generic-parameter markers,
// their optional capitalized constraint, and "name : type" annotations —
// none of those consume a De Bruijn slot. Parameters resolve inner-first,
// so duplicate names simply shadow in list order.
func (c *Converter) paramNames(params *atom.Atom) []string {
	var names []string
	cur := params
	for cur.Tag() == atom.Pair {
		p := cur.Head()
		if c.isGenericMarker(p) {
			cur = cur.Tail()
			if cur.Tag() != atom.Pair {
				break
			}
			names = append(names, *cur.Head().SymbolInfo().Canonical)
			cur = cur.Tail()
			cur = c.skipConstraint(cur)
			continue
		}
		names = append(names, *p.SymbolInfo().Canonical)
		cur = cur.Tail()
		cur = c.skipAnnotation(cur)
	}
	return names
}

func (c *Converter) isGenericMarker(a *atom.Atom) bool {
	return a.Tag() == atom.Symbol && a.SymbolInfo().Canonical == c.generic
}

// skipConstraint drops an optional ":CapitalizedSymbol" constraint
// following a generic parameter's name.
func (c *Converter) skipConstraint(cur *atom.Atom) *atom.Atom {
	if cur.Tag() != atom.Pair {
		return cur
	}
	mc := cur.Head()
	if mc.Tag() == atom.Symbol {
		text := *mc.SymbolInfo().Canonical
		if len(text) >= 2 && text[0] == ':' && unicode.IsUpper(rune(text[1])) {
			return cur.Tail()
		}
	}
	return cur
}

// skipAnnotation drops an optional "... : Type" annotation following a
// plain parameter name.
func (c *Converter) skipAnnotation(cur *atom.Atom) *atom.Atom {
	if cur.Tag() != atom.Pair {
		return cur
	}
	mc := cur.Head()
	if mc.Tag() == atom.Symbol && mc.SymbolInfo().Canonical == c.colon {
		cur = cur.Tail()
		if cur.Tag() == atom.Pair {
			return cur.Tail()
		}
	}
	return cur
}
