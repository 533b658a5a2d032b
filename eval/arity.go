package eval

import "github.com/guage-run/guage/atom"

// countParams counts bound parameter slots in a (still-unconverted)
// parameter list, the same skip rules debruijn.Converter applies when
// building its NameContext (generic-parameter markers, their optional
// capitalized constraint, and "name : type" annotations consume no De
// Bruijn slot). A Lambda atom's ParamCount is informational only — apply
// never validates argument count against it, and only compares it with
// the nativeArity sentinel — so a plain text-based re-walk here,
// independent of debruijn's cached canonical pointers, is adequate.
func countParams(params *atom.Atom) int {
	n := 0
	cur := params
	for cur.Tag() == atom.Pair {
		p := cur.Head()
		if isMarkerText(p, "⊳") {
			cur = cur.Tail()
			if cur.Tag() != atom.Pair {
				break
			}
			n++
			cur = cur.Tail()
			cur = skipIfConstraint(cur)
			continue
		}
		n++
		cur = cur.Tail()
		cur = skipIfAnnotation(cur)
	}
	return n
}

func isMarkerText(a *atom.Atom, text string) bool {
	return a.Tag() == atom.Symbol && *a.SymbolInfo().Canonical == text
}

func skipIfConstraint(cur *atom.Atom) *atom.Atom {
	if cur.Tag() != atom.Pair {
		return cur
	}
	mc := cur.Head()
	if mc.Tag() == atom.Symbol {
		text := *mc.SymbolInfo().Canonical
		if len(text) >= 2 && text[0] == ':' && text[1] >= 'A' && text[1] <= 'Z' {
			return cur.Tail()
		}
	}
	return cur
}

func skipIfAnnotation(cur *atom.Atom) *atom.Atom {
	if cur.Tag() != atom.Pair {
		return cur
	}
	if isMarkerText(cur.Head(), ":") {
		cur = cur.Tail()
		if cur.Tag() == atom.Pair {
			return cur.Tail()
		}
	}
	return cur
}
