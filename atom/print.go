package atom

import (
	"strconv"
	"strings"
)

// Print renders a as source-like text, the form `guage` shows for eval
// results and list/vector contents. It never allocates more structure
// than the text itself; no escaping beyond Go's strconv.Quote for
// strings, since the runtime has no separate display-vs-read syntax.
func Print(a *Atom) string {
	var sb strings.Builder
	print1(&sb, a)
	return sb.String()
}

func print1(sb *strings.Builder, a *Atom) {
	if a == nil {
		sb.WriteString("nil")
		return
	}
	switch a.Tag() {
	case Number:
		sb.WriteString(strconv.FormatFloat(a.Num(), 'g', -1, 64))
	case Integer:
		sb.WriteString(strconv.FormatInt(a.Int(), 10))
	case Bool:
		if a.BoolVal() {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case Nil:
		sb.WriteString("()")
	case String:
		sb.WriteString(strconv.Quote(a.Str()))
	case Symbol:
		sb.WriteString(*a.SymbolInfo().Canonical)
	case Pair:
		printList(sb, a)
	case Vector:
		sb.WriteString("#(")
		for i, e := range a.Elems() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			print1(sb, e)
		}
		sb.WriteByte(')')
	case Lambda:
		info := a.LambdaInfo()
		if info.Name != "" {
			sb.WriteString("#<lambda:" + info.Name + ">")
		} else {
			sb.WriteString("#<lambda>")
		}
	case ErrorTag:
		sb.WriteString("#<error: " + a.ErrorInfo().Message + ">")
	default:
		sb.WriteString("#<unknown>")
	}
}

func printList(sb *strings.Builder, a *Atom) {
	sb.WriteByte('(')
	cur := a
	first := true
	for cur.Tag() == Pair {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		print1(sb, cur.Head())
		cur = cur.Tail()
	}
	if cur.Tag() != Nil {
		sb.WriteString(" . ")
		print1(sb, cur)
	}
	sb.WriteByte(')')
}
