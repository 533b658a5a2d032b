package jit

import (
	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/intern"
)

// arithOps and compareOps name the free-variable primitives (spec.md
// §4.4's "arithmetic and comparison operators the JIT also knows how to
// compile") the restricted subset recognizes by their canonical spelling.
// Lowering is a compile-time snapshot: a later `define` that shadows one
// of these names does not retroactively invalidate an already-compiled
// trace (see DESIGN.md).
var arithOps = map[string]Op{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv,
	"×": OpMul, "÷": OpDiv,
}

var compareOps = map[string]Op{
	"<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe, "=": OpEq,
	"≤": OpLe, "≥": OpGe, "≡": OpEq,
}

// Lower walks a De Bruijn-converted lambda body and, if every subform
// falls inside the restricted integer arithmetic/comparison grammar,
// returns the flattened stack-machine program for it. Anything else —
// another special form, a call to a non-arithmetic free variable, a
// non-numeric literal — makes Lower refuse (spec.md §4.4: codegen
// refusal leaves the hot entry Warming with a one-shot do-not-retry
// flag, it is not an error).
func Lower(body *atom.Atom) (Program, bool) {
	var prog Program
	if !lower(body, &prog) {
		return nil, false
	}
	prog = append(prog, Inst{Op: OpRet})
	return prog, true
}

func lower(expr *atom.Atom, prog *Program) bool {
	switch expr.Tag() {
	case atom.Integer:
		*prog = append(*prog, Inst{Op: OpLoadArg, Imm: expr.Int()})
		return true

	case atom.Pair:
		return lowerPair(expr, prog)

	default:
		return false
	}
}

func lowerPair(expr *atom.Atom, prog *Program) bool {
	head := expr.Head()
	if head.Tag() != atom.Symbol {
		return false
	}

	if head.SymbolInfo().ID == intern.IDQuote {
		if expr.Tail().Tag() != atom.Pair {
			return false
		}
		lit := expr.Tail().Head()
		switch lit.Tag() {
		case atom.Integer:
			*prog = append(*prog, Inst{Op: OpConst, Imm: lit.Int()})
			return true
		case atom.Number:
			n := lit.Num()
			if n != float64(int64(n)) {
				return false // fractional constants fall outside the integer subset
			}
			*prog = append(*prog, Inst{Op: OpConst, Imm: int64(n)})
			return true
		default:
			return false
		}
	}

	name := *head.SymbolInfo().Canonical
	op, isArith := arithOps[name]
	if !isArith {
		op, isArith = compareOps[name]
	}
	if !isArith {
		return false
	}

	args := expr.Tail()
	if args.Tag() != atom.Pair || args.Tail().Tag() != atom.Pair {
		return false
	}
	if args.Tail().Tail().Tag() != atom.Nil {
		return false // restricted subset only knows binary operators
	}
	lhs := args.Head()
	rhs := args.Tail().Head()
	if !lower(lhs, prog) {
		return false
	}
	if !lower(rhs, prog) {
		return false
	}
	*prog = append(*prog, Inst{Op: op})
	return true
}
