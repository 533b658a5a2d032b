package eval

import (
	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/sourcemap"
)

// builtinTable is the primitive set every Globals is preloaded with: the
// arithmetic and comparison operators the JIT also knows how to compile
// (spec.md §4.4), in both their ASCII and typographic spellings, plus the
// minimal pair/list vocabulary the language needs to be usable.
var builtinTable = map[string]NativeFn{
	"+": arith(func(a, b float64) float64 { return a + b }),
	"-": arith(func(a, b float64) float64 { return a - b }),
	"*": arith(func(a, b float64) float64 { return a * b }),
	"/": arith(func(a, b float64) float64 { return a / b }),
	"×": arith(func(a, b float64) float64 { return a * b }),
	"÷": arith(func(a, b float64) float64 { return a / b }),

	"<":  compare(func(a, b float64) bool { return a < b }),
	"<=": compare(func(a, b float64) bool { return a <= b }),
	">":  compare(func(a, b float64) bool { return a > b }),
	">=": compare(func(a, b float64) bool { return a >= b }),
	"=":  compare(func(a, b float64) bool { return a == b }),
	"≤":  compare(func(a, b float64) bool { return a <= b }),
	"≥":  compare(func(a, b float64) bool { return a >= b }),
	"≡":  compare(func(a, b float64) bool { return a == b }),

	"not":  builtinNot,
	"cons": builtinCons,
	"car":  builtinCar,
	"cdr":  builtinCdr,
	"list": builtinList,
	"nil?": builtinIsNil,
	"pair?": func(ev *Evaluator, args []*atom.Atom) *atom.Atom {
		return checkTag(args, atom.Pair)
	},
}

func numericValue(a *atom.Atom) (float64, bool) {
	switch a.Tag() {
	case atom.Number:
		return a.Num(), true
	case atom.Integer:
		return float64(a.Int()), true
	default:
		return 0, false
	}
}

func bothIntegers(a, b *atom.Atom) bool {
	return a.Tag() == atom.Integer && b.Tag() == atom.Integer
}

func arith(op func(a, b float64) float64) NativeFn {
	return func(ev *Evaluator, args []*atom.Atom) *atom.Atom {
		if len(args) != 2 {
			return newErrorf(sourcemap.NoSpan, "arithmetic primitive expects 2 arguments, got %d", len(args))
		}
		x, ok1 := numericValue(args[0])
		y, ok2 := numericValue(args[1])
		if !ok1 || !ok2 {
			return newErrorf(sourcemap.NoSpan, "arithmetic primitive expects numeric arguments, got %s and %s", args[0].Tag(), args[1].Tag())
		}
		result := op(x, y)
		if bothIntegers(args[0], args[1]) && result == float64(int64(result)) {
			return atom.NewInteger(int64(result))
		}
		return atom.NewNumber(result)
	}
}

func compare(op func(a, b float64) bool) NativeFn {
	return func(ev *Evaluator, args []*atom.Atom) *atom.Atom {
		if len(args) != 2 {
			return newErrorf(sourcemap.NoSpan, "comparison primitive expects 2 arguments, got %d", len(args))
		}
		x, ok1 := numericValue(args[0])
		y, ok2 := numericValue(args[1])
		if !ok1 || !ok2 {
			return newErrorf(sourcemap.NoSpan, "comparison primitive expects numeric arguments, got %s and %s", args[0].Tag(), args[1].Tag())
		}
		return atom.NewBool(op(x, y))
	}
}

func builtinNot(ev *Evaluator, args []*atom.Atom) *atom.Atom {
	if len(args) != 1 {
		return newErrorf(sourcemap.NoSpan, "not expects 1 argument, got %d", len(args))
	}
	return atom.NewBool(!args[0].IsTruthy())
}

func builtinCons(ev *Evaluator, args []*atom.Atom) *atom.Atom {
	if len(args) != 2 {
		return newErrorf(sourcemap.NoSpan, "cons expects 2 arguments, got %d", len(args))
	}
	return atom.NewPair(args[0], args[1])
}

func builtinCar(ev *Evaluator, args []*atom.Atom) *atom.Atom {
	if len(args) != 1 || args[0].Tag() != atom.Pair {
		return newErrorf(sourcemap.NoSpan, "car expects 1 pair argument")
	}
	return atom.Retain(args[0].Head())
}

func builtinCdr(ev *Evaluator, args []*atom.Atom) *atom.Atom {
	if len(args) != 1 || args[0].Tag() != atom.Pair {
		return newErrorf(sourcemap.NoSpan, "cdr expects 1 pair argument")
	}
	return atom.Retain(args[0].Tail())
}

func builtinList(ev *Evaluator, args []*atom.Atom) *atom.Atom {
	result := atom.NewNil()
	for i := len(args) - 1; i >= 0; i-- {
		next := atom.NewPair(args[i], result)
		atom.Release(result)
		result = next
	}
	return result
}

func builtinIsNil(ev *Evaluator, args []*atom.Atom) *atom.Atom {
	return checkTag(args, atom.Nil)
}

func checkTag(args []*atom.Atom, tag atom.Tag) *atom.Atom {
	if len(args) != 1 {
		return newErrorf(sourcemap.NoSpan, "predicate expects 1 argument, got %d", len(args))
	}
	return atom.NewBool(args[0].Tag() == tag)
}
