// Package atom implements Atom, the single tagged value type the runtime
// core manipulates, plus its deterministic reference counting.
package atom

import (
	"github.com/guage-run/guage/container/ring"
	"github.com/guage-run/guage/sourcemap"
)

// Tag identifies the payload an Atom carries.
type Tag uint8

const (
	Number Tag = iota
	Integer
	Bool
	Nil
	String
	Symbol
	Pair
	Vector
	Lambda
	ErrorTag
)

func (t Tag) String() string {
	switch t {
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Bool:
		return "bool"
	case Nil:
		return "nil"
	case String:
		return "string"
	case Symbol:
		return "symbol"
	case Pair:
		return "pair"
	case Vector:
		return "vector"
	case Lambda:
		return "lambda"
	case ErrorTag:
		return "error"
	default:
		return "unknown"
	}
}

// SymbolPayload is the interned-identifier payload for a Symbol atom. Two
// symbols compare equal iff their ID fields are equal — spec invariant.
type SymbolPayload struct {
	Canonical *string
	ID        uint16
	Hash      uint64
}

// PairPayload is a cons cell.
type PairPayload struct {
	Head *Atom
	Tail *Atom
}

// LambdaPayload is a closure: the converted body, its parameter count
// (after De Bruijn conversion parameter names are gone, only arity
// matters at call time), and the captured environment vector.
type LambdaPayload struct {
	ParamCount int
	Body       *Atom
	Captured   Env
	Name       string // empty for anonymous lambdas; used only in diagnostics
}

// ErrorPayload is a first-class error value (spec §4.3, §7).
type ErrorPayload struct {
	Message string
	Data    *Atom
	Cause   *Atom
	Trace   *ring.Buffer[sourcemap.Span]
}

// Env is an ordered vector of parameter atoms, indexed from the innermost
// binding outward. Entering a lambda prepends its argument vector to the
// closed-over environment.
type Env []*Atom

// Atom is the uniform tagged value every part of the runtime manipulates.
// It carries a reference count (spec: non-atomic, single mutator thread)
// and an optional source Span for diagnostics.
type Atom struct {
	tag  Tag
	refs int32
	span sourcemap.Span

	num float64
	i64 int64
	b   bool
	str []byte
	sym SymbolPayload
	pr  PairPayload
	vec []*Atom
	lam *LambdaPayload
	err *ErrorPayload
}

// Tag returns the atom's tag.
func (a *Atom) Tag() Tag { return a.tag }

// Span returns the atom's source span, or the zero Span for synthetic atoms.
func (a *Atom) Span() sourcemap.Span { return a.span }

// WithSpan returns a shallow copy of a carrying span s. Used by the reader
// to attach source locations without mutating a shared literal.
func (a *Atom) WithSpan(span sourcemap.Span) *Atom {
	cp := *a
	cp.span = span
	cp.refs = 0
	return Retain(&cp)
}

var (
	// singleton nil/bool atoms — immortal: init gives them a refcount so
	// large that Retain/Release never bring it to zero.
	nilAtom   = &Atom{tag: Nil, refs: 1}
	trueAtom  = &Atom{tag: Bool, b: true, refs: 1}
	falseAtom = &Atom{tag: Bool, b: false, refs: 1}
)

func init() {
	// immortal: never released regardless of refcount underflow during shutdown
	nilAtom.refs = 1 << 30
	trueAtom.refs = 1 << 30
	falseAtom.refs = 1 << 30
}

// NewNil returns the shared nil atom.
func NewNil() *Atom { return nilAtom }

// NewBool returns the shared true/false atom.
func NewBool(v bool) *Atom {
	if v {
		return trueAtom
	}
	return falseAtom
}

// NewNumber allocates a floating-point number atom.
func NewNumber(v float64) *Atom {
	return &Atom{tag: Number, num: v, refs: 1}
}

// NewInteger allocates a 64-bit signed integer atom.
func NewInteger(v int64) *Atom {
	return &Atom{tag: Integer, i64: v, refs: 1}
}

// NewString allocates a string atom, taking ownership of b.
func NewString(b []byte) *Atom {
	return &Atom{tag: String, str: b, refs: 1}
}

// NewSymbol allocates a symbol atom from an intern triple.
func NewSymbol(canonical *string, id uint16, hash uint64) *Atom {
	return &Atom{tag: Symbol, sym: SymbolPayload{Canonical: canonical, ID: id, Hash: hash}, refs: 1}
}

// NewPair allocates a cons cell, taking a strong reference on head and tail.
func NewPair(head, tail *Atom) *Atom {
	return &Atom{tag: Pair, pr: PairPayload{Head: Retain(head), Tail: Retain(tail)}, refs: 1}
}

// NewVector allocates a vector atom, taking ownership of elems (each
// already owned by the caller; ownership transfers to the vector).
func NewVector(elems []*Atom) *Atom {
	return &Atom{tag: Vector, vec: elems, refs: 1}
}

// NewLambda allocates a closure atom.
func NewLambda(paramCount int, body *Atom, captured Env, name string) *Atom {
	return &Atom{tag: Lambda, refs: 1, lam: &LambdaPayload{
		ParamCount: paramCount,
		Body:       Retain(body),
		Captured:   captured,
		Name:       name,
	}}
}

// NewError allocates an error atom.
func NewError(message string, data, cause *Atom, span sourcemap.Span) *Atom {
	e := &Atom{tag: ErrorTag, span: span, refs: 1, err: &ErrorPayload{
		Message: message,
		Trace:   ring.NewBuffer[sourcemap.Span](16),
	}}
	if data != nil {
		e.err.Data = Retain(data)
	}
	if cause != nil {
		e.err.Cause = Retain(cause)
	}
	e.err.Trace.Push(span)
	return e
}

// Num returns the float64 payload; valid only when Tag() == Number.
func (a *Atom) Num() float64 { return a.num }

// Int returns the int64 payload; valid only when Tag() == Integer.
func (a *Atom) Int() int64 { return a.i64 }

// BoolVal returns the bool payload; valid only when Tag() == Bool.
func (a *Atom) BoolVal() bool { return a.b }

// Bytes returns the string payload's bytes; valid only when Tag() == String.
func (a *Atom) Bytes() []byte { return a.str }

// Str returns the string payload as a string (copies); valid only when
// Tag() == String.
func (a *Atom) Str() string { return string(a.str) }

// SymbolInfo returns the symbol payload; valid only when Tag() == Symbol.
func (a *Atom) SymbolInfo() SymbolPayload { return a.sym }

// Head returns the pair's head; valid only when Tag() == Pair.
func (a *Atom) Head() *Atom { return a.pr.Head }

// Tail returns the pair's tail; valid only when Tag() == Pair.
func (a *Atom) Tail() *Atom { return a.pr.Tail }

// Elems returns the vector payload; valid only when Tag() == Vector.
func (a *Atom) Elems() []*Atom { return a.vec }

// LambdaInfo returns the lambda payload; valid only when Tag() == Lambda.
func (a *Atom) LambdaInfo() *LambdaPayload { return a.lam }

// ErrorInfo returns the error payload; valid only when Tag() == ErrorTag.
func (a *Atom) ErrorInfo() *ErrorPayload { return a.err }

// Unwrap returns the error this one wraps, or nil at the root of the
// chain. Mirrors protocol/thrift/exception.go's ProtocolException.Unwrap
// shape, but over Atom values rather than Go errors — a.Unwrap() is for
// the diagnostic renderer's cause-chain walk, not errors.Is/As.
func (a *Atom) Unwrap() *Atom {
	if a.tag != ErrorTag || a.err == nil {
		return nil
	}
	return a.err.Cause
}

// IsTruthy implements the language's truthiness rule: everything is truthy
// except #f and nil.
func (a *Atom) IsTruthy() bool {
	switch a.tag {
	case Bool:
		return a.b
	case Nil:
		return false
	default:
		return true
	}
}

// RefCount returns the current strong reference count, for tests.
func (a *Atom) RefCount() int32 { return a.refs }
