package eval

import (
	"errors"
	"fmt"

	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/sourcemap"
)

// newError builds an error atom carrying message and the span of the
// failing expression (spec.md §4.3).
func newError(message string, span sourcemap.Span) *atom.Atom {
	return atom.NewError(message, nil, nil, span)
}

func newErrorf(span sourcemap.Span, format string, args ...interface{}) *atom.Atom {
	return newError(fmt.Sprintf(format, args...), span)
}

// wrapCause builds an error atom whose Cause chains to a prior evaluator
// error, the same Unwrap-able shape protocol/thrift's ApplicationException
// and ProtocolException use for their cause chains.
func wrapCause(message string, span sourcemap.Span, cause *atom.Atom) *atom.Atom {
	return atom.NewError(message, nil, cause, span)
}

// IsErrorAtom reports whether a represents a failed evaluation step.
func IsErrorAtom(a *atom.Atom) bool { return a != nil && a.Tag() == atom.ErrorTag }

// GuageError adapts an error atom to the stdlib error interface, for the
// boundary between the evaluator and callers (the CLI, the diagnostic
// renderer) that want to use errors.Is/As and %w.
type GuageError struct {
	Atom *atom.Atom
}

func (e *GuageError) Error() string {
	return e.Atom.ErrorInfo().Message
}

// Unwrap exposes the error atom's cause chain to the errors package.
func (e *GuageError) Unwrap() error {
	cause := e.Atom.ErrorInfo().Cause
	if cause == nil || cause.Tag() != atom.ErrorTag {
		return nil
	}
	return &GuageError{Atom: cause}
}

// Is compares by message, since error atoms carry no stable type code.
func (e *GuageError) Is(target error) bool {
	var other *GuageError
	if errors.As(target, &other) {
		return other.Atom.ErrorInfo().Message == e.Atom.ErrorInfo().Message
	}
	return false
}
