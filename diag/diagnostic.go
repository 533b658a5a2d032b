// Package diag renders Diagnostic values — labelled multi-span error
// reports with optional FixIt suggestions and nested child diagnostics —
// to a terminal (ANSI, colored when the stream is a TTY and NO_COLOR is
// unset) or to JSON. The data model is shaped after original_source's
// diagnostic.c: a Diagnostic carries a slice of LabelledSpans (primary
// underlined with ^, secondary with ~) and a slice of child Diagnostics
// for notes and help suggestions.
package diag

import "github.com/guage-run/guage/sourcemap"

// Level is the diagnostic's severity.
type Level uint8

const (
	LevelError Level = iota
	LevelWarning
	LevelNote
	LevelHelp
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelNote:
		return "note"
	case LevelHelp:
		return "help"
	default:
		return "unknown"
	}
}

func (l Level) glyph() string {
	switch l {
	case LevelError:
		return "✗"
	case LevelWarning:
		return "⚠"
	case LevelNote:
		return "·"
	case LevelHelp:
		return "?"
	default:
		return "-"
	}
}

// LabelledSpan is one source span a Diagnostic points at, with an
// optional label shown after its underline. Primary spans underline with
// ^; secondary spans underline with ~.
type LabelledSpan struct {
	Span    sourcemap.Span
	Label   string
	Primary bool
}

// FixIt is a suggested textual replacement for a span, rendered as a
// `help:` line.
type FixIt struct {
	Span        sourcemap.Span
	Replacement string
}

// Diagnostic is one reportable event: a message, the spans it concerns,
// an optional machine-readable code, an optional FixIt, and child
// diagnostics (typically LevelNote or LevelHelp) rendered indented two
// columns beneath it.
type Diagnostic struct {
	Level    Level
	Code     string
	Message  string
	Spans    []LabelledSpan
	FixIt    *FixIt
	Children []*Diagnostic
}

// New builds a bare Diagnostic; use the fluent With* helpers to attach
// spans, a code, or children.
func New(level Level, message string) *Diagnostic {
	return &Diagnostic{Level: level, Message: message}
}

func (d *Diagnostic) WithCode(code string) *Diagnostic {
	d.Code = code
	return d
}

func (d *Diagnostic) WithSpan(span sourcemap.Span, label string, primary bool) *Diagnostic {
	d.Spans = append(d.Spans, LabelledSpan{Span: span, Label: label, Primary: primary})
	return d
}

func (d *Diagnostic) WithFixIt(span sourcemap.Span, replacement string) *Diagnostic {
	d.FixIt = &FixIt{Span: span, Replacement: replacement}
	return d
}

func (d *Diagnostic) WithChild(child *Diagnostic) *Diagnostic {
	d.Children = append(d.Children, child)
	return d
}

// primarySpan returns the first primary span, or the first span of any
// kind, for the header line's file:line:col. Returns ok=false with no
// spans at all.
func (d *Diagnostic) primarySpan() (LabelledSpan, bool) {
	for _, s := range d.Spans {
		if s.Primary {
			return s, true
		}
	}
	if len(d.Spans) > 0 {
		return d.Spans[0], true
	}
	return LabelledSpan{}, false
}
