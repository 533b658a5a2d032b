package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/guage-run/guage/atom"
	"github.com/guage-run/guage/intern"
	"github.com/guage-run/guage/sourcemap"
)

// reader is the CLI's own minimal s-expression reader. The interpreter
// core treats the reader/parser as an out-of-scope collaborator (spec.md
// §1) supplying already-parsed expression trees and spans; something has
// to play that role for `guage run`/`guage eval` to have any input at
// all, so this is deliberately small: atoms, strings, lists, and the
// quote shorthand, nothing more.
type reader struct {
	table *intern.Table
	cache *intern.Cache
	file  *sourcemap.SourceFile
	sm    *sourcemap.SourceMap
	src   string
	pos   int
}

func newReader(sm *sourcemap.SourceMap, table *intern.Table, cache *intern.Cache, file *sourcemap.SourceFile) *reader {
	return &reader{table: table, cache: cache, file: file, sm: sm, src: file.Source}
}

// ReadAll parses every top-level form in the file.
func (r *reader) ReadAll() ([]*atom.Atom, error) {
	var forms []*atom.Atom
	for {
		r.skipSpace()
		if r.pos >= len(r.src) {
			return forms, nil
		}
		expr, err := r.readExpr()
		if err != nil {
			return forms, err
		}
		forms = append(forms, expr)
	}
}

func (r *reader) skipSpace() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		case unicode.IsSpace(rune(c)):
			r.pos++
		default:
			return
		}
	}
}

func (r *reader) readExpr() (*atom.Atom, error) {
	r.skipSpace()
	if r.pos >= len(r.src) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	start := r.pos
	c := r.src[r.pos]
	switch {
	case c == '(':
		return r.readList(start)
	case c == ')':
		return nil, fmt.Errorf("unexpected ')' at byte %d", r.pos)
	case c == '\'':
		r.pos++
		inner, err := r.readExpr()
		if err != nil {
			return nil, err
		}
		quoteSym := r.intern("quote", start)
		inner2 := atom.NewPair(inner, atom.NewNil())
		atom.Release(inner)
		result := atom.NewPair(quoteSym, inner2)
		atom.Release(quoteSym)
		atom.Release(inner2)
		return result.WithSpan(r.spanFrom(start)), nil
	case c == '"':
		return r.readString(start)
	default:
		return r.readAtomLike(start)
	}
}

func (r *reader) readList(start int) (*atom.Atom, error) {
	r.pos++ // consume '('
	items := make([]*atom.Atom, 0, 4)
	for {
		r.skipSpace()
		if r.pos >= len(r.src) {
			return nil, fmt.Errorf("unterminated list starting at byte %d", start)
		}
		if r.src[r.pos] == ')' {
			r.pos++
			break
		}
		item, err := r.readExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	result := atom.NewNil()
	for i := len(items) - 1; i >= 0; i-- {
		next := atom.NewPair(items[i], result)
		atom.Release(items[i])
		atom.Release(result)
		result = next
	}
	return result.WithSpan(r.spanFrom(start)), nil
}

func (r *reader) readString(start int) (*atom.Atom, error) {
	r.pos++ // consume opening quote
	var sb strings.Builder
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		if c == '"' {
			r.pos++
			return atom.NewString([]byte(sb.String())).WithSpan(r.spanFrom(start)), nil
		}
		if c == '\\' && r.pos+1 < len(r.src) {
			r.pos++
			switch r.src[r.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(r.src[r.pos])
			}
			r.pos++
			continue
		}
		sb.WriteByte(c)
		r.pos++
	}
	return nil, fmt.Errorf("unterminated string starting at byte %d", start)
}

func (r *reader) readAtomLike(start int) (*atom.Atom, error) {
	for r.pos < len(r.src) && !isDelimiter(r.src[r.pos]) {
		r.pos++
	}
	text := r.src[start:r.pos]

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return atom.NewInteger(i).WithSpan(r.spanFrom(start)), nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return atom.NewNumber(f).WithSpan(r.spanFrom(start)), nil
	}
	switch text {
	case "#t":
		return atom.NewBool(true).WithSpan(r.spanFrom(start)), nil
	case "#f":
		return atom.NewBool(false).WithSpan(r.spanFrom(start)), nil
	}
	return r.intern(text, start), nil
}

func (r *reader) intern(text string, start int) *atom.Atom {
	entry := r.table.Intern(r.cache, text)
	canonical := entry.Canonical()
	return atom.NewSymbol(canonical, entry.ID(), entry.Hash()).WithSpan(r.spanFrom(start))
}

func (r *reader) spanFrom(start int) sourcemap.Span {
	return r.sm.NewSpan(r.file.Base+uint32(start), r.pos-start, 0)
}

func isDelimiter(c byte) bool {
	return unicode.IsSpace(rune(c)) || c == '(' || c == ')' || c == '"' || c == ';'
}
