package sourcemap

import (
	"fmt"
	"sort"
)

// SourceFile is one parsed input file, living for the program lifetime.
// Offsets within Source are relative to Base in the SourceMap's virtual
// byte space, which concatenates every loaded file so a single uint32
// offset can address any byte in any file.
type SourceFile struct {
	Name       string
	Base       uint32
	Size       uint32
	Source     string
	lineStarts []uint32 // sorted, lineStarts[0] == 0
}

func newSourceFile(name string, base uint32, src string) *SourceFile {
	f := &SourceFile{Name: name, Base: base, Size: uint32(len(src)), Source: src}
	f.lineStarts = make([]uint32, 1, 64)
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			f.lineStarts = append(f.lineStarts, uint32(i+1))
		}
	}
	return f
}

// lineCol resolves a file-relative byte offset to a 1-based (line, col).
func (f *SourceFile) lineCol(off uint32) (line, col int) {
	// last lineStart <= off
	i := sort.Search(len(f.lineStarts), func(i int) bool { return f.lineStarts[i] > off }) - 1
	if i < 0 {
		i = 0
	}
	return i + 1, int(off-f.lineStarts[i]) + 1
}

// Location is a resolved, human-readable source position.
type Location struct {
	File string
	Line int
	Col  int
}

// String renders "file:line:col".
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// SourceMap owns every loaded SourceFile plus the overflow table for Spans
// too large to pack inline (spec: "otherwise an interned index plus two
// sentinel half-words").
type SourceMap struct {
	files   []*SourceFile
	nextLo  uint32
	overfl  []bigSpan
}

// New creates an empty SourceMap.
func New() *SourceMap {
	return &SourceMap{}
}

// AddFile registers source text under name and returns the SourceFile plus
// the base offset new Spans into it should use.
func (m *SourceMap) AddFile(name, src string) *SourceFile {
	f := newSourceFile(name, m.nextLo, src)
	m.files = append(m.files, f)
	m.nextLo += f.Size + 1 // +1 gap so adjacent files never share an offset
	return f
}

// NewSpan builds a Span for [lo, lo+length) with the given syntactic
// context id, using the overflow table when the inline halfwords would
// not fit.
func (m *SourceMap) NewSpan(lo uint32, length int, ctxt int) Span {
	if length < sentinel && ctxt < sentinel {
		return Span{Lo: lo, Len: uint16(length), Ctxt: uint16(ctxt)}
	}
	idx := uint32(len(m.overfl))
	m.overfl = append(m.overfl, bigSpan{lo: lo, len: uint64(length), ctxt: uint32(ctxt)})
	return Span{Lo: idx, Len: sentinel, Ctxt: sentinel}
}

// fileFor finds the SourceFile owning a virtual offset.
func (m *SourceMap) fileFor(off uint32) *SourceFile {
	// files are appended in increasing Base order
	i := sort.Search(len(m.files), func(i int) bool { return m.files[i].Base > off }) - 1
	if i < 0 || i >= len(m.files) {
		return nil
	}
	return m.files[i]
}

// Resolve turns a Span into a file:line:col Location. Returns ok=false for
// the zero Span or a Span referencing an unknown file.
func (m *SourceMap) Resolve(s Span) (Location, bool) {
	if s.IsZero() {
		return Location{}, false
	}
	lo := s.Lo
	if s.isOverflow() {
		if int(s.Lo) >= len(m.overfl) {
			return Location{}, false
		}
		lo = m.overfl[s.Lo].lo
	}
	f := m.fileFor(lo)
	if f == nil {
		return Location{}, false
	}
	line, col := f.lineCol(lo - f.Base)
	return Location{File: f.Name, Line: line, Col: col}, true
}

// Text returns the source text a Span covers, for diagnostic gutter lines.
func (m *SourceMap) Text(s Span) (string, bool) {
	lo := s.Lo
	length := int(s.Len)
	if s.isOverflow() {
		if int(s.Lo) >= len(m.overfl) {
			return "", false
		}
		b := m.overfl[s.Lo]
		lo, length = b.lo, int(b.len)
	}
	f := m.fileFor(lo)
	if f == nil {
		return "", false
	}
	start := int(lo - f.Base)
	end := start + length
	if start < 0 || end > len(f.Source) {
		return "", false
	}
	return f.Source[start:end], true
}

// LineText returns the full source line containing a Span's start, used to
// render the diagnostic gutter.
func (m *SourceMap) LineText(s Span) (string, int, bool) {
	lo := s.Lo
	if s.isOverflow() {
		if int(s.Lo) >= len(m.overfl) {
			return "", 0, false
		}
		lo = m.overfl[s.Lo].lo
	}
	f := m.fileFor(lo)
	if f == nil {
		return "", 0, false
	}
	off := lo - f.Base
	line, _ := f.lineCol(off)
	start := f.lineStarts[line-1]
	var end uint32
	if int(line) < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	} else {
		end = f.Size
	}
	return f.Source[start:end], line, true
}
