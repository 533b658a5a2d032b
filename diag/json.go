package diag

import (
	"encoding/json"
	"strconv"

	"github.com/guage-run/guage/hash/xfnv"
	"github.com/guage-run/guage/sourcemap"
)

// jsonSpan is one entry of the JSON `spans` array, per spec.md §6.
type jsonSpan struct {
	File      string `json:"file"`
	ByteStart uint32 `json:"byte_start"`
	ByteEnd   uint32 `json:"byte_end"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	ColStart  int    `json:"col_start"`
	ColEnd    int    `json:"col_end"`
	IsPrimary bool   `json:"is_primary"`
	Label     string `json:"label,omitempty"`
}

// jsonDiagnostic is the wire shape: {level, code?, message, spans, children}.
// encoding/json already escapes quotes, backslashes, and newlines in
// string fields, satisfying spec.md §6's escaping requirement.
type jsonDiagnostic struct {
	Level    string           `json:"level"`
	Code     string           `json:"code,omitempty"`
	Message  string           `json:"message"`
	Spans    []jsonSpan       `json:"spans"`
	Children []jsonDiagnostic `json:"children,omitempty"`
}

// ToJSON builds the exported JSON document for d. A nil SourceMap leaves
// byte/line/col fields zeroed for spans it can't resolve.
func ToJSON(d *Diagnostic, sm *sourcemap.SourceMap) ([]byte, error) {
	return json.Marshal(toJSONDiagnostic(d, sm))
}

func toJSONDiagnostic(d *Diagnostic, sm *sourcemap.SourceMap) jsonDiagnostic {
	jd := jsonDiagnostic{
		Level:   d.Level.String(),
		Code:    d.Code,
		Message: d.Message,
		Spans:   make([]jsonSpan, 0, len(d.Spans)),
	}
	seen := make(map[uint64]bool, len(d.Spans)) // dedup identical byte ranges
	for _, s := range d.Spans {
		js := jsonSpan{IsPrimary: s.Primary, Label: s.Label}
		if sm != nil {
			if text, ok := sm.Text(s.Span); ok {
				js.ByteStart = s.Span.Lo
				js.ByteEnd = s.Span.Lo + uint32(len(text))
			}
			if loc, ok := sm.Resolve(s.Span); ok {
				js.File = loc.File
				js.LineStart, js.ColStart = loc.Line, loc.Col
				js.LineEnd, js.ColEnd = loc.Line, loc.Col+int(s.Span.Len)
			}
		}
		key := dedupKey(js)
		if seen[key] {
			continue
		}
		seen[key] = true
		jd.Spans = append(jd.Spans, js)
	}
	for _, child := range d.Children {
		jd.Children = append(jd.Children, toJSONDiagnostic(child, sm))
	}
	return jd
}

// dedupKey folds a jsonSpan's identity (file + byte range) into a single
// hash via xfnv, a non-cryptographic short-lived-key hash.
func dedupKey(s jsonSpan) uint64 {
	return xfnv.HashStr(s.File + "\x00" + strconv.FormatUint(uint64(s.ByteStart), 10) + "\x00" + strconv.FormatUint(uint64(s.ByteEnd), 10))
}
