package diag

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/guage-run/guage/sourcemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture() (*sourcemap.SourceMap, sourcemap.Span) {
	sm := sourcemap.New()
	f := sm.AddFile("main.gu", "(+ 1 undefined-var)\n")
	span := sm.NewSpan(f.Base+3, 1, 0)
	return sm, span
}

func TestDiagnosticPrimarySpanPrefersMarkedPrimary(t *testing.T) {
	sm, span := newFixture()
	d := New(LevelError, "undefined variable").
		WithSpan(span, "", false).
		WithSpan(span, "referenced here", true)

	primary, ok := d.primarySpan()
	require.True(t, ok)
	assert.True(t, primary.Primary)
	_ = sm
}

func TestTerminalRendererProducesHeaderAndGutterLines(t *testing.T) {
	sm, span := newFixture()
	d := New(LevelError, "undefined variable: uv").
		WithCode("E0001").
		WithSpan(span, "not found", true).
		WithFixIt(span, "undefined-var")

	var buf bytes.Buffer
	r := NewTerminalRenderer(&buf, sm)
	r.Render(d)

	out := buf.String()
	assert.Contains(t, out, "error[E0001]: undefined variable: uv")
	assert.Contains(t, out, "main.gu:1:4")
	assert.Contains(t, out, "^")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "help: replace with `undefined-var`")
}

func TestTerminalRendererIndentsChildren(t *testing.T) {
	sm, span := newFixture()
	child := New(LevelNote, "a related note").WithSpan(span, "", false)
	d := New(LevelError, "top-level problem").WithChild(child)

	var buf bytes.Buffer
	r := NewTerminalRenderer(&buf, sm)
	r.Render(d)

	out := buf.String()
	assert.Contains(t, out, "  · note: a related note")
}

func TestToJSONRoundTrips(t *testing.T) {
	sm, span := newFixture()
	d := New(LevelWarning, "deprecated form").
		WithSpan(span, "here", true).
		WithChild(New(LevelHelp, "use (new-form) instead"))

	data, err := ToJSON(d, sm)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "warning", decoded["level"])
	assert.Equal(t, "deprecated form", decoded["message"])

	spans := decoded["spans"].([]interface{})
	require.Len(t, spans, 1)
	span0 := spans[0].(map[string]interface{})
	assert.Equal(t, "main.gu", span0["file"])
	assert.Equal(t, true, span0["is_primary"])

	children := decoded["children"].([]interface{})
	require.Len(t, children, 1)
}

func TestToJSONDedupesIdenticalSpans(t *testing.T) {
	sm, span := newFixture()
	d := New(LevelError, "duplicate reference").
		WithSpan(span, "first", true).
		WithSpan(span, "first", true)

	data, err := ToJSON(d, sm)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	spans := decoded["spans"].([]interface{})
	assert.Len(t, spans, 1, "two identical byte ranges must dedup to one span")
}

func TestToJSONEscapesMessageSpecialCharacters(t *testing.T) {
	sm, _ := newFixture()
	d := New(LevelError, "bad input: \"quote\"\nand a backslash \\")

	data, err := ToJSON(d, sm)
	require.NoError(t, err)
	assert.Contains(t, string(data), `\"quote\"`)
	assert.Contains(t, string(data), `\n`)
	assert.Contains(t, string(data), `\\`)
}
