package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guage-run/guage/sourcemap"
	"github.com/mattn/go-isatty"
)

// levelStyles mirrors gogrep's Styles shape: one lipgloss.Style per
// severity, swapped for the zero style when color is disabled.
type levelStyles struct {
	header    map[Level]lipgloss.Style
	gutter    lipgloss.Style
	primary   lipgloss.Style
	secondary lipgloss.Style
	help      lipgloss.Style
}

func coloredStyles() levelStyles {
	return levelStyles{
		header: map[Level]lipgloss.Style{
			LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
			LevelNote:    lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
			LevelHelp:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		},
		gutter:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		primary:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		secondary: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		help:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

func plainStyles() levelStyles {
	return levelStyles{
		header: map[Level]lipgloss.Style{
			LevelError:   lipgloss.NewStyle(),
			LevelWarning: lipgloss.NewStyle(),
			LevelNote:    lipgloss.NewStyle(),
			LevelHelp:    lipgloss.NewStyle(),
		},
		gutter:    lipgloss.NewStyle(),
		primary:   lipgloss.NewStyle(),
		secondary: lipgloss.NewStyle(),
		help:      lipgloss.NewStyle(),
	}
}

// TerminalRenderer writes Diagnostics as human-readable, optionally
// colored text, per spec.md §6: a header glyph/code/message/location
// line, then a gutter source line with a ^/~ underline and label per
// span, help: lines for FixIts, and children indented two columns.
type TerminalRenderer struct {
	out    io.Writer
	styles levelStyles
	sm     *sourcemap.SourceMap
}

// NewTerminalRenderer decides color the way gogrep's cli.Run does:
// enabled automatically on a TTY, forced off by NO_COLOR; there is no
// option to force it on or off otherwise.
func NewTerminalRenderer(out io.Writer, sm *sourcemap.SourceMap) *TerminalRenderer {
	useColor := wantsColor(out)
	styles := plainStyles()
	if useColor {
		styles = coloredStyles()
	}
	return &TerminalRenderer{out: out, styles: styles, sm: sm}
}

func wantsColor(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (r *TerminalRenderer) Render(d *Diagnostic) {
	r.render(d, 0)
}

func (r *TerminalRenderer) render(d *Diagnostic, indent int) {
	pad := strings.Repeat("  ", indent)

	header := fmt.Sprintf("%s %s", d.Level.glyph(), d.Message)
	if d.Code != "" {
		header = fmt.Sprintf("%s %s[%s]: %s", d.Level.glyph(), d.Level, d.Code, d.Message)
	} else {
		header = fmt.Sprintf("%s %s: %s", d.Level.glyph(), d.Level, d.Message)
	}
	if span, ok := d.primarySpan(); ok && r.sm != nil {
		if loc, ok := r.sm.Resolve(span.Span); ok {
			header += " @ " + loc.String()
		}
	}
	fmt.Fprintln(r.out, pad+r.styles.header[d.Level].Render(header))

	for _, s := range d.Spans {
		r.renderSpan(pad, s)
	}

	if d.FixIt != nil {
		fmt.Fprintln(r.out, pad+"  "+r.styles.help.Render("help: replace with `"+d.FixIt.Replacement+"`"))
	}

	for _, child := range d.Children {
		r.render(child, indent+1)
	}
}

func (r *TerminalRenderer) renderSpan(pad string, s LabelledSpan) {
	if r.sm == nil {
		return
	}
	line, lineNum, ok := r.sm.LineText(s.Span)
	if !ok {
		return
	}
	loc, _ := r.sm.Resolve(s.Span)
	gutter := fmt.Sprintf("%4d | ", lineNum)
	fmt.Fprintln(r.out, pad+r.styles.gutter.Render(gutter)+line)

	underlineChar := "~"
	style := r.styles.secondary
	if s.Primary {
		underlineChar = "^"
		style = r.styles.primary
	}
	col := loc.Col
	if col < 1 {
		col = 1
	}
	width := int(s.Span.Len)
	if width < 1 {
		width = 1
	}
	underline := strings.Repeat(" ", len(gutter)+col-1) + strings.Repeat(underlineChar, width)
	if s.Label != "" {
		underline += " " + s.Label
	}
	fmt.Fprintln(r.out, pad+style.Render(underline))
}
