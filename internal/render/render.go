// Package render turns assistant markdown into styled terminal text.
package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/glamour"
)

const minWrap = 20

// Renderer wraps a glamour renderer for one style and wrap width.
type Renderer struct {
	tr    *glamour.TermRenderer
	style string
	width int
}

// New builds a renderer. style is a glamour style name or path ("dark",
// "light", "notty", ...); width is the word wrap column.
func New(style string, width int) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}
	if width < minWrap {
		width = minWrap
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{tr: tr, style: style, width: width}, nil
}

func (r *Renderer) Style() string { return r.style }
func (r *Renderer) Width() int    { return r.width }

// Render returns md rendered for the terminal. On any renderer failure
// the raw text is returned unchanged.
func (r *Renderer) Render(md string) string {
	if r == nil || r.tr == nil {
		return md
	}
	out, err := r.tr.Render(NormalizeFences(md))
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// Language resolves a fence info tag to the name of a chroma lexer.
func Language(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", false
	}
	lexer := lexers.Get(tag)
	if lexer == nil {
		return "", false
	}
	return lexer.Config().Name, true
}

// NormalizeFences strips the language from fenced code blocks whose tag
// chroma does not know, so they render as plain code.
func NormalizeFences(md string) string {
	lines := strings.Split(md, "\n")

	var fence string
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if len(line)-len(trimmed) > 3 {
			continue
		}

		if fence != "" {
			if strings.HasPrefix(trimmed, fence) && strings.TrimSpace(strings.TrimLeft(trimmed, fence[:1])) == "" {
				fence = ""
			}
			continue
		}

		marker := fenceMarker(trimmed)
		if marker == "" {
			continue
		}
		fence = marker

		info := strings.TrimSpace(trimmed[len(marker):])
		if info == "" {
			continue
		}
		tag := strings.Fields(info)[0]
		if _, ok := Language(tag); !ok {
			lines[i] = line[:len(line)-len(trimmed)] + marker
		}
	}
	return strings.Join(lines, "\n")
}

// fenceMarker returns the run of backticks or tildes opening a fence, or ""
// when line is not a fence.
func fenceMarker(line string) string {
	if line == "" || (line[0] != '`' && line[0] != '~') {
		return ""
	}
	ch := line[0]
	n := 0
	for n < len(line) && line[n] == ch {
		n++
	}
	if n < 3 {
		return ""
	}
	if ch == '`' && strings.Contains(line[n:], "`") {
		return ""
	}
	return line[:n]
}
