package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

type styles struct {
	color   bool
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	meta    lipgloss.Style
	title   lipgloss.Style
	added   lipgloss.Style
	removed lipgloss.Style
	hunk    lipgloss.Style
}

func newStyles(w io.Writer, noColor bool) styles {
	r := lipgloss.NewRenderer(w)
	if noColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		color:   r.ColorProfile() != termenv.Ascii,
		ok:      r.NewStyle().Foreground(lipgloss.Color("#44C25B")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#E8B931")).Bold(true),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#F25F5C")).Bold(true),
		meta:    r.NewStyle().Foreground(lipgloss.Color("#A6A1BB")).Italic(true),
		title:   r.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
		added:   r.NewStyle().Foreground(lipgloss.Color("#44C25B")),
		removed: r.NewStyle().Foreground(lipgloss.Color("#F25F5C")),
		hunk:    r.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
	}
}

func (s styles) status(code int, text string) string {
	label := fmt.Sprintf("%d %s", code, text)
	switch {
	case code == 0:
		return s.fail.Render("request failed")
	case code >= 400:
		return s.fail.Render(label)
	case code >= 300:
		return s.warn.Render(label)
	default:
		return s.ok.Render(label)
	}
}

// highlight writes src through chroma when color is on and falls back to
// the plain text on any lexer error.
func (s styles) highlight(w io.Writer, src, lexer string) {
	if s.color {
		var buf bytes.Buffer
		if err := quick.Highlight(&buf, src, lexer, "terminal256", "monokai"); err == nil {
			_, _ = w.Write(buf.Bytes())
			if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
				_, _ = io.WriteString(w, "\n")
			}
			return
		}
	}
	_, _ = io.WriteString(w, src)
	if !strings.HasSuffix(src, "\n") {
		_, _ = io.WriteString(w, "\n")
	}
}

// diff colors a unified diff line by line.
func (s styles) diff(w io.Writer, text string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "+++"):
			line = s.meta.Render(line)
		case strings.HasPrefix(line, "@@"):
			line = s.hunk.Render(line)
		case strings.HasPrefix(line, "+"):
			line = s.added.Render(line)
		case strings.HasPrefix(line, "-"):
			line = s.removed.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}
