package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Report colours. ANSI indexes keep the output readable on both light and
// dark terminals.
var (
	colorFrame = lipgloss.Color("4")
	colorPass  = lipgloss.Color("2")
	colorFail  = lipgloss.Color("1")
	colorWarn  = lipgloss.Color("3")
)

// NewPretty creates a TextRenderer that colours its output with lipgloss.
// Colour is dropped automatically when out is not a terminal.
func NewPretty(out io.Writer) *TextRenderer {
	r := lipgloss.NewRenderer(out)

	frame := r.NewStyle().Foreground(colorFrame)
	pass := r.NewStyle().Foreground(colorPass)
	fail := r.NewStyle().Foreground(colorFail)
	warn := r.NewStyle().Foreground(colorWarn)

	return &TextRenderer{
		out: out,
		palette: palette{
			frame:  func(s string) string { return frame.Render(s) },
			pass:   func(s string) string { return pass.Render(s) },
			fail:   func(s string) string { return fail.Render(s) },
			detail: func(s string) string { return warn.Render(s) },
			note:   func(s string) string { return pass.Render(s) },
		},
	}
}
