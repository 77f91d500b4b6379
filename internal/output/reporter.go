package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bgricker/apiprobe/internal/report"
)

const (
	// FormatPretty renders colourised human readable output.
	FormatPretty = "pretty"
	// FormatPlain renders human readable output without escape codes.
	FormatPlain = "plain"
	// FormatJSON renders a single machine readable document.
	FormatJSON = "json"

	bannerWidth = 60
	nameWidth   = 50
	detailPad   = "       "
)

// Reporter receives run events as they happen. Text reporters write each
// event immediately; buffering reporters may defer output until Summary.
type Reporter interface {
	Start(target string, startedAt time.Time) error
	Banner(title string) error
	Result(index int, result report.Result) error
	Note(message string) error
	Skip(message string) error
	Summary(stats report.Stats) error
}

// New returns the reporter for format.
func New(format string, out io.Writer) (Reporter, error) {
	switch strings.ToLower(format) {
	case FormatPretty, "":
		return NewPretty(out), nil
	case FormatPlain:
		return NewPlain(out), nil
	case FormatJSON:
		return NewJSON(out), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// palette styles the fragments of a text report.
type palette struct {
	frame  func(string) string
	pass   func(string) string
	fail   func(string) string
	detail func(string) string
	note   func(string) string
}

func identity(s string) string { return s }

var plainPalette = palette{
	frame:  identity,
	pass:   identity,
	fail:   identity,
	detail: identity,
	note:   identity,
}

// TextRenderer writes the line-oriented report shared by the plain and
// pretty formats.
type TextRenderer struct {
	out     io.Writer
	palette palette
}

// NewPlain creates a TextRenderer that emits no escape codes.
func NewPlain(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out, palette: plainPalette}
}

// Start prints the title box, the target and the start time.
func (r *TextRenderer) Start(target string, startedAt time.Time) error {
	inner := bannerWidth - 2
	lines := []string{
		"",
		r.palette.frame("╔" + strings.Repeat("═", inner) + "╗"),
		r.palette.frame("║" + center("API smoke test", inner, true) + "║"),
		r.palette.frame("╚" + strings.Repeat("═", inner) + "╝"),
		"",
		"Target:  " + target,
		"Started: " + startedAt.Format("2006-01-02 15:04:05"),
	}
	return r.writeLines(lines...)
}

// Banner prints a section heading.
func (r *TextRenderer) Banner(title string) error {
	rule := strings.Repeat("=", bannerWidth)
	return r.writeLines(
		"",
		r.palette.frame(rule),
		r.palette.frame(center(title, bannerWidth, false)),
		r.palette.frame(rule),
		"",
	)
}

// Result prints one probe line and its detail, if any.
func (r *TextRenderer) Result(index int, result report.Result) error {
	status := r.palette.pass("✓ PASS")
	if !result.Passed {
		status = r.palette.fail("✗ FAIL")
	}
	if _, err := fmt.Fprintf(r.out, "Test %d: %-*s %s\n", index, nameWidth, result.Name, status); err != nil {
		return err
	}
	if result.Detail != "" {
		return r.writeLines(detailPad + r.palette.detail(result.Detail))
	}
	return nil
}

// Note prints an informational line under the previous result.
func (r *TextRenderer) Note(message string) error {
	return r.writeLines(detailPad + r.palette.note(message))
}

// Skip prints a visible skip notice.
func (r *TextRenderer) Skip(message string) error {
	return r.writeLines(r.palette.detail("⚠ skipped: " + message))
}

// Summary prints the totals block and the final verdict.
func (r *TextRenderer) Summary(stats report.Stats) error {
	if err := r.Banner("Summary"); err != nil {
		return err
	}
	verdict := r.palette.pass("All probes passed!")
	if stats.Failed > 0 {
		verdict = r.palette.fail("Some probes failed, check the output above.")
	}
	lines := []string{
		fmt.Sprintf("Total:  %d", stats.Total),
		r.palette.pass(fmt.Sprintf("Passed: %d", stats.Passed)),
		r.palette.fail(fmt.Sprintf("Failed: %d", stats.Failed)),
	}
	if stats.SkippedGroups > 0 {
		lines = append(lines, r.palette.detail(fmt.Sprintf("Skipped groups: %d", stats.SkippedGroups)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Success rate: %.1f%%", stats.SuccessRate()),
		"",
		verdict,
		"",
	)
	return r.writeLines(lines...)
}

func (r *TextRenderer) writeLines(lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return err
		}
	}
	return nil
}

// center places s in the middle of width columns. Trailing padding is only
// emitted when fill is set, which the box border needs.
func center(s string, width int, fill bool) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	out := strings.Repeat(" ", left) + s
	if fill {
		out += strings.Repeat(" ", width-n-left)
	}
	return out
}
