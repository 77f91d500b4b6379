package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgricker/apiprobe/internal/report"
)

var startedAt = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

// playScenario drives a reporter through a short mixed run.
func playScenario(t *testing.T, r Reporter) {
	t.Helper()
	require.NoError(t, r.Start("http://localhost:3000", startedAt))
	require.NoError(t, r.Banner("1. Liveness"))
	require.NoError(t, r.Result(1, report.Result{Group: "health", Name: "API root", Passed: true}))
	require.NoError(t, r.Result(2, report.Result{Group: "health", Name: "Health endpoint", Detail: "status: 503"}))
	require.NoError(t, r.Banner("3. Registration"))
	require.NoError(t, r.Result(3, report.Result{
		Group:  "register",
		Name:   "Register user",
		Passed: true,
		Detail: "status: 201, email: test12345@example.com",
	}))
	require.NoError(t, r.Note("token saved for authenticated probes"))
	require.NoError(t, r.Banner("6. Authenticated user"))
	require.NoError(t, r.Skip("no token available"))
	require.NoError(t, r.Summary(report.Stats{Total: 3, Passed: 2, Failed: 1, SkippedGroups: 1}))
}

func TestPlainReport(t *testing.T) {
	buf := &bytes.Buffer{}
	playScenario(t, NewPlain(buf))

	g := goldie.New(t)
	g.Assert(t, "plain_report", buf.Bytes())
}

func TestPlainEmptySummary(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, NewPlain(buf).Summary(report.Stats{}))

	g := goldie.New(t)
	g.Assert(t, "plain_empty_summary", buf.Bytes())
}

func TestPrettyReportLayout(t *testing.T) {
	buf := &bytes.Buffer{}
	playScenario(t, NewPretty(buf))

	out := buf.String()
	assert.Contains(t, out, "✓ PASS")
	assert.Contains(t, out, "✗ FAIL")
	assert.Contains(t, out, "status: 503")
	assert.Contains(t, out, "⚠ skipped: no token available")
	assert.Contains(t, out, "Success rate: 66.7%")
}

func TestNewSelectsRenderer(t *testing.T) {
	buf := &bytes.Buffer{}

	r, err := New("JSON", buf)
	require.NoError(t, err)
	assert.IsType(t, &JSONRenderer{}, r)

	r, err = New("plain", buf)
	require.NoError(t, err)
	assert.IsType(t, &TextRenderer{}, r)

	r, err = New("", buf)
	require.NoError(t, err)
	assert.IsType(t, &TextRenderer{}, r)

	_, err = New("xml", buf)
	assert.EqualError(t, err, `unsupported format "xml"`)
}

func TestCenter(t *testing.T) {
	assert.Equal(t, "  ab", center("ab", 6, false))
	assert.Equal(t, "  ab  ", center("ab", 6, true))
	assert.Equal(t, " abc  ", center("abc", 6, true))
	assert.Equal(t, "toolong", center("toolong", 3, true))
}
