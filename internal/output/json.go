package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/bgricker/apiprobe/internal/report"
)

// JSONRenderer buffers run events and emits one document on Summary.
type JSONRenderer struct {
	out    io.Writer
	doc    Report
	banner string
}

// Report captures JSON output schema.
type Report struct {
	Target      string          `json:"target"`
	StartedAt   time.Time       `json:"started_at"`
	Results     []report.Result `json:"results"`
	Notes       []Event         `json:"notes,omitempty"`
	Skipped     []Event         `json:"skipped,omitempty"`
	Summary     report.Stats    `json:"summary"`
	SuccessRate float64         `json:"success_rate"`
}

// Event is a note or skip notice together with the section it appeared in.
type Event struct {
	Section string `json:"section"`
	Message string `json:"message"`
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out, doc: Report{Results: []report.Result{}}}
}

func (j *JSONRenderer) Start(target string, startedAt time.Time) error {
	j.doc.Target = target
	j.doc.StartedAt = startedAt
	return nil
}

func (j *JSONRenderer) Banner(title string) error {
	j.banner = title
	return nil
}

func (j *JSONRenderer) Result(_ int, result report.Result) error {
	j.doc.Results = append(j.doc.Results, result)
	return nil
}

func (j *JSONRenderer) Note(message string) error {
	j.doc.Notes = append(j.doc.Notes, Event{Section: j.banner, Message: message})
	return nil
}

func (j *JSONRenderer) Skip(message string) error {
	j.doc.Skipped = append(j.doc.Skipped, Event{Section: j.banner, Message: message})
	return nil
}

// Summary encodes the buffered report as JSON.
func (j *JSONRenderer) Summary(stats report.Stats) error {
	j.doc.Summary = stats
	j.doc.SuccessRate = stats.SuccessRate()
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(j.doc)
}
