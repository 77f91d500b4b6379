package report

import "time"

// Result captures the outcome of a single probe assertion.
type Result struct {
	Group      string        `json:"group"`
	Name       string        `json:"name"`
	Passed     bool          `json:"passed"`
	Detail     string        `json:"detail,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Stats aggregates probe results. It is only ever derived by counting a
// result sequence, so Total always equals Passed+Failed.
type Stats struct {
	Total         int           `json:"total"`
	Passed        int           `json:"passed"`
	Failed        int           `json:"failed"`
	SkippedGroups int           `json:"skipped_groups"`
	Duration      time.Duration `json:"-"`
	DurationMS    int64         `json:"duration_ms"`
}

// Tally recomputes stats from results.
func Tally(results []Result) Stats {
	var stats Stats
	for _, r := range results {
		stats.Add(r)
	}
	return stats
}

// Add counts one more result.
func (s *Stats) Add(r Result) {
	s.Total++
	if r.Passed {
		s.Passed++
	} else {
		s.Failed++
	}
	s.Duration += r.Duration
	s.DurationMS = s.Duration.Milliseconds()
}

// SuccessRate returns the percentage of passed probes. A run with no
// failures, including an empty one, reports 100.
func (s Stats) SuccessRate() float64 {
	if s.Failed == 0 || s.Total == 0 {
		return 100
	}
	return float64(s.Passed) / float64(s.Total) * 100
}

// ExitCode maps the stats onto a process exit status.
func (s Stats) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
