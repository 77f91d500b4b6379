package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bgricker/apiprobe/internal/client"
	"github.com/bgricker/apiprobe/internal/logging"
	"github.com/bgricker/apiprobe/internal/output"
	"github.com/bgricker/apiprobe/internal/probe/filter"
	"github.com/bgricker/apiprobe/internal/report"
)

// ErrInterrupted is returned when the run context is cancelled before the
// battery completes.
var ErrInterrupted = errors.New("interrupted")

// skipNoToken is shown when an auth-gated group has nothing to send.
const skipNoToken = "no token available, authenticated probes skipped"

// Doer sends a single API request.
type Doer interface {
	Do(ctx context.Context, req client.Request) (client.Response, error)
	BaseURL() string
}

// RunContext is the state threaded through every probe of one run.
type RunContext struct {
	Client   Doer
	Session  *Session
	Reporter output.Reporter
	Logger   *slog.Logger

	results []report.Result
	stats   report.Stats
}

// Record appends result and updates the running stats together, so the
// stats always match the result sequence.
func (rc *RunContext) Record(result report.Result) {
	rc.results = append(rc.results, result)
	rc.stats.Add(result)
}

// Results returns the results recorded so far.
func (rc *RunContext) Results() []report.Result {
	return rc.results
}

// Stats returns the running totals.
func (rc *RunContext) Stats() report.Stats {
	return rc.stats
}

// Options configure a Runner.
type Options struct {
	Client   Doer
	Reporter output.Reporter
	Logger   *slog.Logger
	Selector filter.Selector
	Groups   []Group
	Now      func() time.Time
}

// Runner executes probe groups sequentially.
type Runner struct {
	opts Options
}

// Outcome is what a run produced, complete or not.
type Outcome struct {
	Results []report.Result
	Stats   report.Stats
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Groups == nil {
		opts.Groups = Catalog(DefaultCatalogOptions())
	}
	return &Runner{opts: opts}
}

// Run executes the selected groups in order. Probe failures never stop the
// run; only a cancelled context or a reporter write error does. On
// interruption the in-flight probe is dropped and no summary is written.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	rc := &RunContext{
		Client:   r.opts.Client,
		Session:  &Session{},
		Reporter: r.opts.Reporter,
		Logger:   r.opts.Logger,
	}

	started := r.opts.Now()
	if err := rc.Reporter.Start(rc.Client.BaseURL(), started); err != nil {
		return outcome(rc), fmt.Errorf("writing report: %w", err)
	}

	for i, group := range r.opts.Groups {
		if !r.opts.Selector.Allow(group.ID, group.Title) {
			rc.Logger.Debug("group filtered out", "group", group.ID)
			continue
		}
		if err := rc.Reporter.Banner(fmt.Sprintf("%d. %s", i+1, group.Title)); err != nil {
			return outcome(rc), fmt.Errorf("writing report: %w", err)
		}
		if group.RequiresAuth && !rc.Session.Authenticated() {
			rc.stats.SkippedGroups++
			rc.Logger.Debug("group skipped", "group", group.ID, "reason", "no token")
			if err := rc.Reporter.Skip(skipNoToken); err != nil {
				return outcome(rc), fmt.Errorf("writing report: %w", err)
			}
			continue
		}

		for _, p := range group.Probes {
			if ctx.Err() != nil {
				return outcome(rc), ErrInterrupted
			}
			result, note, err := runProbe(ctx, rc, group, p)
			if err != nil {
				return outcome(rc), err
			}
			rc.Record(result)
			if err := rc.Reporter.Result(len(rc.results), result); err != nil {
				return outcome(rc), fmt.Errorf("writing report: %w", err)
			}
			if note != "" {
				if err := rc.Reporter.Note(note); err != nil {
					return outcome(rc), fmt.Errorf("writing report: %w", err)
				}
			}
		}
	}

	if err := rc.Reporter.Summary(rc.stats); err != nil {
		return outcome(rc), fmt.Errorf("writing report: %w", err)
	}
	rc.Logger.Debug("run finished",
		"total", rc.stats.Total, "passed", rc.stats.Passed, "failed", rc.stats.Failed,
		"elapsed", r.opts.Now().Sub(started))
	return outcome(rc), nil
}

// runProbe sends one request and judges it. The only error it returns is
// ErrInterrupted; everything else becomes a failing result.
func runProbe(ctx context.Context, rc *RunContext, group Group, p Probe) (report.Result, string, error) {
	result := report.Result{Group: group.ID, Name: p.Name}

	path := p.Path
	if p.Route != nil {
		route, err := p.Route(rc.Session)
		if err != nil {
			rc.Logger.Debug("probe not sent", "probe", p.Name, "error", err)
			result.Detail = err.Error()
			return result, "", nil
		}
		path = route
	}

	var body any
	if p.Body != nil {
		body = p.Body()
	}
	req := client.Request{Method: p.Method, Path: path, Body: body}
	if p.Auth {
		req.Token = rc.Session.Token()
	}

	resp, err := rc.Client.Do(ctx, req)
	result.Duration = resp.Duration
	result.DurationMS = resp.Duration.Milliseconds()
	if err != nil {
		if ctx.Err() != nil {
			return report.Result{}, "", ErrInterrupted
		}
		rc.Logger.Debug("probe errored", "probe", p.Name, "trace_id", resp.TraceID, "error", err)
		result.Detail = err.Error()
		return result, "", nil
	}

	if p.JSON {
		if err := resp.DecodeError(); err != nil {
			rc.Logger.Debug("probe body rejected", "probe", p.Name, "trace_id", resp.TraceID, "error", err)
			result.Detail = err.Error()
			return result, "", nil
		}
	}

	result.Passed = p.Judge(resp, rc.Session)
	detail := p.Detail
	if detail == nil {
		detail = statusDetail
	}
	result.Detail = detail(resp, body)

	var note string
	if result.Passed && p.Capture != nil {
		note = p.Capture(resp, rc.Session)
	}
	return result, note, nil
}

func outcome(rc *RunContext) Outcome {
	return Outcome{Results: rc.results, Stats: rc.stats}
}
