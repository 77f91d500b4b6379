// Package metrics exports run results in the Prometheus text format, for
// pickup by a node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bgricker/apiprobe/internal/report"
)

const namespace = "apiprobe"

// Registry holds the gauges describing one run.
type Registry struct {
	reg *prometheus.Registry

	ProbesTotal    *prometheus.GaugeVec
	ProbeSuccess   *prometheus.GaugeVec
	ProbeDuration  *prometheus.GaugeVec
	SuccessRate    prometheus.Gauge
	SkippedGroups  prometheus.Gauge
	LastRunSeconds prometheus.Gauge
}

// New creates a registry with the run gauges registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		ProbesTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probes",
			Help:      "Probes run in the last smoke test, by result.",
		}, []string{"result"}),
		ProbeSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_success",
			Help:      "1 if the probe passed in the last smoke test, 0 otherwise.",
		}, []string{"group", "probe"}),
		ProbeDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Round trip time of the probe request.",
		}, []string{"group", "probe"}),
		SuccessRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "success_rate_percent",
			Help:      "Share of passed probes in the last smoke test.",
		}),
		SkippedGroups: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skipped_groups",
			Help:      "Probe groups skipped for lack of a session token.",
		}),
		LastRunSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last smoke test finished.",
		}),
	}
}

// Observe records results and their stats as of finishedAt.
func (r *Registry) Observe(results []report.Result, stats report.Stats, finishedAt time.Time) {
	r.ProbesTotal.WithLabelValues("passed").Set(float64(stats.Passed))
	r.ProbesTotal.WithLabelValues("failed").Set(float64(stats.Failed))

	for _, res := range results {
		success := 0.0
		if res.Passed {
			success = 1
		}
		r.ProbeSuccess.WithLabelValues(res.Group, res.Name).Set(success)
		r.ProbeDuration.WithLabelValues(res.Group, res.Name).Set(res.Duration.Seconds())
	}

	r.SuccessRate.Set(stats.SuccessRate())
	r.SkippedGroups.Set(float64(stats.SkippedGroups))
	r.LastRunSeconds.Set(float64(finishedAt.Unix()))
}

// WriteFile atomically writes the registry to path in the text format.
func (r *Registry) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %q: %w", path, err)
	}
	return nil
}
