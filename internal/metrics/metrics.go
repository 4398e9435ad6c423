// Package metrics counts patch runs and decisions in Prometheus metrics. The
// tool is short lived, so the metrics are exported through a node_exporter
// textfile instead of a scrape endpoint.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/yeti/confpatch"
)

// Run results.
const (
	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultDryRun    = "dry-run"
	ResultError     = "error"
)

// Recorder holds the metrics of one tool invocation in its own registry.
type Recorder struct {
	reg *prometheus.Registry

	events  *prometheus.CounterVec
	runs    *prometheus.CounterVec
	lastRun *prometheus.GaugeVec
}

// New returns a Recorder with an empty registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confpatch_events_total",
			Help: "Total number of patch decisions, by target and kind.",
		}, []string{"target", "kind"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "confpatch_runs_total",
			Help: "Total number of patch runs, by target and result.",
		}, []string{"target", "result"}),
		lastRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "confpatch_last_run_timestamp_seconds",
			Help: "Unix time of the last patch run, by target.",
		}, []string{"target"}),
	}
}

// Registry returns the registry holding the metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Reporter returns a confpatch.Reporter counting the events of target.
func (r *Recorder) Reporter(target string) confpatch.Reporter {
	return confpatch.ReporterFunc(func(e confpatch.Event) {
		r.events.WithLabelValues(target, e.Kind.String()).Inc()
	})
}

// ObserveRun records the outcome of one run against target.
func (r *Recorder) ObserveRun(target string, res *confpatch.Result, dryRun bool, err error) {
	r.runs.WithLabelValues(target, Result(res, dryRun, err)).Inc()
	r.lastRun.WithLabelValues(target).Set(float64(time.Now().Unix()))
}

// Result classifies the outcome of a run.
func Result(res *confpatch.Result, dryRun bool, err error) string {
	switch {
	case err != nil || res == nil:
		return ResultError
	case !res.Changed:
		return ResultUnchanged
	case dryRun:
		return ResultDryRun
	default:
		return ResultChanged
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}

	return nil
}
