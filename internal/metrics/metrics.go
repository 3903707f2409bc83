// SPDX-License-Identifier: MPL-2.0

// Package metrics counts runtime executions and syntax checks.
//
// A Recorder owns its own registry so several recorders can coexist in one
// process (tests, embedded use). The CLI writes the registry to a node
// exporter textfile when a metrics file is configured.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels the result of one execution.
type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeFailed      Outcome = "failed"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeConfigError Outcome = "config_error"
	OutcomeIOError     Outcome = "io_error"
)

// ErrNoTextfile is returned by WriteTextfile when path is empty.
var ErrNoTextfile = errors.New("no metrics textfile configured")

// Recorder collects execution metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry   *prometheus.Registry
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	checks     *prometheus.CounterVec
}

// New returns a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "univscript",
				Name:      "executions_total",
				Help:      "Number of runtime executions, by runtime and outcome.",
			},
			[]string{"runtime", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "univscript",
				Name:      "execution_duration_seconds",
				Help:      "Wall time of runtime executions, including script preparation.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
			},
			[]string{"runtime"},
		),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "univscript",
				Name:      "syntax_checks_total",
				Help:      "Number of syntax checks, by runtime and result.",
			},
			[]string{"runtime", "result"},
		),
	}
	r.registry.MustRegister(r.executions, r.duration, r.checks)
	return r
}

// ObserveExecution records one finished execution.
func (r *Recorder) ObserveExecution(runtime string, outcome Outcome, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.executions.WithLabelValues(runtime, string(outcome)).Inc()
	r.duration.WithLabelValues(runtime).Observe(elapsed.Seconds())
}

// ObserveCheck records one syntax check.
func (r *Recorder) ObserveCheck(runtime string, ok bool) {
	if r == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	r.checks.WithLabelValues(runtime, result).Inc()
}

// Executions returns the execution counter for one runtime and outcome.
func (r *Recorder) Executions(runtime string, outcome Outcome) prometheus.Counter {
	return r.executions.WithLabelValues(runtime, string(outcome))
}

// Gatherer exposes the registry, e.g. for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format to path,
// atomically replacing any previous file.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return ErrNoTextfile
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
