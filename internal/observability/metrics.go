// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the session engine. Nothing here is global: the registry
// and tracer provider are injected where needed, and a nil collector is
// a no-op so callers never have to branch on whether metrics are on.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds all Prometheus metrics for CLAI on a custom
// registry.
type MetricsCollector struct {
	Registry *prometheus.Registry

	SessionsStarted    prometheus.Counter
	SessionsTerminated *prometheus.CounterVec

	CommandsTotal   *prometheus.CounterVec
	CommandDuration prometheus.Histogram

	ChangesDetected *prometheus.CounterVec
	ApplyFiles      *prometheus.CounterVec
}

// NewMetricsCollector creates a MetricsCollector with all metrics
// registered on a fresh registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clai",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Total sandbox sessions started.",
		}),

		SessionsTerminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clai",
			Subsystem: "session",
			Name:      "terminated_total",
			Help:      "Total sessions terminated, by terminal reason.",
		}, []string{"reason"}),

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clai",
			Subsystem: "sandbox",
			Name:      "commands_total",
			Help:      "Total commands executed in sandboxes, by outcome.",
		}, []string{"status"}),

		CommandDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clai",
			Subsystem: "sandbox",
			Name:      "command_duration_seconds",
			Help:      "Sandbox command duration in seconds.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),

		ChangesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clai",
			Subsystem: "diff",
			Name:      "changes_total",
			Help:      "File changes reported by change detection, by type.",
		}, []string{"type"}),

		ApplyFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clai",
			Subsystem: "apply",
			Name:      "files_total",
			Help:      "Per-file apply outcomes.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.SessionsStarted,
		m.SessionsTerminated,
		m.CommandsTotal,
		m.CommandDuration,
		m.ChangesDetected,
		m.ApplyFiles,
	)

	return m
}

// --- Nil-safe recording helpers ---

// RecordSessionStart counts a session start.
func (m *MetricsCollector) RecordSessionStart() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

// RecordSessionEnd counts a terminated session by reason.
func (m *MetricsCollector) RecordSessionEnd(reason string) {
	if m == nil {
		return
	}
	m.SessionsTerminated.WithLabelValues(reason).Inc()
}

// RecordCommand counts one command execution.
func (m *MetricsCollector) RecordCommand(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(status).Inc()
	m.CommandDuration.Observe(d.Seconds())
}

// RecordChange counts one detected file change by type.
func (m *MetricsCollector) RecordChange(changeType string) {
	if m == nil {
		return
	}
	m.ChangesDetected.WithLabelValues(changeType).Inc()
}

// RecordApply counts per-file apply outcomes.
func (m *MetricsCollector) RecordApply(succeeded, failed int) {
	if m == nil {
		return
	}
	m.ApplyFiles.WithLabelValues("success").Add(float64(succeeded))
	m.ApplyFiles.WithLabelValues("failure").Add(float64(failed))
}
