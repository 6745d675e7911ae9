package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollectorRecords(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordSessionStart()
	m.RecordSessionEnd("applied")
	m.RecordCommand("completed", 250*time.Millisecond)
	m.RecordCommand("timed_out", 30*time.Second)
	m.RecordChange("added")
	m.RecordChange("added")
	m.RecordApply(3, 1)

	if got := testutil.ToFloat64(m.SessionsStarted); got != 1 {
		t.Errorf("sessions started = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionsTerminated.WithLabelValues("applied")); got != 1 {
		t.Errorf("sessions terminated(applied) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues("timed_out")); got != 1 {
		t.Errorf("commands(timed_out) = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ChangesDetected.WithLabelValues("added")); got != 2 {
		t.Errorf("changes(added) = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ApplyFiles.WithLabelValues("success")); got != 3 {
		t.Errorf("apply files(success) = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ApplyFiles.WithLabelValues("failure")); got != 1 {
		t.Errorf("apply files(failure) = %v, want 1", got)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var m *MetricsCollector

	// Must not panic.
	m.RecordSessionStart()
	m.RecordSessionEnd("discarded")
	m.RecordCommand("completed", time.Second)
	m.RecordChange("deleted")
	m.RecordApply(0, 0)
}

func TestNilTracerSetup(t *testing.T) {
	var ts *TracerSetup
	if ts.Tracer() == nil {
		t.Error("nil setup Tracer() = nil, want no-op tracer")
	}
	if err := ts.Shutdown(context.Background()); err != nil {
		t.Errorf("nil setup Shutdown: %v", err)
	}
}
