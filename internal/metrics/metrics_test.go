package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EntryWritten("WARNING")
	m.EntryWritten("WARNING")
	m.Rotated()
	m.Flushed(ResultSuccess, 0.2, 3)
	m.Flushed(ResultFailure, 0.1, 0)
	m.Triggered(128)

	if got := testutil.ToFloat64(m.entriesWritten.WithLabelValues("WARNING")); got != 2 {
		t.Errorf("entries_written = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.rotations); got != 1 {
		t.Errorf("rotations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.markedSent); got != 3 {
		t.Errorf("marked_sent = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.flushes.WithLabelValues(ResultFailure)); got != 1 {
		t.Errorf("failed flushes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.forwardedBytes); got != 128 {
		t.Errorf("forwarded bytes = %v, want 128", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) == 0 {
		t.Error("no metric families registered")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.EntryWritten("INFO")
	m.WriteFailed()
	m.Rotated()
	m.Recovered()
	m.Triggered(1)
	m.Flushed(ResultSuccess, 1, 1)
	m.Buffered(10)
}

func TestMetrics_Unregistered(t *testing.T) {
	// Two instances without a registry must not collide.
	a := New(nil)
	b := New(nil)
	a.Rotated()
	b.Rotated()
	if got := testutil.ToFloat64(a.rotations); got != 1 {
		t.Errorf("rotations = %v, want 1", got)
	}
}
