package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	_ = m.Track("rollups:snapshot").End(nil)
	err := m.Track("rollups:snapshot").End(errors.New("boom"))
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected error passthrough, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("rollups:snapshot", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("rollups:snapshot")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
}

func TestAddItems(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddItems("datasource:warmup", "nurse", 3)
	m.AddItems("datasource:warmup", "", 2)
	m.AddItems("datasource:warmup", "nurse", 0)

	if got := testutil.ToFloat64(m.items.WithLabelValues("datasource:warmup", "nurse")); got != 3 {
		t.Fatalf("expected 3 nurse items, got %v", got)
	}
	if got := testutil.ToFloat64(m.items.WithLabelValues("datasource:warmup", "all")); got != 2 {
		t.Fatalf("expected 2 items under all, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.AddItems("x", "y", 1)
	if err := nilMetrics.Track("x").End(nil); err != nil {
		t.Fatalf("nil tracker returned %v", err)
	}
}
