package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStandbyMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStandbyMetrics(reg)

	m.ObserveOutcome("matched", "")
	m.ObserveOutcome("skipped", "language")
	m.ObserveOutcome("skipped", "language")
	m.ObserveRedemption("taken")
	m.ObservePass(0.2)

	if got := testutil.ToFloat64(m.outcomesTotal.WithLabelValues("skipped", "language")); got != 2 {
		t.Fatalf("expected 2 language skips, got %v", got)
	}
	if got := testutil.ToFloat64(m.redemptionsTotal.WithLabelValues("taken")); got != 1 {
		t.Fatalf("expected 1 taken redemption, got %v", got)
	}
	if n := testutil.CollectAndCount(m.passDuration); n != 1 {
		t.Fatalf("expected pass histogram to be collected, got %d", n)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *StandbyMetrics
	m.ObserveOutcome("matched", "")
	m.ObservePass(1)
	m.ObserveRedemption("success")
}
