package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTurn(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveTurn("gateway.ws", "ok", 3, 250*time.Millisecond)
	r.ObserveTurn("gateway.ws", "ok", 1, 50*time.Millisecond)
	r.ObserveTurn("gateway.http", "error", 1, 10*time.Millisecond)

	if got := testutil.ToFloat64(r.turnsTotal.WithLabelValues("gateway.ws", "ok")); got != 2 {
		t.Fatalf("ws ok turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.turnsTotal.WithLabelValues("gateway.http", "error")); got != 1 {
		t.Fatalf("http error turns = %v, want 1", got)
	}
}

func TestObserveToolRunStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveToolRun("register_domain", true)
	r.ObserveToolRun("register_domain", false)
	r.ObserveToolRun("register_domain", false)

	if got := testutil.ToFloat64(r.toolRunsTotal.WithLabelValues("register_domain", "success")); got != 1 {
		t.Fatalf("success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.toolRunsTotal.WithLabelValues("register_domain", "error")); got != 2 {
		t.Fatalf("error = %v, want 2", got)
	}
}

func TestSessionsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.SetActiveSessions(7)
	if got := testutil.ToFloat64(r.activeSessions); got != 7 {
		t.Fatalf("gauge = %v, want 7", got)
	}
	r.SetActiveSessions(0)
	if got := testutil.ToFloat64(r.activeSessions); got != 0 {
		t.Fatalf("gauge = %v, want 0", got)
	}
}
