// Package metrics exposes Prometheus instrumentation for the agent core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the collectors the router and agent loop feed.
type Recorder struct {
	turnsTotal      *prometheus.CounterVec
	toolRunsTotal   *prometheus.CounterVec
	approvalsTotal  *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	loopIterations  prometheus.Histogram
	turnDuration    prometheus.Histogram
	activeSessions  prometheus.Gauge
}

// NewRecorder registers the collectors on reg. Pass
// prometheus.DefaultRegisterer in production.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		turnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundry_turns_total",
				Help: "Conversation turns processed, by channel and outcome",
			},
			[]string{"channel", "outcome"},
		),
		toolRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundry_tool_runs_total",
				Help: "Tool executions, by tool and status",
			},
			[]string{"tool", "status"},
		),
		approvalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundry_approvals_total",
				Help: "Approval gate verdicts",
			},
			[]string{"verdict"},
		),
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foundry_state_transitions_total",
				Help: "Committed state transitions, by source",
			},
			[]string{"from", "to", "source"},
		),
		loopIterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "foundry_loop_iterations",
				Help:    "Agent loop iterations per turn",
				Buckets: prometheus.LinearBuckets(1, 2, 8),
			},
		),
		turnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "foundry_turn_duration_seconds",
				Help:    "End-to-end turn processing time",
				Buckets: prometheus.DefBuckets,
			},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "foundry_active_sessions",
				Help: "Conversations currently held in the cache",
			},
		),
	}
}

// ObserveTurn records one processed turn.
func (r *Recorder) ObserveTurn(channel, outcome string, iterations int, d time.Duration) {
	r.turnsTotal.WithLabelValues(channel, outcome).Inc()
	r.loopIterations.Observe(float64(iterations))
	r.turnDuration.Observe(d.Seconds())
}

// ObserveToolRun records one tool execution.
func (r *Recorder) ObserveToolRun(tool string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	r.toolRunsTotal.WithLabelValues(tool, status).Inc()
}

// ObserveApproval records an approval gate verdict.
func (r *Recorder) ObserveApproval(verdict string) {
	r.approvalsTotal.WithLabelValues(verdict).Inc()
}

// ObserveTransition records a committed state transition.
func (r *Recorder) ObserveTransition(from, to, source string) {
	r.transitionsTotal.WithLabelValues(from, to, source).Inc()
}

// SetActiveSessions updates the session gauge.
func (r *Recorder) SetActiveSessions(n int) {
	r.activeSessions.Set(float64(n))
}
