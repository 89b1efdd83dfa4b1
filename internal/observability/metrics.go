// Package observability provides domain metrics and tracing setup.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ApplicationTransitions counts application status changes by target status.
	ApplicationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_application_transitions_total",
		Help: "Application status transitions by resulting status",
	}, []string{"status"})

	// ApplicationTransitionConflicts counts transitions rejected because the
	// application was no longer pending.
	ApplicationTransitionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_application_transition_conflicts_total",
		Help: "Transitions rejected because the application had already left pending",
	}, []string{"status"})

	// ServiceViews counts view-counter increments that reached the database.
	ServiceViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gigboard_service_views_total",
		Help: "Distinct service views recorded",
	})

	// TaskOutcomes counts background task completions by task name and outcome.
	TaskOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_task_outcomes_total",
		Help: "Background task results by task and outcome",
	}, []string{"task", "outcome"})

	// TaskQueueDepth is the number of tasks waiting for a worker.
	TaskQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gigboard_task_queue_depth",
		Help: "Background tasks waiting for a worker",
	})

	// EmailsSent counts outgoing mail by template and outcome.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gigboard_emails_sent_total",
		Help: "Outgoing emails by template and outcome",
	}, []string{"template", "outcome"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gigboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// Task outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
	OutcomeDropped = "dropped"
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
