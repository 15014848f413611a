package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncSubmissions counts inventory submissions by execution mode and outcome.
	SyncSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "module_monitor_sync_submissions_total",
			Help: "Inventory submissions by mode (inline, background) and outcome",
		},
		[]string{"mode", "outcome"},
	)

	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "module_monitor_rate_limit_rejections_total",
			Help: "Inventory submissions rejected by the per-site rate limit",
		},
	)

	// ReconcileRows counts module reports by reconciliation outcome.
	ReconcileRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "module_monitor_reconcile_rows_total",
			Help: "Module reports by outcome (created, updated, unchanged, deactivated, error, warning)",
		},
		[]string{"outcome"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "module_monitor_cache_requests_total",
			Help: "Catalog cache lookups by key class and result",
		},
		[]string{"class", "result"},
	)

	TasksFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "module_monitor_tasks_finished_total",
			Help: "Background sync tasks reaching a terminal state",
		},
		[]string{"status"},
	)

	TaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "module_monitor_task_duration_seconds",
			Help:    "Time from task start to terminal state",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	QueuePublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "module_monitor_queue_publish_failures_total",
			Help: "Sync jobs that could not be published",
		},
	)
)

// RecordSubmission records one inventory submission.
func RecordSubmission(mode, outcome string) {
	SyncSubmissions.WithLabelValues(mode, outcome).Inc()
}

// RecordCache records one cache lookup.
func RecordCache(class string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequests.WithLabelValues(class, result).Inc()
}

// RecordRows adds reconciliation outcome counts.
func RecordRows(created, updated, unchanged, deactivated, errs, warnings int) {
	add := func(outcome string, n int) {
		if n > 0 {
			ReconcileRows.WithLabelValues(outcome).Add(float64(n))
		}
	}
	add("created", created)
	add("updated", updated)
	add("unchanged", unchanged)
	add("deactivated", deactivated)
	add("error", errs)
	add("warning", warnings)
}

// RecordTaskFinished records a task reaching status after running for d.
func RecordTaskFinished(status string, d time.Duration) {
	TasksFinished.WithLabelValues(status).Inc()
	if d > 0 {
		TaskDuration.Observe(d.Seconds())
	}
}
