package metrics

import (
	"github.com/prometheus/client_golang/prometheus"          // Prometheus metric types
	"github.com/prometheus/client_golang/prometheus/promauto" // Auto-registration
)

// Counters for the scheduled jobs and the notification fan-out. Exposed on
// /metrics by cmd/server.
var (
	// JobRuns counts invocations per job kind and outcome (ok/error).
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_job_runs_total",
		Help: "Scheduled job invocations by job kind and outcome.",
	}, []string{"job", "outcome"})

	// JobItems counts per-user work items inside job runs by result.
	JobItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_job_items_total",
		Help: "Per-user work items processed by scheduled jobs.",
	}, []string{"job", "result"})

	// PushSends counts push transport deliveries by result.
	PushSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loyalty_push_sends_total",
		Help: "Push transport delivery attempts by result.",
	}, []string{"result"})

	// CoinsExpired totals the coins zeroed by the retention sweep.
	CoinsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loyalty_coins_expired_total",
		Help: "Total coins removed by the expiry sweep.",
	})
)
