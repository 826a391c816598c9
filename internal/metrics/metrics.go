package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the reaper and retention housekeeping, exported on /metrics.
var (
	MessagesMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_messages_marked_total",
		Help: "Messages transitioned from active to pending_deletion.",
	})
	MessagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_messages_deleted_total",
		Help: "Messages physically deleted by the reaper.",
	})
	ReaperFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_reaper_failures_total",
		Help: "Per-message failures skipped during cleanup passes.",
	})
	PresencePurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_presence_purged_total",
		Help: "Stale presence rows removed by retention cleanup.",
	})
	ViewsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifecycle_views_purged_total",
		Help: "Expired view rows removed by retention cleanup.",
	})
)
