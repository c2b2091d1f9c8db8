// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scans counts verify and confirm outcomes. outcome is "ok" or a rejection reason.
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "scans_total",
		Help:      "Scan verify/confirm requests by phase, activity kind and outcome.",
	}, []string{"phase", "kind", "outcome"})

	// ScanDuration observes store latency of scan handling.
	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "checkin",
		Name:      "scan_duration_seconds",
		Help:      "Time spent handling verify/confirm requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"phase"})

	// ImportRows counts reconciled CSV rows by result.
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "import_rows_total",
		Help:      "Participant import rows by result (inserted, duplicate, invalid).",
	}, []string{"result"})

	// Notifications counts worker deliveries by message type and status.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "notifications_total",
		Help:      "Notification deliveries by type and status.",
	}, []string{"type", "status"})

	// RateLimited counts requests rejected by the limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "checkin",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter.",
	})
)
