// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airdate",
		Name:      "provider_requests_total",
		Help:      "Metadata provider requests by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	ItemFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "airdate",
		Name:      "sync_item_failures_total",
		Help:      "Tracked items whose fetch failed during a sync pass.",
	})

	SyncPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airdate",
		Name:      "sync_passes_total",
		Help:      "Completed sync passes by scope.",
	}, []string{"scope"})

	SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "airdate",
		Name:      "sync_duration_seconds",
		Help:      "Wall time of sync passes.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	IndexedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "airdate",
		Name:      "indexed_events",
		Help:      "Events in the published episode index.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "airdate",
		Name:      "http_requests_total",
		Help:      "API requests by route template and status code.",
	}, []string{"method", "route", "status"})

	RemindersFired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "airdate",
		Name:      "reminders_fired_total",
		Help:      "Reminder notifications delivered.",
	})
)
