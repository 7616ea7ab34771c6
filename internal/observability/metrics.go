// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Webhook metrics
	BatchesProcessed prometheus.Counter
	EventsProcessed  prometheus.Counter
	EventsRejected   *prometheus.CounterVec
	EventsDeduped    prometheus.Counter
	BatchLatency     prometheus.Histogram

	// Cluster metrics
	Registrations prometheus.Counter
	ClustersLive  prometheus.Gauge
	WhaleHits     prometheus.Counter
	SweepEvicted  prometheus.Counter

	// Ranking metrics
	WinnersQueries prometheus.Counter

	// Storage metrics
	StoreErrors     *prometheus.CounterVec
	DBQueryDuration *prometheus.HistogramVec

	// Notification metrics
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed prometheus.Counter

	// Health metrics
	LastSuccessfulBatch prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "mint_radar"
	}

	return &Metrics{
		// Webhook metrics
		BatchesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "batches_processed_total",
			Help:      "Total number of webhook batches processed",
		}),
		EventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_processed_total",
			Help:      "Total number of touch events registered",
		}),
		EventsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_rejected_total",
			Help:      "Total number of events rejected by reason",
		}, []string{"reason"}),
		EventsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_deduped_total",
			Help:      "Total number of duplicate events dropped",
		}),
		BatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "batch_latency_seconds",
			Help:      "Webhook batch processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Cluster metrics
		Registrations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "registrations_total",
			Help:      "Total number of cluster registrations",
		}),
		ClustersLive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "live",
			Help:      "Current number of live cluster entries",
		}),
		WhaleHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "whale_hits_total",
			Help:      "Total number of registrations touched by a whale",
		}),
		SweepEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cluster",
			Name:      "sweep_evicted_total",
			Help:      "Total number of entries evicted by the retention sweeper",
		}),

		// Ranking metrics
		WinnersQueries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ranking",
			Name:      "winners_queries_total",
			Help:      "Total number of winners queries served",
		}),

		// Storage metrics
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total number of storage errors by backend",
		}, []string{"backend", "operation"}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Storage query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),

		// Notification metrics
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Total number of notifications sent by kind",
		}, []string{"kind"}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failed_total",
			Help:      "Total number of notification delivery failures",
		}),

		// Health metrics
		LastSuccessfulBatch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_batch_timestamp",
			Help:      "Unix timestamp of last successfully processed batch",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordBatch records a processed batch with its latency.
func RecordBatch(seconds float64, unixNow int64) {
	DefaultMetrics.BatchesProcessed.Inc()
	DefaultMetrics.BatchLatency.Observe(seconds)
	DefaultMetrics.LastSuccessfulBatch.Set(float64(unixNow))
}

// RecordEventProcessed increments the processed events counter.
func RecordEventProcessed() {
	DefaultMetrics.EventsProcessed.Inc()
}

// RecordEventRejected records a rejected event with its reason.
func RecordEventRejected(reason string) {
	DefaultMetrics.EventsRejected.WithLabelValues(reason).Inc()
}

// RecordEventDeduped increments the deduped events counter.
func RecordEventDeduped() {
	DefaultMetrics.EventsDeduped.Inc()
}

// RecordRegistration records a cluster registration.
func RecordRegistration(whaleHit bool) {
	DefaultMetrics.Registrations.Inc()
	if whaleHit {
		DefaultMetrics.WhaleHits.Inc()
	}
}

// UpdateClustersLive updates the live clusters gauge.
func UpdateClustersLive(n int) {
	DefaultMetrics.ClustersLive.Set(float64(n))
}

// RecordEvictions adds to the sweeper eviction counter.
func RecordEvictions(n int) {
	DefaultMetrics.SweepEvicted.Add(float64(n))
}

// RecordWinnersQuery increments the winners query counter.
func RecordWinnersQuery() {
	DefaultMetrics.WinnersQueries.Inc()
}

// RecordStoreQuery records storage query metrics.
func RecordStoreQuery(backend, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(backend, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.StoreErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordNotification records a notification send attempt.
func RecordNotification(kind string, err error) {
	if err != nil {
		DefaultMetrics.NotificationsFailed.Inc()
		return
	}
	DefaultMetrics.NotificationsSent.WithLabelValues(kind).Inc()
}
