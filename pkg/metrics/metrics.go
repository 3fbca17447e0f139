package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// QueriesTotal counts completed queries by the top-level plan node
	// kind (e.g. "ScanTable", "Insert") and outcome ("ok" or an
	// eval.Kind/parser.Kind/plan.Kind error name).
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docql_queries_total",
			Help: "Total number of queries processed by term kind and status",
		},
		[]string{"term_kind", "status"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docql_query_duration_seconds",
			Help:    "Query handling duration in seconds by term kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"term_kind"},
	)

	StorageOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docql_storage_op_duration_seconds",
			Help:    "Storage operation duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	StorageRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "docql_storage_retries_total",
			Help: "Total number of storage operations retried after a retryable error",
		},
	)

	CursorBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docql_cursor_batch_size",
			Help:    "Requested cursor batch size per segment",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docql_active_connections",
			Help: "Number of currently open client connections",
		},
	)

	DatabasesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docql_databases_total",
			Help: "Total number of databases",
		},
	)

	TablesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "docql_tables_total",
			Help: "Total number of tables across all databases",
		},
	)
)

func init() {
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(StorageOpDuration)
	prometheus.MustRegister(StorageRetriesTotal)
	prometheus.MustRegister(CursorBatchSize)
	prometheus.MustRegister(ActiveConnections)
	prometheus.MustRegister(DatabasesTotal)
	prometheus.MustRegister(TablesTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
