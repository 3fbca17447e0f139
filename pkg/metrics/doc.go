/*
Package metrics provides Prometheus metrics collection and exposition for docql.

The metrics package defines and registers all docql metrics using the
Prometheus client library, providing observability into query volume,
query and storage latency, cursor pagination behavior, and the number
of databases and tables currently stored. Metrics are exposed over
HTTP for scraping by Prometheus servers, the same way the teacher
exposed its cluster metrics.

# Metrics Catalog

docql_queries_total{term_kind, status}:
  - Type: Counter
  - Description: Total queries processed by term kind (e.g. "ScanTable",
    "Insert") and outcome ("ok" or an error Kind name)
  - Example: docql_queries_total{term_kind="Filter",status="ok"} 1204

docql_query_duration_seconds{term_kind}:
  - Type: Histogram
  - Description: Query handling duration in seconds by term kind

docql_storage_op_duration_seconds{op}:
  - Type: Histogram
  - Description: Storage operation duration in seconds by operation
    (scan/get/put/delete)

docql_storage_retries_total:
  - Type: Counter
  - Description: Total storage operations retried after a retryable error

docql_cursor_batch_size:
  - Type: Histogram
  - Description: Requested cursor batch size per segment

docql_active_connections:
  - Type: Gauge
  - Description: Number of currently open client connections

docql_databases_total / docql_tables_total:
  - Type: Gauge
  - Description: Current database/table counts, sampled periodically by
    a Collector (collector.go)

# Usage

	timer := metrics.NewTimer()
	// ... evaluate query ...
	timer.ObserveDurationVec(metrics.QueryDuration, termKind)
	metrics.QueriesTotal.WithLabelValues(termKind, status).Inc()

	http.Handle("/metrics", metrics.Handler())
	http.ListenAndServe(":9090", nil)

# Health and readiness

health.go implements the same HealthChecker/HealthHandler/ReadyHandler/
LivenessHandler shape as the teacher's package, with "storage" and
"server" as the critical components readiness depends on, in place of
the teacher's "raft"/"containerd"/"api".

# Integration points

  - pkg/server: increments docql_active_connections, records
    docql_queries_total/docql_query_duration_seconds per request
  - pkg/eval: records docql_storage_op_duration_seconds and
    docql_storage_retries_total around each storage call
  - Collector: samples docql_databases_total/docql_tables_total
*/
package metrics
