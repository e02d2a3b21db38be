/*
Package metrics provides Prometheus metrics collection and exposition for the
corpus manager and query engine.

All metrics are package-level collectors registered once at init(); callers
update them directly from the code path they instrument rather than through
a polling collector, since the query engine has no separate control-plane
process to poll.

# Metrics Catalog

annisgo_corpora_loaded:
  - Type: Gauge
  - Description: Number of corpora currently resident in the manager cache

annisgo_cache_evictions_total:
  - Type: Counter
  - Description: Total number of corpus cache entries evicted under the
    manager's memory budget

annisgo_query_duration_seconds{operation}:
  - Type: Histogram
  - Description: Query execution duration in seconds
  - Labels: operation (count, find, frequency, subgraph)

annisgo_query_errors_total{operation,kind}:
  - Type: Counter
  - Description: Total query errors
  - Labels: operation, kind (the error taxonomy name, e.g. AQLSyntaxError)

annisgo_wal_persist_duration_seconds:
  - Type: Histogram
  - Description: Time to durably persist the update log via rename-into-place

annisgo_planner_cache_hits_total / annisgo_planner_cache_misses_total:
  - Type: Counter
  - Description: Plan cache hit/miss counts

annisgo_graphstorage_impl_total{impl}:
  - Type: Gauge vector
  - Description: Number of components currently using each graph storage
    implementation (adjacencylist, transitiveclosure, linear, prepostorder)

# Usage

	timer := metrics.NewTimer()
	count, err := store.Count(ctx, corpus, query)
	timer.ObserveDurationVec(metrics.QueryDuration, "count")
	if err != nil {
		metrics.QueryErrorsTotal.WithLabelValues("count", errorKind(err)).Inc()
	}

	http.Handle("/metrics", metrics.Handler())

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration so a naming collision fails fast at process start.

Label Discipline:
  - Labels are bounded: operation names, error-kind names, implementation
    names. Corpus names and node IDs are never used as labels.
*/
package metrics
