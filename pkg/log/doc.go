/*
Package log provides the process-wide structured logger used by every other
package, wrapping zerolog with a small set of corpus-engine-specific helpers.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	log.Info("annisgo starting")

	planner := log.Component("planner")
	planner.Debug().Str("corpus", name).Msg("join order selected")

	corpusLog := log.WithCorpus("pcc2")
	corpusLog.Warn().Msg("cache entry evicted under byte budget")

	queryLog := log.WithQuery(queryID)
	queryLog.Error().Err(err).Msg("query timed out")

# Context Loggers

  - Component(name): tags every package's logger with "component" (aql,
    planner, corpus, exec, ...), the one used throughout this codebase.
  - WithCorpus(name): tags logs with the corpus a cache/lock/WAL operation
    concerns.
  - WithQuery(id): tags logs with a query handle for a single
    Count/Find/Subgraph call's lifetime.

# Output

JSONOutput selects between JSON (production, one object per line with a
timestamp field) and zerolog's ConsoleWriter (development, human-readable
with RFC3339 timestamps). Output defaults to stdout; log rotation and
aggregation are left to external tools (logrotate, the container runtime's
log driver, or a sidecar shipper) — this package has no rotation logic of
its own.
*/
package log
