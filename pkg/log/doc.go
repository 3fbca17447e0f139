/*
Package log provides structured logging for docql using zerolog.

The log package wraps zerolog to provide JSON or console structured
logging with a single global logger plus helpers for attaching
request-scoped context (query id, database, table) to child loggers.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	log.Info("server starting")

	qlog := log.WithQueryID(queryID)
	qlog.Info().Str("kind", "Filter").Msg("query accepted")

# Context loggers

  - WithComponent: tag logs with a subsystem name ("parser", "planner", "eval")
  - WithQueryID: tag logs with the request's correlation id
  - WithDatabase / WithTable: tag logs with the target namespace

Fatal logs exit the process (os.Exit(1) via zerolog) and should only be
used for unrecoverable startup failures in cmd/docql.
*/
package log
