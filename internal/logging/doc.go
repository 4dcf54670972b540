// Package logging assembles structured slog loggers and formatting helpers used
// across clipkeeper.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context helpers so upload and server code can tag log
// lines with queue item IDs and request correlation IDs. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
