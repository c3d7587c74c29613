// Package logging assembles structured slog loggers and formatting helpers used
// across annotcore.
//
// It owns the console and JSON handlers, routes records to stderr plus a dated
// JSON log file, prunes old log files, and exposes context-aware helpers so
// datastore and batch code tag lines with annotation, speaker, level and
// correlation IDs. A no-op logger serves tests and wiring code that cannot fail.
package logging
