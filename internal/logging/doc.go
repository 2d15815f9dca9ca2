// Package logging assembles structured slog loggers for the briefings daemon
// and CLI.
//
// It owns the console and JSON handlers, fans daemon output to the terminal
// and a JSON log file, and exposes context-aware helpers so production code
// tags log lines with job IDs, series IDs, stages, and correlation IDs. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
