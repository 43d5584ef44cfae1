// Package logging assembles structured slog loggers for the pipeline CLI and
// the project engine.
//
// It owns the console and JSON handlers, the fan-out that mirrors CLI output
// into a project's .pipeline/log.log, session tagging, and the WarnWithContext
// helpers that the engine uses to report soft failures. NewNop provides a
// logger for tests and wiring code that cannot fail.
package logging
