// Package logging builds the slog loggers used across the daemon and CLI,
// with JSON and console handlers, standardized field names, and helpers for
// deriving request/stage/worker attributes from context.
package logging
