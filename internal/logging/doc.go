// Package logging builds slog loggers for the daemon and CLI. It supports a
// human-oriented console format and machine-readable JSON, writing to stdout
// and optionally to the configured log file.
package logging
