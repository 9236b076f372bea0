// Package log provides the logging interface shared by clientpool packages.
//
// Overview:
//   - Responsibility: Define a small structured logging contract
//   - Key Types: Logger interface, key-value pair helpers, Nop logger
//   - Concurrency Model: Logger implementations must be safe for concurrent use
//   - Error Semantics: Error method takes the error as its first parameter
//   - Performance Notes: Nop discards everything without allocating
//
// Usage:
//
//	logger.Info("client constructed", log.Str("identity", id.String()), log.Int("pool_size", n))
package log

import "time"

// Logger defines a structured logging interface compatible with slog concepts.
// Implementations must be safe for concurrent use.
type Logger interface {
	// With returns a Logger that carries the given key-value pairs on every entry.
	With(kv ...any) Logger

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, kv ...any)

	// Info logs an informational message with optional key-value pairs.
	Info(msg string, kv ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, kv ...any)

	// Error logs an error message. The error comes first so implementations
	// can render it as a dedicated field.
	Error(err error, msg string, kv ...any)
}

// Str creates a string key-value pair.
func Str(k, v string) any {
	return []any{k, v}
}

// Int creates an integer key-value pair.
func Int(k string, v int) any {
	return []any{k, v}
}

// Bool creates a boolean key-value pair.
func Bool(k string, v bool) any {
	return []any{k, v}
}

// Dur creates a duration key-value pair.
func Dur(k string, v time.Duration) any {
	return []any{k, v}
}

// Nop returns a Logger that discards every entry.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) With(...any) Logger          { return nopLogger{} }
func (nopLogger) Debug(string, ...any)        {}
func (nopLogger) Info(string, ...any)         {}
func (nopLogger) Warn(string, ...any)         {}
func (nopLogger) Error(error, string, ...any) {}
