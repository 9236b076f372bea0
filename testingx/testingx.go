// Package testingx provides testing utilities for clientpool packages.
//
// Overview:
//   - Responsibility: Testing helpers, mocks, and fixtures
//   - Key Types: MockLogger, RoundTripFunc, RecordingTransport, StaticSelector
//   - Concurrency Model: Thread-safe where needed
//   - Error Semantics: Test failures via testing.T
//   - Performance Notes: Optimized for test execution
//
// Usage:
//
//	logger := testingx.NewMockLogger(t)
//	rt := testingx.NewRecordingTransport(func(req *http.Request) (*http.Response, error) { ... })
//	target := testingx.MustParseURL(t, "https://api.example.com")
package testingx

import (
	"net/url"
	"sync"
	"testing"

	"go.eggybyte.com/clientpool/core/errors"
	"go.eggybyte.com/clientpool/core/log"
)

// MockLogger is a mock logger for testing.
// Loggers derived through With share the parent's entry list.
type MockLogger struct {
	t      *testing.T
	sink   *entrySink
	fields []any
}

type entrySink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry represents a single log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any // Flattened key-value pairs, With fields first
	Error   error
}

// Field returns the value logged under key.
func (e LogEntry) Field(key string) (any, bool) {
	for i := 0; i+1 < len(e.Fields); i += 2 {
		if k, ok := e.Fields[i].(string); ok && k == key {
			return e.Fields[i+1], true
		}
	}
	return nil, false
}

// NewMockLogger creates a new mock logger.
func NewMockLogger(t *testing.T) *MockLogger {
	return &MockLogger{t: t, sink: &entrySink{}}
}

// With returns a logger that adds kv to every entry.
func (m *MockLogger) With(kv ...any) log.Logger {
	fields := make([]any, 0, len(m.fields)+len(kv))
	fields = append(fields, m.fields...)
	fields = append(fields, flatten(kv)...)
	return &MockLogger{t: m.t, sink: m.sink, fields: fields}
}

// Debug logs a debug message.
func (m *MockLogger) Debug(msg string, kv ...any) {
	m.log("DEBUG", msg, nil, kv)
}

// Info logs an info message.
func (m *MockLogger) Info(msg string, kv ...any) {
	m.log("INFO", msg, nil, kv)
}

// Warn logs a warning message.
func (m *MockLogger) Warn(msg string, kv ...any) {
	m.log("WARN", msg, nil, kv)
}

// Error logs an error message.
func (m *MockLogger) Error(err error, msg string, kv ...any) {
	m.log("ERROR", msg, err, kv)
}

// log stores a log entry.
func (m *MockLogger) log(level, msg string, err error, kv []any) {
	fields := make([]any, 0, len(m.fields)+len(kv))
	fields = append(fields, m.fields...)
	fields = append(fields, flatten(kv)...)

	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = append(m.sink.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   err,
	})
}

// flatten expands pairs built by log.Str and friends.
func flatten(kv []any) []any {
	out := make([]any, 0, len(kv))
	for _, item := range kv {
		if pair, ok := item.([]any); ok && len(pair) == 2 {
			out = append(out, pair...)
			continue
		}
		out = append(out, item)
	}
	return out
}

// Entries returns all log entries.
func (m *MockLogger) Entries() []LogEntry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	entries := make([]LogEntry, len(m.sink.entries))
	copy(entries, m.sink.entries)
	return entries
}

// Count returns the number of entries at level.
func (m *MockLogger) Count(level string) int {
	n := 0
	for _, e := range m.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// AssertLogged asserts that a message was logged and returns the first match.
func (m *MockLogger) AssertLogged(level, msg string) LogEntry {
	m.t.Helper()
	for _, entry := range m.Entries() {
		if entry.Level == level && entry.Message == msg {
			return entry
		}
	}
	m.t.Errorf("Expected log message not found: level=%s msg=%q", level, msg)
	return LogEntry{}
}

// Clear clears all log entries.
func (m *MockLogger) Clear() {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	m.sink.entries = nil
}

// AssertError asserts that an error has the expected code.
func AssertError(t *testing.T, err error, expectedCode errors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error with code %s, got nil", expectedCode)
	}

	code := errors.CodeOf(err)
	if code != expectedCode {
		t.Errorf("Expected error code %s, got %s", expectedCode, code)
	}
}

// AssertNoError asserts that no error occurred.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// MustParseURL parses raw or fails the test.
func MustParseURL(t testing.TB, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}
