package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.eggybyte.com/clientpool/core/log"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithTimestamp(false))

	logger.Info("client constructed", "identity", "00ff")

	output := buf.String()
	if !strings.Contains(output, "level=INFO") {
		t.Errorf("expected level=INFO, got: %s", output)
	}
	if !strings.Contains(output, `msg="client constructed"`) {
		t.Errorf("expected msg in output, got: %s", output)
	}
	if !strings.Contains(output, `identity="00ff"`) {
		t.Errorf("expected identity=\"00ff\" in output, got: %s", output)
	}
	if strings.Contains(output, "time=") {
		t.Errorf("timestamp should be disabled, got: %s", output)
	}
}

func TestFieldSorting(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithTimestamp(false))

	logger.Info("test", "zebra", "z", "alpha", "a", "beta", "b")

	output := buf.String()
	alphaPos := strings.Index(output, `alpha="a"`)
	betaPos := strings.Index(output, `beta="b"`)
	zebraPos := strings.Index(output, `zebra="z"`)

	if alphaPos == -1 || betaPos == -1 || zebraPos == -1 {
		t.Fatalf("missing fields in output: %s", output)
	}
	if alphaPos > betaPos || betaPos > zebraPos {
		t.Errorf("fields not sorted: %s", output)
	}
}

func TestPairHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithTimestamp(false))

	logger.Info("pair", log.Str("route", "direct https://a:443"), log.Int("pool_size", 3), log.Bool("shared", true))

	output := buf.String()
	for _, want := range []string{`route="direct https://a:443"`, "pool_size=3", "shared=true"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithSensitiveFields("proxy_auth"))

	logger.Info("proxy configured", "proxy_auth", "secret123")

	output := buf.String()
	if strings.Contains(output, "secret123") {
		t.Errorf("sensitive field not redacted: %s", output)
	}
	if !strings.Contains(output, "REDACTED") {
		t.Errorf("expected REDACTED in output: %s", output)
	}
}

func TestPayloadLimit(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithPayloadLimit(10))

	longString := strings.Repeat("a", 100)
	logger.Info("test", "data", longString)

	output := buf.String()
	if strings.Contains(output, longString) {
		t.Errorf("long payload not truncated: %s", output)
	}
	if !strings.Contains(output, "truncated") {
		t.Errorf("expected truncation marker in output: %s", output)
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf))

	child := logger.With("component", "clientx")
	child.Info("message", "key", "value")

	output := buf.String()
	if !strings.Contains(output, `component="clientx"`) {
		t.Errorf("expected component in output: %s", output)
	}
	if !strings.Contains(output, `key="value"`) {
		t.Errorf("expected key in output: %s", output)
	}
}

func TestErrorLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf))

	logger.Error(errors.New("unsupported proxy scheme"), "client construction failed", "op", "GetClient")

	output := buf.String()
	if !strings.Contains(output, "level=ERROR") {
		t.Errorf("expected level=ERROR in output: %s", output)
	}
	if !strings.Contains(output, `error="unsupported proxy scheme"`) {
		t.Errorf("expected error field in output: %s", output)
	}
	if !strings.Contains(output, `op="GetClient"`) {
		t.Errorf("expected op field in output: %s", output)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithWriter(&buf), WithFormat(FormatJSON), WithTimestamp(false), WithSensitiveFields("token"))

	logger.Warn("duplicate discarded", "identity", "00ff", "token", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["identity"] != "00ff" {
		t.Errorf("identity = %v, want 00ff", entry["identity"])
	}
	if entry["token"] != "***REDACTED***" {
		t.Errorf("token = %v, want redacted", entry["token"])
	}
	if _, ok := entry["time"]; ok {
		t.Error("time should be omitted")
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel slog.Level
		logFunc  func(logger log.Logger)
		expected string
	}{
		{"debug disabled at info level", slog.LevelInfo, func(l log.Logger) { l.Debug("debug msg") }, ""},
		{"debug enabled at debug level", slog.LevelDebug, func(l log.Logger) { l.Debug("debug msg") }, "level=DEBUG"},
		{"warn enabled at info level", slog.LevelInfo, func(l log.Logger) { l.Warn("warn msg") }, "level=WARN"},
		{"info disabled at error level", slog.LevelError, func(l log.Logger) { l.Info("info msg") }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(WithWriter(&buf), WithLevel(tt.logLevel))

			tt.logFunc(logger)

			output := buf.String()
			if tt.expected == "" {
				if output != "" {
					t.Errorf("expected no output, got: %s", output)
				}
			} else if !strings.Contains(output, tt.expected) {
				t.Errorf("expected %q in output, got: %s", tt.expected, output)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func BenchmarkLogger(b *testing.B) {
	logger := New(WithWriter(&bytes.Buffer{}))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark", "iteration", i)
	}
}
