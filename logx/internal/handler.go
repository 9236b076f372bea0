// Package internal provides the slog handlers behind logx.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Options configures handler output.
type Options struct {
	Level            slog.Level // Minimum log level
	PayloadMaxBytes  int        // Maximum bytes printed for a string value (0 = unlimited)
	SensitiveFields  []string   // Field names whose values are masked
	DisableTimestamp bool       // Omit the time field
}

const redacted = "***REDACTED***"

// Handler is a slog.Handler that writes logfmt lines with fields sorted by key.
type Handler struct {
	opts   Options
	mu     *sync.Mutex
	writer io.Writer
	attrs  []slog.Attr
}

// NewHandler creates a logfmt Handler writing to w.
func NewHandler(opts Options, w io.Writer) *Handler {
	return &Handler{
		opts:   opts,
		mu:     &sync.Mutex{},
		writer: w,
	}
}

// Enabled reports whether records at level are written.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// Handle formats and writes one record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, a)
		return true
	})

	var buf strings.Builder
	if !h.opts.DisableTimestamp && !r.Time.IsZero() {
		buf.WriteString("time=")
		buf.WriteString(r.Time.Format(time.RFC3339))
		buf.WriteByte(' ')
	}
	buf.WriteString("level=")
	buf.WriteString(r.Level.String())
	buf.WriteString(" msg=")
	buf.WriteString(strconv.Quote(r.Message))

	for _, attr := range SortAttrs(all) {
		buf.WriteByte(' ')
		buf.WriteString(attr.Key)
		buf.WriteByte('=')
		buf.WriteString(FormatValue(attr.Key, attr.Value, h.opts))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, buf.String())
	return err
}

// WithAttrs returns a Handler that prepends attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{opts: h.opts, mu: h.mu, writer: h.writer, attrs: merged}
}

// WithGroup is a no-op: logfmt output stays flat.
func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

// ReplaceAttr returns a slog.HandlerOptions.ReplaceAttr that applies the same
// masking and truncation rules the logfmt Handler uses.
func ReplaceAttr(opts Options) func(groups []string, a slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		if opts.DisableTimestamp && a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		if isSensitive(a.Key, opts.SensitiveFields) {
			return slog.String(a.Key, redacted)
		}
		if a.Value.Kind() == slog.KindString {
			return slog.String(a.Key, truncate(a.Value.String(), opts.PayloadMaxBytes))
		}
		return a
	}
}

// KVToAttrs converts key-value pairs to attributes. Pairs built with the
// core/log helpers arrive as two-element []any values and are flattened.
func KVToAttrs(kv []any) []slog.Attr {
	flat := make([]any, 0, len(kv))
	for _, item := range kv {
		if pair, ok := item.([]any); ok && len(pair) == 2 {
			flat = append(flat, pair[0], pair[1])
			continue
		}
		flat = append(flat, item)
	}

	attrs := make([]slog.Attr, 0, len(flat)/2)
	for i := 0; i < len(flat)-1; i += 2 {
		attrs = append(attrs, slog.Any(fmt.Sprint(flat[i]), flat[i+1]))
	}
	return attrs
}

// SortAttrs returns a copy of attrs sorted by key.
func SortAttrs(attrs []slog.Attr) []slog.Attr {
	sorted := make([]slog.Attr, len(attrs))
	copy(sorted, attrs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}

// FormatValue renders one value for logfmt output.
func FormatValue(key string, v slog.Value, opts Options) string {
	if isSensitive(key, opts.SensitiveFields) {
		return strconv.Quote(redacted)
	}

	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return strconv.Quote(truncate(v.String(), opts.PayloadMaxBytes))
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		// Milliseconds
		return strconv.FormatInt(v.Duration().Milliseconds(), 10)
	case slog.KindTime:
		return strconv.Quote(v.Time().Format(time.RFC3339))
	default:
		if err, ok := v.Any().(error); ok {
			return strconv.Quote(err.Error())
		}
		return strconv.Quote(v.String())
	}
}

func isSensitive(key string, fields []string) bool {
	for _, field := range fields {
		if strings.EqualFold(key, field) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...(truncated, %d bytes)", s[:max], len(s))
}
