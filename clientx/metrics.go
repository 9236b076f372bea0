package clientx

import (
	"context"
	"errors"
	"strings"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.eggybyte.com/clientpool/obsx"
)

const meterName = "go.eggybyte.com/clientpool/clientx"

// Lookup results and construction outcomes recorded by Metrics.
const (
	resultHit  = "hit"
	resultMiss = "miss"

	outcomeStored    = "stored"
	outcomeDiscarded = "discarded"
	outcomeFailed    = "failed"
)

// Metrics holds OpenTelemetry instruments for the registry and for Connect
// clients built on pooled handles. A nil *Metrics records nothing.
type Metrics struct {
	lookups         metric.Int64Counter
	constructions   metric.Int64Counter
	clients         metric.Int64UpDownCounter
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on provider's meter.
// A nil provider returns nil metrics, which disables recording.
//
// Parameters:
//   - provider: OpenTelemetry provider (can be nil to disable metrics)
//
// Returns:
//   - *Metrics: metrics instance, nil when disabled
//   - error: instrument creation error
//
// Concurrency:
//   - Safe for concurrent use after initialization
func NewMetrics(provider *obsx.Provider) (*Metrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.lookups, err = meter.Int64Counter(
		"clientx_registry_lookups_total",
		metric.WithDescription("Registry lookups by result"),
	); err != nil {
		return nil, err
	}

	if m.constructions, err = meter.Int64Counter(
		"clientx_registry_constructions_total",
		metric.WithDescription("Factory invocations by outcome"),
	); err != nil {
		return nil, err
	}

	if m.clients, err = meter.Int64UpDownCounter(
		"clientx_registry_clients",
		metric.WithDescription("Client handles currently cached"),
	); err != nil {
		return nil, err
	}

	if m.requestsTotal, err = meter.Int64Counter(
		"rpc_client_requests_total",
		metric.WithDescription("Total number of client RPC requests"),
	); err != nil {
		return nil, err
	}

	if m.requestDuration, err = meter.Float64Histogram(
		"rpc_client_request_duration_seconds",
		metric.WithDescription("Client RPC request duration in seconds"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10,
		),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) recordLookup(hit bool) {
	if m == nil {
		return
	}
	result := resultMiss
	if hit {
		result = resultHit
	}
	m.lookups.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) recordConstruction(outcome string) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.constructions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome == outcomeStored {
		m.clients.Add(ctx, 1)
	}
}

// ClientMetricsInterceptor creates a Connect client interceptor that records
// request count and duration for every outbound unary call.
//
// Labels:
//   - rpc_service: target service name
//   - rpc_method: target method name
//   - rpc_code: Connect error code, "ok" on success
//
// A nil metrics value yields a pass-through interceptor.
func ClientMetricsInterceptor(m *Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if m == nil {
				return next(ctx, req)
			}

			start := time.Now()
			service, method := parseClientProcedure(req.Spec().Procedure)

			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				} else {
					code = "unknown"
				}
			}

			attrs := []attribute.KeyValue{
				attribute.String("rpc_service", service),
				attribute.String("rpc_method", method),
				attribute.String("rpc_code", code),
			}
			m.requestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

			if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
				attrs = append(attrs, attribute.String("trace_id", span.SpanContext().TraceID().String()))
			}
			m.requestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))

			return resp, err
		}
	}
}

// parseClientProcedure splits a Connect procedure into service and method names.
func parseClientProcedure(procedure string) (service, method string) {
	procedure = strings.TrimPrefix(procedure, "/")
	lastSlash := strings.LastIndex(procedure, "/")
	if lastSlash == -1 {
		return "", procedure
	}
	return procedure[:lastSlash], procedure[lastSlash+1:]
}
