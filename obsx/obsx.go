// Package obsx provides Prometheus-based metrics collection.
//
// Overview:
//   - Responsibility: Bootstrap an OpenTelemetry meter provider with Prometheus export
//   - Key Types: Options for configuration, Provider for managing lifecycle
//   - Concurrency Model: Provider is safe for concurrent use
//   - Error Semantics: NewProvider returns error for initialization failures
//   - Performance Notes: Instruments are aggregated in memory and read on scrape
//
// Usage:
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{ServiceName: "clientpool"})
//	if err != nil {
//	    return err
//	}
//	defer provider.Shutdown(ctx)
//	mux.Handle("/metrics", provider.PrometheusHandler())
package obsx

import (
	"context"
	"net/http"

	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"go.eggybyte.com/clientpool/obsx/internal"
)

// Options holds configuration for the metrics provider.
type Options struct {
	ServiceName    string            // Service name for metrics (required)
	ServiceVersion string            // Service version
	ResourceAttrs  map[string]string // Additional resource attributes
	SetGlobal      bool              // Install as the otel global meter provider
}

// Provider manages OpenTelemetry metrics provider with Prometheus export.
// The provider must be shut down when no longer needed.
type Provider struct {
	impl *internal.Provider
}

// NewProvider creates a new metrics provider with Prometheus export.
//
// Parameters:
//   - ctx: context for provider initialization
//   - opts: provider configuration options
//
// Returns:
//   - *Provider: initialized provider instance
//   - error: initialization error, including a missing service name
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	impl, err := internal.NewProvider(ctx, internal.ProviderOptions{
		ServiceName:    opts.ServiceName,
		ServiceVersion: opts.ServiceVersion,
		ResourceAttrs:  opts.ResourceAttrs,
		SetGlobal:      opts.SetGlobal,
	})
	if err != nil {
		return nil, err
	}

	return &Provider{impl: impl}, nil
}

// MeterProvider returns the OpenTelemetry meter provider.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.impl.MeterProvider
}

// Meter returns an OpenTelemetry Meter for creating instruments.
func (p *Provider) Meter(name string) api.Meter {
	return p.impl.MeterProvider.Meter(name)
}

// PrometheusHandler returns an HTTP handler serving the provider's metrics
// in Prometheus text format at any path.
func (p *Provider) PrometheusHandler() http.Handler {
	return p.impl.GetPrometheusHandler()
}

// EnableRuntimeMetrics registers goroutine, heap and GC gauges.
func (p *Provider) EnableRuntimeMetrics(ctx context.Context) error {
	return internal.EnableRuntimeMetrics(ctx, p.impl.MeterProvider)
}

// Shutdown flushes and stops the provider. Safe to call more than once.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.impl.Shutdown(ctx)
}
