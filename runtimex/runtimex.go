// Package runtimex runs health and metrics endpoints for the lifetime of a context.
//
// Overview:
//   - Responsibility: Bind, serve and gracefully shut down auxiliary HTTP endpoints
//   - Key Types: Options for configuration, Endpoint for address binding, HealthChecker
//   - Concurrency Model: Endpoints are served concurrently; Run blocks the caller
//   - Error Semantics: Run returns bind, serve and shutdown failures as coded errors
//   - Performance Notes: Health checks run on request, never in the background
//
// Usage:
//
//	err := runtimex.Run(ctx, runtimex.Options{
//	  Logger:         logger,
//	  Metrics:        &runtimex.Endpoint{Addr: ":9091"},
//	  MetricsHandler: provider.PrometheusHandler(),
//	  Health:         &runtimex.Endpoint{Addr: ":8081"},
//	})
package runtimex

import (
	"context"
	"net"
	"net/http"
	"time"

	"go.eggybyte.com/clientpool/core/errors"
	"go.eggybyte.com/clientpool/core/log"
	"go.eggybyte.com/clientpool/runtimex/internal"
)

const (
	// MetricsPath is where the metrics handler is mounted.
	MetricsPath = "/metrics"
	// HealthPath is where the health handler is mounted.
	HealthPath = "/health"
)

// HealthChecker defines the interface for health checks.
type HealthChecker = internal.HealthChecker

// HealthCheckFunc adapts a named function to HealthChecker.
type HealthCheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

// Name implements HealthChecker.
func (f HealthCheckFunc) Name() string { return f.CheckName }

// Check implements HealthChecker.
func (f HealthCheckFunc) Check(ctx context.Context) error { return f.Fn(ctx) }

// Endpoint represents a network endpoint with an address.
type Endpoint struct {
	Addr     string       // Network address (e.g., ":8081", "localhost:9091")
	Listener net.Listener // Pre-bound listener, takes precedence over Addr
}

// Options holds configuration for the runtime.
type Options struct {
	Logger          log.Logger      // Logger for runtime operations (can be nil)
	Metrics         *Endpoint       // Metrics endpoint
	MetricsHandler  http.Handler    // Served on MetricsPath (required with Metrics)
	Health          *Endpoint       // Health endpoint
	HealthCheckers  []HealthChecker // Checks run on every health request
	HealthTimeout   time.Duration   // Budget for all checks of one request (default 2s)
	ShutdownTimeout time.Duration   // Graceful shutdown timeout (default 15s)

	// Ready is called with the bound address of each endpoint once it listens.
	Ready func(name string, addr net.Addr)
}

// Run serves the configured endpoints until ctx is cancelled or a server
// fails, then shuts them down. With no endpoints configured it returns at once.
//
// Parameters:
//   - ctx: lifetime of the endpoints
//   - opts: endpoint configuration
//
// Returns:
//   - error: CodeInvalidArgument for bad options, CodeUnavailable for bind or
//     serve failures, CodeInternal for shutdown failures
func Run(ctx context.Context, opts Options) error {
	const op = "runtimex.Run"

	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 15 * time.Second
	}
	healthTimeout := opts.HealthTimeout
	if healthTimeout == 0 {
		healthTimeout = 2 * time.Second
	}

	var servers []internal.Server
	if opts.Metrics != nil {
		if opts.MetricsHandler == nil {
			return errors.New(errors.CodeInvalidArgument, op, "metrics endpoint requires a handler")
		}
		mux := http.NewServeMux()
		mux.Handle(MetricsPath, opts.MetricsHandler)
		servers = append(servers, internal.Server{
			Name: "metrics", Addr: opts.Metrics.Addr, Listener: opts.Metrics.Listener, Handler: mux,
		})
	}
	if opts.Health != nil {
		mux := http.NewServeMux()
		mux.Handle(HealthPath, internal.HealthHandler(opts.HealthCheckers, healthTimeout))
		servers = append(servers, internal.Server{
			Name: "health", Addr: opts.Health.Addr, Listener: opts.Health.Listener, Handler: mux,
		})
	}
	if len(servers) == 0 {
		return nil
	}

	runtime := internal.NewRuntime(logger, shutdownTimeout, opts.Ready)
	if err := runtime.Start(servers); err != nil {
		return errors.Wrap(errors.CodeUnavailable, op, err)
	}

	waitErr := runtime.Wait(ctx)
	if err := runtime.Stop(context.Background()); err != nil {
		return errors.Wrap(errors.CodeInternal, op, err)
	}
	if waitErr != nil {
		return errors.Wrap(errors.CodeUnavailable, op, waitErr)
	}
	return nil
}
