// Package obsx exposes OpenTelemetry metrics through a Prometheus endpoint.
//
// # Overview
//
// obsx constructs an OpenTelemetry meter provider whose only reader is a
// Prometheus exporter with a private registry. Components create their own
// instruments from Provider.Meter; the CLI serves Provider.PrometheusHandler.
//
// # Features
//
//   - Meter provider with Prometheus export only (no remote push)
//   - Optional Go runtime gauges (goroutines, heap, GC)
//   - Idempotent shutdown with a bounded timeout
//
// # Usage
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{ServiceName: "clientpool"})
//	if err != nil { return err }
//	defer provider.Shutdown(ctx)
//
//	metrics, _ := clientx.NewMetrics(provider)
//	registry := clientx.New(clientx.WithMetrics(metrics))
//	http.Handle("/metrics", provider.PrometheusHandler())
package obsx
