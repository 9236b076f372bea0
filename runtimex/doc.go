// Package runtimex serves auxiliary endpoints next to a long-running command.
//
// # Overview
//
// runtimex binds a metrics endpoint and a health endpoint, serves them until
// the caller's context ends and shuts them down within a timeout. Binding
// happens before serving so an unusable address is reported immediately.
//
// # Usage
//
//	err := runtimex.Run(ctx, runtimex.Options{
//		Logger:         logger,
//		Metrics:        &runtimex.Endpoint{Addr: ":9091"},
//		MetricsHandler: provider.PrometheusHandler(),
//		Health:         &runtimex.Endpoint{Addr: ":8081"},
//		HealthCheckers: []runtimex.HealthChecker{checker},
//	})
//
// # Layer
//
// runtimex depends on core/log and core/errors.
package runtimex
