package internal

import (
	"context"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// EnableRuntimeMetrics registers observable gauges for the Go runtime.
//
// Metrics collected:
//   - process_runtime_go_goroutines: Current number of goroutines
//   - process_runtime_go_gc_count_total: Total number of GC cycles
//   - process_runtime_go_memory_heap_bytes: Heap memory in bytes
//
// Values are read on scrape.
func EnableRuntimeMetrics(ctx context.Context, meterProvider *sdkmetric.MeterProvider) error {
	if meterProvider == nil {
		return fmt.Errorf("meter provider is nil")
	}
	meter := meterProvider.Meter("go.eggybyte.com/clientpool/obsx/runtime")

	goroutines, err := meter.Int64ObservableGauge(
		"process_runtime_go_goroutines",
		metric.WithDescription("Number of goroutines that currently exist"),
	)
	if err != nil {
		return err
	}

	heapBytes, err := meter.Int64ObservableGauge(
		"process_runtime_go_memory_heap_bytes",
		metric.WithDescription("Heap memory in bytes"),
	)
	if err != nil {
		return err
	}

	gcCount, err := meter.Int64ObservableCounter(
		"process_runtime_go_gc_count_total",
		metric.WithDescription("Total number of GC cycles completed"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			observer.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
			observer.ObserveInt64(heapBytes, int64(m.HeapAlloc))
			observer.ObserveInt64(gcCount, int64(m.NumGC))
			return nil
		},
		goroutines,
		heapBytes,
		gcCount,
	)

	return err
}
