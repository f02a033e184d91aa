// Package oteladapters provides OpenTelemetry implementations of the contention observability interfaces.
//
// Wire them into a Coordinator with the usual options:
//
//	coordinator, err := contention.NewCoordinator(pool, eventLog,
//		contention.WithContextualLogger(oteladapters.NewSlogBridgeLogger("contention-lab", nil)),
//		contention.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("contention-lab"))),
//		contention.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("contention-lab"))),
//	)
//
// Run spans are started on the caller's context, so logs and metrics recorded with the
// contextual variants are correlated with the run's trace.
package oteladapters
