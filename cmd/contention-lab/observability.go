package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/AntonStoeckl/contention-lab/config"
	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/contention/oteladapters"
)

const (
	serviceName    = "contention-lab"
	serviceVersion = "dev"
)

// ObservabilityConfig holds the observability adapters handed to the Coordinator.
type ObservabilityConfig struct {
	Logger           contention.Logger
	ContextualLogger contention.ContextualLogger
	MetricsCollector contention.MetricsCollector
	TracingCollector contention.TracingCollector
	slogger          *slog.Logger
	providers        *config.ObservabilityProviders
}

// NewObservabilityConfig always provides a slog logger writing to w. With observability enabled it
// adds OpenTelemetry tracing (spans exported to w), metrics and trace-correlated logging.
func (c Config) NewObservabilityConfig(ctx context.Context, w io.Writer) (ObservabilityConfig, error) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))

	if !c.ObservabilityEnabled {
		return ObservabilityConfig{Logger: logger, slogger: logger}, nil
	}

	providers, err := config.NewObservabilityConfig(ctx, w, serviceName, serviceVersion)
	if err != nil {
		return ObservabilityConfig{}, err
	}

	return ObservabilityConfig{
		Logger:           logger,
		slogger:          logger,
		ContextualLogger: oteladapters.NewSlogBridgeLogger(serviceName, nil),
		MetricsCollector: oteladapters.NewMetricsCollector(providers.MeterProvider.Meter(serviceName)),
		TracingCollector: oteladapters.NewTracingCollector(providers.TracerProvider.Tracer(serviceName)),
		providers:        providers,
	}, nil
}

// CoordinatorOptions returns the options wiring the configured adapters into a Coordinator.
func (o ObservabilityConfig) CoordinatorOptions() []contention.Option {
	options := []contention.Option{contention.WithLogger(o.Logger)}

	if o.ContextualLogger != nil {
		options = append(options, contention.WithContextualLogger(o.ContextualLogger))
	}

	if o.MetricsCollector != nil {
		options = append(options, contention.WithMetrics(o.MetricsCollector))
	}

	if o.TracingCollector != nil {
		options = append(options, contention.WithTracing(o.TracingCollector))
	}

	return options
}

// Shutdown flushes and stops the OpenTelemetry providers, if any.
func (o ObservabilityConfig) Shutdown() error {
	if o.providers == nil {
		return nil
	}

	return o.providers.Shutdown()
}
