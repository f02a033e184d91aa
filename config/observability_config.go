package config

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

const (
	attrServiceName    = "service.name"
	attrServiceVersion = "service.version"
	shutdownTimeout    = 5 * time.Second
)

// ObservabilityProviders holds the OpenTelemetry providers of one process.
//
// Spans are exported synchronously as JSON to the configured writer. Metrics stay in memory until
// CollectMetrics is called.
type ObservabilityProviders struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Resource       *resource.Resource
	metricReader   *metric.ManualReader
}

// NewObservabilityConfig creates OpenTelemetry providers that write spans to w.
// The providers are not installed globally; callers pass them to the oteladapters explicitly.
func NewObservabilityConfig(ctx context.Context, w io.Writer, serviceName, serviceVersion string) (*ObservabilityProviders, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String(attrServiceName, serviceName),
			attribute.String(attrServiceVersion, serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithSpanProcessor(trace.NewSimpleSpanProcessor(traceExporter)),
		trace.WithResource(res),
	)

	metricReader := metric.NewManualReader()
	meterProvider := metric.NewMeterProvider(
		metric.WithReader(metricReader),
		metric.WithResource(res),
	)

	return &ObservabilityProviders{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Resource:       res,
		metricReader:   metricReader,
	}, nil
}

// CollectMetrics returns everything recorded by the meter provider so far.
func (p *ObservabilityProviders) CollectMetrics(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := p.metricReader.Collect(ctx, &rm)

	return rm, err
}

// Shutdown gracefully shuts down the OpenTelemetry providers.
func (p *ObservabilityProviders) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
	)
}
