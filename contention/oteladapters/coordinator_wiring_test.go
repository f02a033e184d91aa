package oteladapters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/contention/oteladapters"
	"github.com/AntonStoeckl/contention-lab/testutil/helper"
)

func Test_Coordinator_WithOpenTelemetryAdapters(t *testing.T) {
	// setup
	spanExporter := tracetest.NewInMemoryExporter()
	tracerProvider := trace.NewTracerProvider(trace.WithSyncer(spanExporter))

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	logProvider := newRecordingLoggerProvider()

	coordinator := helper.GivenFastCoordinator(t,
		helper.GivenMemoryPoolWithCapacity(t, 0),
		helper.GivenEventLog(t),
		contention.WithContextualLogger(oteladapters.NewSlogBridgeLogger("test", logProvider)),
		contention.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("test"))),
		contention.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("test"))),
	)

	// act
	summary, err := coordinator.Run(t.Context(), contention.Pessimistic, 2, 5)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SuccessCount())

	spans := spanExporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, contention.SpanNameRun, spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	winners, ok := attributeValue(spans[0], contention.SpanAttrWinners)
	assert.True(t, ok)
	assert.Equal(t, "2", winners)

	records := logProvider.logger.Records()
	require.NotEmpty(t, records)
	for _, record := range records {
		assert.Equal(t, spans[0].SpanContext.TraceID(), record.SpanCtx.TraceID(), record.Body)
	}

	rm := collect(t, reader)
	outcomes, ok := findMetric(t, rm, contention.MetricParticipantOutcomes).Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, point := range outcomes.DataPoints {
		total += point.Value
	}
	assert.Equal(t, int64(5), total)

	findMetric(t, rm, contention.MetricRunDuration)
	findMetric(t, rm, contention.MetricFinalCount)
}
