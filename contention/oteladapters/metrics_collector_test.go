package oteladapters_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/contention/oteladapters"
)

func givenMetricsCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))

	return rm
}

func findMetric(t *testing.T, rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	t.Helper()

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not found", "metric %q was not recorded", name)

	return metricdata.Metrics{}
}

func Test_MetricsCollector_RecordDuration_InSeconds(t *testing.T) {
	// setup
	collector, reader := givenMetricsCollector()

	// act
	collector.RecordDurationContext(t.Context(), contention.MetricRunDuration, 250*time.Millisecond,
		map[string]string{contention.LabelStrategy: "OPTIMISTIC", contention.LabelStatus: "success"})

	// assert
	metric := findMetric(t, collect(t, reader), contention.MetricRunDuration)
	histogram, ok := metric.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)

	point := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), point.Count)
	assert.InDelta(t, 0.25, point.Sum, 0.0001)
	assert.Equal(t, "s", metric.Unit)
	assert.Equal(t, "Duration of one contention run", metric.Description)

	expected := attribute.NewSet(attribute.String("status", "success"), attribute.String("strategy", "OPTIMISTIC"))
	assert.True(t, point.Attributes.Equals(&expected))
}

func Test_MetricsCollector_IncrementCounter_ConcurrentCallers(t *testing.T) {
	// setup
	collector, reader := givenMetricsCollector()
	labels := map[string]string{contention.LabelStrategy: "RACE", contention.LabelOutcome: "success"}

	// act
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter(contention.MetricParticipantOutcomes, labels)
		}()
	}
	wg.Wait()

	// assert
	sum, ok := findMetric(t, collect(t, reader), contention.MetricParticipantOutcomes).Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(20), sum.DataPoints[0].Value)
}

func Test_MetricsCollector_RecordValue_KeepsTheLastValue(t *testing.T) {
	// setup
	collector, reader := givenMetricsCollector()
	labels := map[string]string{contention.LabelStrategy: "RACE"}

	// act
	collector.RecordValue(contention.MetricFinalCount, 0, labels)
	collector.RecordValueContext(t.Context(), contention.MetricFinalCount, -3, labels)

	// assert
	gauge, ok := findMetric(t, collect(t, reader), contention.MetricFinalCount).Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, -3.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_UnknownMetricsGetTheDefaultDescription(t *testing.T) {
	collector, reader := givenMetricsCollector()

	collector.IncrementCounter("custom_total", nil)

	assert.Equal(t, "contention-lab measurement", findMetric(t, collect(t, reader), "custom_total").Description)
}
