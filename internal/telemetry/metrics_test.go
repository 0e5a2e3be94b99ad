package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collectScope collects all metrics of one instrumentation scope, keyed by metric name
func collectScope(t *testing.T, reader *sdkmetric.ManualReader, scopeName string) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != scopeName {
			continue
		}
		for _, m := range scope.Metrics {
			found[m.Name] = m
		}
	}
	return found
}

func TestNewRegistryMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewRegistryMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewRegistryMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.transformersTotal)
		assert.NotNil(t, metrics.unresolvedTotal)
		assert.NotNil(t, metrics.enginesContacted)
	})
}

func TestRegistryMetrics_RecordRegistry(t *testing.T) {
	t.Parallel()

	t.Run("no-op when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *RegistryMetrics
		// Should not panic
		metrics.RecordRegistry(context.Background(), "default", 10, 1, 2)
	})

	t.Run("records gauges with registry attribute", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewRegistryMetrics(mp)
		require.NoError(t, err)

		metrics.RecordRegistry(context.Background(), "default", 42, 3, 2)

		found := collectScope(t, reader, RegistryMetricsMeterName)
		expected := map[string]int64{
			"thv_transform_transformers_total":      42,
			"thv_transform_unresolved_transformers": 3,
			"thv_transform_engines_contacted":       2,
		}
		for name, value := range expected {
			m, ok := found[name]
			require.True(t, ok, "expected metric %s", name)

			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok, "expected gauge data type for %s", name)
			require.Len(t, gauge.DataPoints, 1)
			assert.Equal(t, value, gauge.DataPoints[0].Value)

			registry, ok := gauge.DataPoints[0].Attributes.Value("registry")
			require.True(t, ok)
			assert.Equal(t, "default", registry.AsString())
		}
	})
}

func TestNewAggregationMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewAggregationMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewAggregationMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.runDuration)
		assert.NotNil(t, metrics.fetchDuration)
	})
}

func TestAggregationMetrics_Record(t *testing.T) {
	t.Parallel()

	t.Run("no-op when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *AggregationMetrics
		// Should not panic
		metrics.RecordRunDuration(context.Background(), "default", time.Second, true)
		metrics.RecordFetchDuration(context.Background(), "http://engine:8090", time.Second, false)
	})

	t.Run("records durations in seconds", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewAggregationMetrics(mp)
		require.NoError(t, err)

		metrics.RecordRunDuration(context.Background(), "default", 1500*time.Millisecond, true)
		metrics.RecordFetchDuration(context.Background(), "http://engine:8090", 250*time.Millisecond, true)

		found := collectScope(t, reader, AggregationMetricsMeterName)

		run, ok := found["thv_transform_run_duration_seconds"]
		require.True(t, ok)
		runHist, ok := run.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "expected histogram data type")
		require.NotEmpty(t, runHist.DataPoints)
		assert.InDelta(t, 1.5, runHist.DataPoints[0].Sum, 0.001)

		fetch, ok := found["thv_transform_fetch_duration_seconds"]
		require.True(t, ok)
		fetchHist, ok := fetch.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "expected histogram data type")
		require.NotEmpty(t, fetchHist.DataPoints)
		assert.InDelta(t, 0.25, fetchHist.DataPoints[0].Sum, 0.001)

		engine, ok := fetchHist.DataPoints[0].Attributes.Value("engine")
		require.True(t, ok)
		assert.Equal(t, "http://engine:8090", engine.AsString())
	})
}
