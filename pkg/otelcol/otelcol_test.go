package otelcol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProvideTrace(t *testing.T) {
	tp := ProvideTrace(tracetest.NewInMemoryExporter())
	require.NotNil(t, tp)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestProvideMetric(t *testing.T) {
	reader := metric.NewManualReader()
	mp := ProvideMetric(reader)
	require.NotNil(t, mp)

	counter, err := mp.Meter("rewards").Int64Counter("submissions")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Equal(t, "submissions", rm.ScopeMetrics[0].Metrics[0].Name)

	require.NoError(t, mp.Shutdown(context.Background()))
}
