package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewLoadMetricsNilProvider(t *testing.T) {
	t.Parallel()

	m, err := NewLoadMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// Recording on nil metrics is a no-op, not a panic.
	m.RecordLoad(context.Background(), "http://example.com", 3, time.Second, true)
}

func TestRecordLoad(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewLoadMetrics(provider)
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()
	m.RecordLoad(ctx, "http://example.com/repository.xml", 3, 250*time.Millisecond, true)
	m.RecordLoad(ctx, "http://example.com/repository.xml", 0, time.Second, false)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics[0].Metrics {
		names[sm.Name] = true
	}
	assert.True(t, names["repo_resolver_packages_total"])
	assert.True(t, names["repo_resolver_load_duration_seconds"])
	assert.True(t, names["repo_resolver_load_failures_total"])
}

func TestNewMeterProvider(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	mp, err := NewMeterProvider(
		WithMeterServiceName("repo-resolver-test"),
		WithMeterServiceVersion("v0.0.0"),
		WithRegisterer(reg),
	)
	require.NoError(t, err)
	require.NotNil(t, mp)

	m, err := NewLoadMetrics(mp)
	require.NoError(t, err)
	m.RecordLoad(context.Background(), "http://example.com/repository.xml", 2, time.Second, true)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
