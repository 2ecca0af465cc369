// Package telemetry provides OpenTelemetry instrumentation for the resolver.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LoadMetricsMeterName is the name used for the source load metrics meter
const LoadMetricsMeterName = "github.com/sdkforge/repo-resolver/source"

// LoadMetrics holds the OpenTelemetry instruments for source load metrics
type LoadMetrics struct {
	packagesTotal metric.Int64Gauge
	loadDuration  metric.Float64Histogram
	loadFailures  metric.Int64Counter
}

// NewLoadMetrics creates a new LoadMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewLoadMetrics(provider metric.MeterProvider) (*LoadMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(LoadMetricsMeterName)

	packagesTotal, err := meter.Int64Gauge(
		"repo_resolver_packages_total",
		metric.WithDescription("Number of packages known per source"),
		metric.WithUnit("{package}"),
	)
	if err != nil {
		return nil, err
	}

	loadDuration, err := meter.Float64Histogram(
		"repo_resolver_load_duration_seconds",
		metric.WithDescription("Duration of source load operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, err
	}

	loadFailures, err := meter.Int64Counter(
		"repo_resolver_load_failures_total",
		metric.WithDescription("Number of failed source load operations"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		return nil, err
	}

	return &LoadMetrics{
		packagesTotal: packagesTotal,
		loadDuration:  loadDuration,
		loadFailures:  loadFailures,
	}, nil
}

// RecordLoad records the result of one source load operation
func (m *LoadMetrics) RecordLoad(ctx context.Context, sourceURL string, packageCount int, duration time.Duration, success bool) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", sourceURL),
	}

	m.loadDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(append(attrs, attribute.Bool("success", success))...))

	if !success {
		m.loadFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
		return
	}

	m.packagesTotal.Record(ctx, int64(packageCount), metric.WithAttributes(attrs...))
}
