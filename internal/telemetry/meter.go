package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterProviderOption is a function that configures the meter provider setup
type MeterProviderOption func(*meterProviderConfig)

// meterProviderConfig holds the configuration for creating a meter provider
type meterProviderConfig struct {
	serviceName    string
	serviceVersion string
	registerer     prometheus.Registerer
}

// WithMeterServiceName sets the service name for the meter provider
func WithMeterServiceName(name string) MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.serviceName = name
	}
}

// WithMeterServiceVersion sets the service version for the meter provider
func WithMeterServiceVersion(version string) MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.serviceVersion = version
	}
}

// WithRegisterer sets the Prometheus registerer metrics are exported to
func WithRegisterer(reg prometheus.Registerer) MeterProviderOption {
	return func(cfg *meterProviderConfig) {
		cfg.registerer = reg
	}
}

// NewMeterProvider creates an OpenTelemetry MeterProvider that exports to a
// Prometheus registry, so metrics are available for scraping without an
// external collector. The caller is responsible for calling Shutdown on the
// returned provider.
func NewMeterProvider(opts ...MeterProviderOption) (metric.MeterProvider, error) {
	cfg := &meterProviderConfig{
		serviceName:    "repo-resolver",
		serviceVersion: "unknown",
		registerer:     prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// resource.New would pull in the default schema URL and conflict with
	// resource.Default(), so build the resource from attributes only.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.serviceName),
		semconv.ServiceVersion(cfg.serviceVersion),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(cfg.registerer))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus metrics exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(mp)

	return mp, nil
}
