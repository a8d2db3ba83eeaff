package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/featflow/logger"
	"github.com/kbukum/featflow/version"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.Short(),
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds OpenTelemetry metric instruments for pipeline observability.
type Metrics struct {
	nodeTotal    metric.Int64Counter
	nodeDuration metric.Float64Histogram
	passTotal    metric.Int64Counter
	passDuration metric.Float64Histogram
	errorTotal   metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	nodeTotal, err := meter.Int64Counter("pipeline.node.total",
		metric.WithDescription("Total number of node executions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.node.total counter: %w", err)
	}

	nodeDuration, err := meter.Float64Histogram("pipeline.node.duration",
		metric.WithDescription("Duration of node executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.node.duration histogram: %w", err)
	}

	passTotal, err := meter.Int64Counter("pipeline.pass.total",
		metric.WithDescription("Total number of executed passes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.pass.total counter: %w", err)
	}

	passDuration, err := meter.Float64Histogram("pipeline.pass.duration",
		metric.WithDescription("Duration of full passes in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.pass.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("pipeline.error.total",
		metric.WithDescription("Total number of node failures"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.error.total counter: %w", err)
	}

	return &Metrics{
		nodeTotal:    nodeTotal,
		nodeDuration: nodeDuration,
		passTotal:    passTotal,
		passDuration: passDuration,
		errorTotal:   errorTotal,
	}, nil
}

// RecordNode records a single node execution.
func (m *Metrics) RecordNode(ctx context.Context, node, pass, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("pass", pass),
		attribute.String("status", status),
	)
	m.nodeTotal.Add(ctx, 1, attrs)
	m.nodeDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordPass records a completed (or aborted) pass.
func (m *Metrics) RecordPass(ctx context.Context, pipeline, pass, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("pass", pass),
		attribute.String("status", status),
	)
	m.passTotal.Add(ctx, 1, attrs)
	m.passDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordError records a node failure by node name and pass.
func (m *Metrics) RecordError(ctx context.Context, node, pass string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("pass", pass),
	))
}
