// Package telemetry provides OpenTelemetry instrumentation for muisti.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/muisti/internal/config"
)

// Provider wraps OTEL tracer and meter providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	registry       *prometheus.Registry

	// Metrics
	ingestCount   metric.Int64Counter
	queryDuration metric.Float64Histogram
	sweepEvicted  metric.Int64Counter
	sweepErrors   metric.Int64Counter
}

// NewProvider creates a new telemetry provider.
func NewProvider(ctx context.Context, cfg config.OTELConfig) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res); err != nil {
		if p.tracerProvider != nil {
			_ = p.tracerProvider.Shutdown(ctx)
		}
		return nil, err
	}

	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.Traces.Enabled && cfg.Endpoint != "" {
		exp, err := createTraceExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		sampler := sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate)
		opts = append(opts, sdktrace.WithBatcher(exp), sdktrace.WithSampler(sampler))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	p.tracer = p.tracerProvider.Tracer("muisti")

	return nil
}

func (p *Provider) setupMetrics(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}

	// Prometheus exposition is always on; the serve command scrapes
	// the provider's registry via promhttp. A private registry keeps
	// repeated provider construction (tests) from colliding.
	p.registry = prometheus.NewRegistry()
	promExp, err := otelprom.New(otelprom.WithRegisterer(p.registry))
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}
	opts = append(opts, sdkmetric.WithReader(promExp))

	if cfg.Metrics.Enabled && cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter("muisti")

	return nil
}

func createTraceExporter(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *Provider) initMetrics() error {
	var err error

	p.ingestCount, err = p.meter.Int64Counter(
		"muisti_ingest_total",
		metric.WithDescription("Total telemetry records ingested"),
	)
	if err != nil {
		return fmt.Errorf("create ingest_count: %w", err)
	}

	p.queryDuration, err = p.meter.Float64Histogram(
		"muisti_query_duration_seconds",
		metric.WithDescription("Duration of memory queries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create query_duration: %w", err)
	}

	p.sweepEvicted, err = p.meter.Int64Counter(
		"muisti_sweep_evicted_total",
		metric.WithDescription("Total cache entries evicted by retention sweeps"),
	)
	if err != nil {
		return fmt.Errorf("create sweep_evicted: %w", err)
	}

	p.sweepErrors, err = p.meter.Int64Counter(
		"muisti_sweep_errors_total",
		metric.WithDescription("Total retention sweep failures"),
	)
	if err != nil {
		return fmt.Errorf("create sweep_errors: %w", err)
	}

	return nil
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	return p.meter
}

// Registry returns the prometheus registry backing the exposition
// endpoint.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// StartSpan starts a new span.
func (p *Provider) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name)
}

// RecordIngest counts one stored record of the given kind (metrics,
// event, prediction, annotation).
func (p *Provider) RecordIngest(ctx context.Context, node, kind string) {
	p.ingestCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", node),
		attribute.String("kind", kind),
	))
}

// RecordQueryDuration records how long a query took.
func (p *Provider) RecordQueryDuration(ctx context.Context, operation string, d time.Duration) {
	p.queryDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordSweep records the outcome of a retention sweep.
func (p *Provider) RecordSweep(ctx context.Context, evicted int) {
	p.sweepEvicted.Add(ctx, int64(evicted))
}

// RecordSweepError records a failed retention sweep.
func (p *Provider) RecordSweepError(ctx context.Context) {
	p.sweepErrors.Add(ctx, 1)
}

// Shutdown flushes and shuts down the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
