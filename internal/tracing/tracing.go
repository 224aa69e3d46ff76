// Package tracing installs the OpenTelemetry tracer provider that backs the spans
// opened by the verifier, the fulfillment service and the HTTP layer.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/gyaneshwarpardhi/piwebhook/internal/config"
)

// ServiceName identifies this process in exported traces.
const ServiceName = "piwebhook"

// Provider owns the SDK tracer provider, if one was installed.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider builds an exporter and sampler from conf and installs the result as
// the global tracer provider. When tracing is disabled nothing is installed and
// the returned Provider's Shutdown is a no-op.
func NewProvider(conf config.TracingConf, environment, version string) (*Provider, error) {
	if !conf.Enabled {
		slog.Info("tracing disabled")
		return &Provider{}, nil
	}
	if conf.SamplingRate <= 0 || conf.SamplingRate > 1 {
		return nil, fmt.Errorf("sampling rate must be in (0, 1], got %g", conf.SamplingRate)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
			attribute.String("environment", environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	exporter, err := newExporter(conf)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if conf.SamplingRate < 1 {
		sampler = sdktrace.TraceIDRatioBased(conf.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("tracing initialized",
		"exporter", conf.Exporter,
		"endpoint", conf.Endpoint,
		"sampling_rate", conf.SamplingRate,
	)
	return &Provider{tp: tp}, nil
}

func newExporter(conf config.TracingConf) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch conf.Exporter {
	case config.ExporterOTLPGRPC:
		var opts []otlptracegrpc.Option
		if conf.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(conf.Endpoint))
		}
		if conf.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case config.ExporterOTLPHTTP, "":
		var opts []otlptracehttp.Option
		if conf.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(conf.Endpoint))
		}
		if conf.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter %q", conf.Exporter)
	}
}

// Enabled reports whether an SDK provider was installed.
func (p *Provider) Enabled() bool { return p.tp != nil }

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}
