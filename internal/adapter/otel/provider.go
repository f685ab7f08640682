package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Exporter names accepted by Setup.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
	ExporterNone   = "none"
)

// Config selects where telemetry goes and how much of it is kept.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       string  // ExporterStdout, ExporterOTLP or ExporterNone
	Insecure       bool    // plain HTTP to the OTLP collector
	SampleRatio    float64 // fraction of root traces kept; <= 0 or >= 1 keeps all
}

// ConfigFromEnv reads the OTEL_* variables. A development environment talks
// to the collector without TLS.
func ConfigFromEnv() Config {
	env := lookup("OTEL_ENVIRONMENT", "development")
	ratio, err := strconv.ParseFloat(lookup("OTEL_SAMPLE_RATIO", "1"), 64)
	if err != nil {
		ratio = 1
	}
	return Config{
		ServiceName:    lookup("OTEL_SERVICE_NAME", "tillpoint"),
		ServiceVersion: lookup("OTEL_SERVICE_VERSION", "0.1.0"),
		Environment:    env,
		Exporter:       lookup("OTEL_EXPORTER", ExporterStdout),
		Insecure:       env == "development",
		SampleRatio:    ratio,
	}
}

// Providers owns the registered providers until Shutdown flushes them.
type Providers struct {
	Shutdown func(ctx context.Context) error
}

// Setup registers global tracer and meter providers and the W3C propagator.
// With ExporterNone spans are still created, so trace IDs reach the logs and
// downstream calls, but nothing is exported and no meter provider is set.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tpOpts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(sampler(cfg.SampleRatio)),
	}

	if cfg.Exporter == ExporterNone {
		tp := trace.NewTracerProvider(tpOpts...)
		otel.SetTracerProvider(tp)
		return &Providers{Shutdown: tp.Shutdown}, nil
	}

	spans, readings, err := exporters(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(append(tpOpts, trace.WithBatcher(spans))...)
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(readings)),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	return &Providers{Shutdown: func(ctx context.Context) error {
		var errs []error
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
		return errors.Join(errs...)
	}}, nil
}

// exporters builds the span and metric exporters for one backend.
func exporters(ctx context.Context, cfg Config) (trace.SpanExporter, metric.Exporter, error) {
	switch cfg.Exporter {
	case ExporterOTLP:
		var traceOpts []otlptracehttp.Option
		var metricOpts []otlpmetrichttp.Option
		if cfg.Insecure {
			traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
			metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		}
		spans, err := otlptracehttp.New(ctx, traceOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		readings, err := otlpmetrichttp.New(ctx, metricOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("creating otlp metric exporter: %w", err)
		}
		return spans, readings, nil

	case ExporterStdout:
		spans, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("creating stdout trace exporter: %w", err)
		}
		readings, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, fmt.Errorf("creating stdout metric exporter: %w", err)
		}
		return spans, readings, nil
	}

	return nil, nil, fmt.Errorf("unsupported exporter %q (want %q, %q or %q)",
		cfg.Exporter, ExporterStdout, ExporterOTLP, ExporterNone)
}

// sampler keeps a ratio of new traces and follows the parent's decision for
// the rest, so a trace is never half-sampled across services.
func sampler(ratio float64) trace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}

func lookup(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
