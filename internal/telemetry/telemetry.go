// Package telemetry provides OpenTelemetry integration for tm.
//
// Telemetry is disabled by default (zero runtime overhead when off).
//
// # Configuration
//
//	telemetry.enabled   (TM_TELEMETRY_ENABLED / TM_OTEL_ENABLED)  enable telemetry
//	telemetry.stdout    write spans/metrics to stderr (dev mode)
//	telemetry.endpoint  OTLP/HTTP metrics endpoint, e.g. localhost:4318
//
// Stdout exporters write to stderr so that JSON output and the MCP stdio
// transport on stdout stay clean.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/tmkit/taskmaster"

// Options selects exporters. The zero value disables telemetry.
type Options struct {
	Enabled  bool
	Stdout   bool
	Endpoint string
	// Writer receives stdout-exporter output; defaults to os.Stderr.
	Writer io.Writer
}

var (
	enabled     bool
	shutdownFns []func(context.Context) error
)

// Enabled reports whether Init installed real providers.
func Enabled() bool {
	return enabled
}

// Init configures OTel providers. When opts.Enabled is false this installs
// no-op providers and returns immediately (zero overhead path).
func Init(ctx context.Context, serviceName, version string, opts Options) error {
	if !opts.Enabled {
		enabled = false
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := buildTraceProvider(res, opts)
	if err != nil {
		return fmt.Errorf("telemetry: trace provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	shutdownFns = append(shutdownFns, tp.Shutdown)

	mp, err := buildMetricProvider(ctx, res, opts)
	if err != nil {
		return fmt.Errorf("telemetry: metric provider: %w", err)
	}
	otel.SetMeterProvider(mp)
	shutdownFns = append(shutdownFns, mp.Shutdown)

	enabled = true
	return nil
}

func buildTraceProvider(res *resource.Resource, opts Options) (*sdktrace.TracerProvider, error) {
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	// Spans only go to stdout; the OTLP endpoint carries metrics. Enabled
	// without any exporter also means stdout.
	if opts.Stdout || opts.Endpoint == "" {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(opts.Writer), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(tpOpts...), nil
}

func buildMetricProvider(ctx context.Context, res *resource.Resource, opts Options) (*sdkmetric.MeterProvider, error) {
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if opts.Stdout {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(opts.Writer))
		if err != nil {
			return nil, err
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second)),
		))
	}

	if opts.Endpoint != "" {
		exp, err := buildOTLPMetricExporter(ctx, opts.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(30*time.Second)),
		))
	}

	return sdkmetric.NewMeterProvider(mpOpts...), nil
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Meter returns a meter with the given instrumentation name (or the global scope).
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// Shutdown flushes all spans/metrics and shuts down OTel providers.
// Should be deferred in PersistentPostRun with a short-lived context.
func Shutdown(ctx context.Context) {
	for _, fn := range shutdownFns {
		_ = fn(ctx)
	}
	shutdownFns = nil
	enabled = false
}
