// Package telemetry sets up OpenTelemetry trace and log export over OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/usm/build"
	"github.com/amp-labs/usm/envutil"
	"github.com/amp-labs/usm/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultTimeout   = 5 * time.Second
	minTimeout       = 100 * time.Millisecond
	clusterCollector = "http://opentelemetry-collector.opentelemetry.svc.cluster.local:4318"
)

var (
	tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals
	loggerProvider *sdklog.LoggerProvider   //nolint:gochecknoglobals

	// Exporter constructors, replaced in tests.
	newTraceExporter = func(ctx context.Context, config *Config) (sdktrace.SpanExporter, error) { //nolint:gochecknoglobals,lll
		return otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(config.Endpoint),
			otlptracehttp.WithTimeout(config.Timeout),
		)
	}

	newLogExporter = func(ctx context.Context, config *Config) (sdklog.Exporter, error) { //nolint:gochecknoglobals
		return otlploghttp.New(ctx,
			otlploghttp.WithEndpointURL(config.LogsEndpoint),
			otlploghttp.WithTimeout(config.Timeout),
		)
	}
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	LogsEndpoint   string
	Enabled        bool
	Timeout        time.Duration
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment variables.
func LoadConfigFromEnv(ctx context.Context, runningEnv string) (*Config, error) {
	enabled := envutil.Bool(ctx, "OTEL_ENABLED", envutil.Default(false)).ValueOrElse(false)

	// Inside Kubernetes the collector service is the default destination.
	defaultEndpoint := ""
	if envutil.String(ctx, "KUBERNETES_SERVICE_HOST").HasValue() {
		defaultEndpoint = clusterCollector
	}

	svcName, err := envutil.String(ctx, "OTEL_SERVICE_NAME",
		envutil.Default(logger.GetSubsystem(ctx))).Value()
	if err != nil {
		return nil, err
	}

	svcVersion, err := envutil.String(ctx, "OTEL_SERVICE_VERSION",
		envutil.Default(build.Version())).Value()
	if err != nil {
		return nil, err
	}

	endpoint, err := envutil.String(ctx, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
		envutil.Default(defaultEndpoint)).Value()
	if err != nil {
		return nil, err
	}

	logsEndpoint, err := envutil.String(ctx, "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT",
		envutil.Default(endpoint)).Value()
	if err != nil {
		return nil, err
	}

	timeout, err := envutil.Duration(ctx, "OTEL_EXPORTER_OTLP_TRACES_TIMEOUT",
		envutil.Default(defaultTimeout), envutil.AtLeast(minTimeout)).Value()
	if err != nil {
		return nil, err
	}

	return &Config{
		ServiceName:    svcName,
		ServiceVersion: svcVersion,
		Environment:    runningEnv,
		Endpoint:       endpoint,
		LogsEndpoint:   logsEndpoint,
		Enabled:        enabled,
		Timeout:        timeout,
	}, nil
}

// Initialize installs global tracer and logger providers exporting to the
// configured collector. It is a no-op when telemetry is disabled or no
// endpoint is configured.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry is disabled")

		return nil
	}

	if config.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, telemetry will be disabled")

		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	traceExporter, err := newTraceExporter(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	logExporter, err := newLogExporter(ctx, config)
	if err != nil {
		return errors.Join(
			fmt.Errorf("failed to create OTLP log exporter: %w", err),
			traceExporter.Shutdown(ctx),
		)
	}

	// Nothing is installed globally until both exporters exist.
	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	global.SetLoggerProvider(loggerProvider)

	slog.Info("OpenTelemetry initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
		"logs_endpoint", config.LogsEndpoint,
	)

	return nil
}

// Shutdown flushes and stops the providers installed by Initialize.
func Shutdown(ctx context.Context) error {
	var errs []error

	if tracerProvider != nil {
		errs = append(errs, tracerProvider.Shutdown(ctx))
		tracerProvider = nil
	}

	if loggerProvider != nil {
		errs = append(errs, loggerProvider.Shutdown(ctx))
		loggerProvider = nil
	}

	return errors.Join(errs...)
}
