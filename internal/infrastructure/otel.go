package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"bdcsubs/internal/config"
)

const (
	ServiceVersion = "1.0.0"
	MeterName      = "bdcsubs"
)

// Telemetry holds the run's tracer and meter providers. Spans are written to
// the configured trace file; metrics are gathered into a private Prometheus
// registry and dumped as a textfile on Shutdown.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter

	registry    *promclient.Registry
	traceFile   *os.File
	metricsFile string
	logger      *slog.Logger
}

// NewTelemetry initializes tracing and metrics for one run
func NewTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = DiscardLogger()
	}

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{
		metricsFile: cfg.MetricsFile,
		logger:      logger,
	}

	if err := t.initializeTracing(cfg, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := t.initializeMetrics(res); err != nil {
		_ = t.TracerProvider.Shutdown(context.Background())
		t.closeTraceFile()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Debug("Telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_file", cfg.TraceFile),
		slog.String("metrics_file", cfg.MetricsFile))

	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg config.TelemetryConfig) (*resource.Resource, error) {
	hostname, _ := os.Hostname()
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("host.name", hostname),
	), nil
}

func (t *Telemetry) initializeTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if cfg.TraceFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open trace file: %w", err)
		}
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(f),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		t.traceFile = f
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	t.TracerProvider = sdktrace.NewTracerProvider(opts...)
	t.Tracer = t.TracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	return nil
}

func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	t.registry = promclient.NewRegistry()

	exporter, err := prometheus.New(prometheus.WithRegisterer(t.registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))
	return nil
}

// Gatherer exposes the run's metric registry
func (t *Telemetry) Gatherer() promclient.Gatherer {
	return t.registry
}

// Shutdown flushes spans, writes the metrics textfile and releases the trace
// file. It must run before the process exits.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	// The registry can only be gathered while the meter provider is alive.
	if t.metricsFile != "" {
		if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
			errs = append(errs, fmt.Errorf("metrics directory: %w", err))
		} else if err := promclient.WriteToTextfile(t.metricsFile, t.registry); err != nil {
			errs = append(errs, fmt.Errorf("metrics textfile: %w", err))
		}
	}

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	t.closeTraceFile()

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}
	return nil
}

func (t *Telemetry) closeTraceFile() {
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			t.logger.Warn("Failed to close trace file", slog.String("error", err.Error()))
		}
		t.traceFile = nil
	}
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// PipelineMetrics holds the counters and histograms of a validation run
type PipelineMetrics struct {
	RowsRead        metric.Int64Counter
	RowsAccepted    metric.Int64Counter
	RowsRejected    metric.Int64Counter
	GeocodeCalls    metric.Int64Counter
	GeocodeFailures metric.Int64Counter
	Runs            metric.Int64Counter
	RunDuration     metric.Float64Histogram
}

// NewPipelineMetrics registers the run instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsRead, err := meter.Int64Counter(
		"subscriber_rows_read_total",
		metric.WithDescription("Data rows read from the input file"),
	)
	if err != nil {
		return nil, err
	}

	rowsAccepted, err := meter.Int64Counter(
		"subscriber_rows_accepted_total",
		metric.WithDescription("Rows that passed validation"),
	)
	if err != nil {
		return nil, err
	}

	rowsRejected, err := meter.Int64Counter(
		"subscriber_rows_rejected_total",
		metric.WithDescription("Rows excluded from aggregation, by error category"),
	)
	if err != nil {
		return nil, err
	}

	geocodeCalls, err := meter.Int64Counter(
		"geocode_requests_total",
		metric.WithDescription("Geocoding requests issued"),
	)
	if err != nil {
		return nil, err
	}

	geocodeFailures, err := meter.Int64Counter(
		"geocode_failures_total",
		metric.WithDescription("Geocoding requests that returned no location"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(
		"validation_runs_total",
		metric.WithDescription("Completed runs by final status"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"validation_run_duration_seconds",
		metric.WithDescription("Wall time of a run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsRead:        rowsRead,
		RowsAccepted:    rowsAccepted,
		RowsRejected:    rowsRejected,
		GeocodeCalls:    geocodeCalls,
		GeocodeFailures: geocodeFailures,
		Runs:            runs,
		RunDuration:     runDuration,
	}, nil
}

// RecordRows records row counts for one input kind. rejected is keyed by error category.
func (m *PipelineMetrics) RecordRows(ctx context.Context, kind string, read, accepted int, rejected map[string]int) {
	if m == nil {
		return
	}

	kindAttr := attribute.String("input.kind", kind)
	m.RowsRead.Add(ctx, int64(read), metric.WithAttributes(kindAttr))
	m.RowsAccepted.Add(ctx, int64(accepted), metric.WithAttributes(kindAttr))
	for category, n := range rejected {
		m.RowsRejected.Add(ctx, int64(n), metric.WithAttributes(kindAttr, attribute.String("error.category", category)))
	}
}

// RecordGeocode records one geocoding request
func (m *PipelineMetrics) RecordGeocode(ctx context.Context, ok bool) {
	if m == nil {
		return
	}

	m.GeocodeCalls.Add(ctx, 1)
	if !ok {
		m.GeocodeFailures.Add(ctx, 1)
	}
}

// RecordRun records the final status and duration of a run
func (m *PipelineMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}

	statusAttr := attribute.String("status", status)
	m.Runs.Add(ctx, 1, metric.WithAttributes(statusAttr))
	m.RunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(statusAttr))
}
