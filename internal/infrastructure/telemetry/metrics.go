package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sac/membership/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when metrics are created without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// MeterProvider wraps the OpenTelemetry MeterProvider with lifecycle management
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider creates the provider and installs it globally. When
// metrics are disabled the global no-op provider stays in place.
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, serviceName string, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled || !cfg.Metrics {
		logger.Debug("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricsInterval))),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", cfg.MetricsInterval),
	)
	return mp, nil
}

// Shutdown flushes pending metrics
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		mp.logger.Error("Error shutting down meter provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// IsEnabled reports whether metrics are exported
func (mp *MeterProvider) IsEnabled() bool {
	return mp.provider != nil
}

// Metric attribute keys
var (
	MetricImporter   = attribute.Key("importer")
	MetricStatus     = attribute.Key("status")
	MetricExportKind = attribute.Key("export_kind")
	MetricFormat     = attribute.Key("format")
	MetricMutation   = attribute.Key("mutation")
	MetricOutcome    = attribute.Key("outcome")
)

// DurationBuckets are histogram boundaries for imports and exports (seconds)
var DurationBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900}

// Metrics holds the instruments of the membership registry
type Metrics struct {
	importRows     metric.Int64Counter
	importDuration metric.Float64Histogram
	exportRows     metric.Int64Counter
	exportDuration metric.Float64Histogram
	mutations      metric.Int64Counter
	jobFailures    metric.Int64Counter
}

// NewMetrics creates the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &Metrics{}
	var err error
	if m.importRows, err = meter.Int64Counter("sac_import_rows_total",
		metric.WithDescription("Imported CSV rows by importer and outcome"),
		metric.WithUnit("{rows}")); err != nil {
		return nil, fmt.Errorf("failed to create import rows counter: %w", err)
	}
	if m.importDuration, err = meter.Float64Histogram("sac_import_duration_seconds",
		metric.WithDescription("Duration of import runs"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DurationBuckets...)); err != nil {
		return nil, fmt.Errorf("failed to create import duration histogram: %w", err)
	}
	if m.exportRows, err = meter.Int64Counter("sac_export_rows_total",
		metric.WithDescription("Rows written by tabular exports"),
		metric.WithUnit("{rows}")); err != nil {
		return nil, fmt.Errorf("failed to create export rows counter: %w", err)
	}
	if m.exportDuration, err = meter.Float64Histogram("sac_export_duration_seconds",
		metric.WithDescription("Duration of tabular exports"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(DurationBuckets...)); err != nil {
		return nil, fmt.Errorf("failed to create export duration histogram: %w", err)
	}
	if m.mutations, err = meter.Int64Counter("sac_membership_mutations_total",
		metric.WithDescription("Membership mutations by kind and outcome"),
		metric.WithUnit("{mutations}")); err != nil {
		return nil, fmt.Errorf("failed to create mutations counter: %w", err)
	}
	if m.jobFailures, err = meter.Int64Counter("sac_job_failures_total",
		metric.WithDescription("Background jobs that gave up"),
		metric.WithUnit("{jobs}")); err != nil {
		return nil, fmt.Errorf("failed to create job failures counter: %w", err)
	}
	return m, nil
}

// RecordImport records the row outcomes and duration of an import run
func (m *Metrics) RecordImport(ctx context.Context, importer string, success, warnings, errs int, d time.Duration) {
	kind := MetricImporter.String(importer)
	for status, n := range map[string]int{"success": success, "warning": warnings, "error": errs} {
		if n > 0 {
			m.importRows.Add(ctx, int64(n), metric.WithAttributes(kind, MetricStatus.String(status)))
		}
	}
	m.importDuration.Record(ctx, d.Seconds(), metric.WithAttributes(kind))
}

// RecordExport records a finished export
func (m *Metrics) RecordExport(ctx context.Context, kind, format string, rows int, d time.Duration) {
	attrs := metric.WithAttributes(MetricExportKind.String(kind), MetricFormat.String(format))
	m.exportRows.Add(ctx, int64(rows), attrs)
	m.exportDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordMutation counts a membership mutation; err nil counts as success
func (m *Metrics) RecordMutation(ctx context.Context, mutation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(MetricMutation.String(mutation), MetricOutcome.String(outcome)))
}

// RecordJobFailure counts a job that failed for good
func (m *Metrics) RecordJobFailure(ctx context.Context, job string) {
	m.jobFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("job", job)))
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns instruments on the global meter provider. Instruments
// created before NewMeterProvider installs the SDK provider are forwarded
// to it.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider().Meter(TracerName))
		if err != nil {
			otel.Handle(err)
			m, _ = NewMetrics(noop.NewMeterProvider().Meter(TracerName))
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
