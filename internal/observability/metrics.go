package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"attache/internal/logging"
)

// MetricsCollector manages the attachment-collection metrics and the
// Prometheus scrape endpoint.
type MetricsCollector struct {
	meter metric.Meter

	attachmentsAdded   metric.Int64Counter
	attachmentsRemoved metric.Int64Counter
	collectionUpdates  metric.Int64Counter
	attachmentsActive  metric.Int64UpDownCounter
	settleDuration     metric.Float64Histogram

	prometheusServer *http.Server
	logger           logging.Logger
}

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// NewMetricsCollector creates a metrics collector. A disabled config returns a
// collector whose record methods are no-ops.
func NewMetricsCollector(config MetricsConfig, logger logging.Logger) (*MetricsCollector, error) {
	logger = logging.OrNop(logger)
	if !config.Enabled {
		return &MetricsCollector{logger: logger}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("attache")

	attachmentsAdded, err := meter.Int64Counter(
		"attache.attachments.added.total",
		metric.WithDescription("Total number of attachments added to collections"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachments_added counter: %w", err)
	}

	attachmentsRemoved, err := meter.Int64Counter(
		"attache.attachments.removed.total",
		metric.WithDescription("Total number of attachments removed from collections"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachments_removed counter: %w", err)
	}

	collectionUpdates, err := meter.Int64Counter(
		"attache.collection.updates.total",
		metric.WithDescription("Total number of collection update notifications"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection_updates counter: %w", err)
	}

	attachmentsActive, err := meter.Int64UpDownCounter(
		"attache.attachments.active",
		metric.WithDescription("Number of live attachment handles"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachments_active gauge: %w", err)
	}

	settleDuration, err := meter.Float64Histogram(
		"attache.attachments.settle.duration",
		metric.WithDescription("Time for an attachment's reference tree to settle"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create settle_duration histogram: %w", err)
	}

	collector := &MetricsCollector{
		meter:              meter,
		attachmentsAdded:   attachmentsAdded,
		attachmentsRemoved: attachmentsRemoved,
		collectionUpdates:  collectionUpdates,
		attachmentsActive:  attachmentsActive,
		settleDuration:     settleDuration,
		logger:             logger,
	}

	if config.PrometheusPort > 0 {
		if err := collector.StartPrometheusServer(config.PrometheusPort); err != nil {
			return nil, fmt.Errorf("failed to start prometheus server: %w", err)
		}
	}

	return collector, nil
}

// StartPrometheusServer starts the Prometheus metrics server.
func (m *MetricsCollector) StartPrometheusServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		m.logger.Info("prometheus metrics server listening on :%d", port)
		if err := m.prometheusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("prometheus server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics collector.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m.prometheusServer != nil {
		return m.prometheusServer.Shutdown(ctx)
	}
	return nil
}

// RecordAttachmentAdded records a new live attachment.
func (m *MetricsCollector) RecordAttachmentAdded(ctx context.Context) {
	if m.attachmentsAdded == nil {
		return
	}
	m.attachmentsAdded.Add(ctx, 1)
	m.attachmentsActive.Add(ctx, 1)
}

// RecordAttachmentRemoved records a removed attachment.
func (m *MetricsCollector) RecordAttachmentRemoved(ctx context.Context) {
	if m.attachmentsRemoved == nil {
		return
	}
	m.attachmentsRemoved.Add(ctx, 1)
	m.attachmentsActive.Add(ctx, -1)
}

// RecordCollectionUpdate records one update notification.
func (m *MetricsCollector) RecordCollectionUpdate(ctx context.Context) {
	if m.collectionUpdates == nil {
		return
	}
	m.collectionUpdates.Add(ctx, 1)
}

// RecordSettleDuration records how long an attachment took to settle.
func (m *MetricsCollector) RecordSettleDuration(ctx context.Context, d time.Duration) {
	if m.settleDuration == nil {
		return
	}
	m.settleDuration.Record(ctx, d.Seconds())
}
