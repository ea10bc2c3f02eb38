package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records prefectc compiler metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordCompile records one end-to-end compilation with its duration
	// and error status.
	RecordCompile(ctx context.Context, flowName string, duration time.Duration, err error)

	// RecordStage records one compiler stage (analyze, generate).
	RecordStage(ctx context.Context, stage string, duration time.Duration)

	// RecordDeployment records a deployment registration attempt.
	RecordDeployment(ctx context.Context, flowName string, success bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	compiles       metric.Int64Counter
	compileLatency metric.Float64Histogram
	compileErrors  metric.Int64Counter
	stageLatency   metric.Float64Histogram
	deployments    metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("prefectc")

	compiles, err := meter.Int64Counter("prefectc.compiles",
		metric.WithDescription("Number of flow compilations"),
	)
	if err != nil {
		return nil, err
	}

	compileLatency, err := meter.Float64Histogram("prefectc.compile.latency_ms",
		metric.WithDescription("Flow compilation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	compileErrors, err := meter.Int64Counter("prefectc.compile.errors",
		metric.WithDescription("Number of failed flow compilations"),
	)
	if err != nil {
		return nil, err
	}

	stageLatency, err := meter.Float64Histogram("prefectc.stage.latency_ms",
		metric.WithDescription("Compiler stage latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	deployments, err := meter.Int64Counter("prefectc.deployments",
		metric.WithDescription("Number of deployment registrations"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		compiles:       compiles,
		compileLatency: compileLatency,
		compileErrors:  compileErrors,
		stageLatency:   stageLatency,
		deployments:    deployments,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordCompile records one end-to-end compilation.
func (m *otelMetrics) RecordCompile(ctx context.Context, flowName string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("flow_name", flowName),
	}

	m.compiles.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.compileLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.compileErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordStage records one compiler stage.
func (m *otelMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("stage", stage),
	}
	m.stageLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordDeployment records a deployment registration attempt.
func (m *otelMetrics) RecordDeployment(ctx context.Context, flowName string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("flow_name", flowName),
		attribute.Bool("success", success),
	}
	m.deployments.Add(ctx, 1, metric.WithAttributes(attrs...))
}
