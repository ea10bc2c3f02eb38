// Package observability provides production-grade observability features
// for prefectc: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds compilation context to a logger.
// Returns a new logger with flow_name and stage fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "SimpleFlow", "analyze")
//	enriched.Info("doing work") // includes flow_name, stage
func EnrichLogger(logger *slog.Logger, flowName, stage string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("flow_name", flowName),
		slog.String("stage", stage),
	)
}

// LogCompileStart logs the start of a flow compilation.
func LogCompileStart(logger *slog.Logger, flowName string) {
	if logger == nil {
		return
	}
	logger.Info("flow compilation starting",
		slog.String("flow_name", flowName),
	)
}

// LogCompileComplete logs successful flow compilation.
func LogCompileComplete(logger *slog.Logger, flowName string, durationMs float64, stepCount int) {
	if logger == nil {
		return
	}
	logger.Info("flow compilation completed",
		slog.String("flow_name", flowName),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps", stepCount),
	)
}

// LogCompileError logs flow compilation failure.
func LogCompileError(logger *slog.Logger, flowName string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("flow compilation failed",
		slog.String("flow_name", flowName),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStage logs completion of one compiler stage.
func LogStage(logger *slog.Logger, stage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stage completed",
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDeployment logs a deployment registration.
func LogDeployment(logger *slog.Logger, flowName, deploymentName string) {
	if logger == nil {
		return
	}
	logger.Info("deployment registered",
		slog.String("flow_name", flowName),
		slog.String("deployment", deploymentName),
	)
}

// LogDeploymentError logs a deployment registration failure.
func LogDeploymentError(logger *slog.Logger, flowName string, err error) {
	if logger == nil {
		return
	}
	logger.Error("deployment registration failed",
		slog.String("flow_name", flowName),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
