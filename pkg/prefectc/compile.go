package prefectc

import (
	"context"
	"log/slog"
	"time"

	"github.com/flowforge/prefectc/pkg/prefectc/observability"
)

// compileConfig holds caller-supplied overlays applied to the analyzed
// spec before generation.
type compileConfig struct {
	tags      []string
	namespace *string
	logger    *slog.Logger
	spans     observability.SpanManager
	metrics   observability.MetricsRecorder
}

func defaultCompileConfig() compileConfig {
	return compileConfig{
		spans:   observability.NoopSpanManager{},
		metrics: observability.NoopMetrics{},
	}
}

// CompileOption configures a Compile call.
type CompileOption func(*compileConfig)

// WithTags replaces the flow's declared tags on the compiled spec.
// An empty call is a no-op; the flow's own tags survive.
func WithTags(tags ...string) CompileOption {
	return func(c *compileConfig) {
		if len(tags) > 0 {
			c.tags = tags
		}
	}
}

// WithNamespace replaces the flow's namespace on the compiled spec.
func WithNamespace(ns string) CompileOption {
	return func(c *compileConfig) {
		c.namespace = &ns
	}
}

// WithLogger attaches a structured logger to the compilation.
// Default: no logging.
func WithLogger(logger *slog.Logger) CompileOption {
	return func(c *compileConfig) {
		c.logger = logger
	}
}

// WithObservability attaches tracing and metrics to the compilation.
// Default: no-op implementations.
func WithObservability(spans observability.SpanManager, metrics observability.MetricsRecorder) CompileOption {
	return func(c *compileConfig) {
		if spans != nil {
			c.spans = spans
		}
		if metrics != nil {
			c.metrics = metrics
		}
	}
}

// Compile runs the analyzer and the generator behind one call: it
// analyzes the workflow graph, applies any tag/namespace overlay to the
// resulting spec, and emits the Prefect program source.
//
// Overlay values win over whatever the flow itself declared. The
// analyzed spec is never mutated; the overlay produces a copy.
func Compile(ctx context.Context, g Graph, f Flow, cfg Config, opts ...CompileOption) (string, error) {
	cc := defaultCompileConfig()
	for _, opt := range opts {
		opt(&cc)
	}

	start := time.Now()
	ctx, span := cc.spans.StartCompileSpan(ctx, f.Name())
	observability.LogCompileStart(cc.logger, f.Name())

	spec, err := analyzeStage(ctx, cc, g, f)
	if err != nil {
		cc.spans.EndSpanWithError(span, err)
		cc.metrics.RecordCompile(ctx, f.Name(), time.Since(start), err)
		observability.LogCompileError(cc.logger, f.Name(), err, float64(time.Since(start).Milliseconds()))
		return "", err
	}

	spec = overlay(spec, cc)
	src := generateStage(ctx, cc, spec, cfg)

	cc.spans.EndSpanWithError(span, nil)
	cc.metrics.RecordCompile(ctx, f.Name(), time.Since(start), nil)
	observability.LogCompileComplete(cc.logger, f.Name(), float64(time.Since(start).Milliseconds()), len(spec.Steps))
	return src, nil
}

// analyzeStage wraps Analyze with a stage span and stage metrics.
func analyzeStage(ctx context.Context, cc compileConfig, g Graph, f Flow) (*FlowSpec, error) {
	stageStart := time.Now()
	ctx, span := cc.spans.StartStageSpan(ctx, "analyze")
	spec, err := Analyze(g, f)
	cc.spans.EndSpanWithError(span, err)
	cc.metrics.RecordStage(ctx, "analyze", time.Since(stageStart))
	observability.LogStage(cc.logger, "analyze", float64(time.Since(stageStart).Milliseconds()))
	return spec, err
}

// generateStage wraps Generate with a stage span and stage metrics.
func generateStage(ctx context.Context, cc compileConfig, spec *FlowSpec, cfg Config) string {
	stageStart := time.Now()
	ctx, span := cc.spans.StartStageSpan(ctx, "generate")
	src := Generate(spec, cfg)
	cc.spans.EndSpanWithError(span, nil)
	cc.metrics.RecordStage(ctx, "generate", time.Since(stageStart))
	observability.LogStage(cc.logger, "generate", float64(time.Since(stageStart).Milliseconds()))
	return src
}

// overlay returns spec with caller-supplied tags/namespace applied.
// Without an overlay the original spec is returned untouched.
func overlay(spec *FlowSpec, cc compileConfig) *FlowSpec {
	if len(cc.tags) == 0 && cc.namespace == nil {
		return spec
	}
	out := *spec
	if len(cc.tags) > 0 {
		out.Tags = append([]string(nil), cc.tags...)
	}
	if cc.namespace != nil {
		out.Namespace = *cc.namespace
	}
	return &out
}
