package observe

import (
	"context"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CommandMeta describes one command run for telemetry purposes.
type CommandMeta struct {
	Identity string   // Command identity (may be empty before it is derived)
	Program  string   // Program path or name (required)
	Args     []string // Arguments as given by the caller (optional)
	Dir      string   // Working directory (optional)
}

// ProgramName returns the base name of the program.
func (m CommandMeta) ProgramName() string {
	if m.Program == "" {
		return ""
	}
	return filepath.Base(m.Program)
}

// SpanName returns the deterministic span name for this command.
// Format: evalcache.run <program>
func (m CommandMeta) SpanName() string {
	return "evalcache.run " + m.ProgramName()
}

// Validate checks required fields.
func (m CommandMeta) Validate() error {
	if m.Program == "" {
		return ErrMissingProgram
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with run-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a command run.
	StartSpan(ctx context.Context, meta CommandMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording the outcome and any error.
	EndSpan(span trace.Span, report RunReport, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with command metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CommandMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("cmd.program", meta.ProgramName()),
		attribute.Bool("cmd.error", false),
	}
	if meta.Identity != "" {
		attrs = append(attrs, attribute.String("cmd.identity", meta.Identity))
	}
	if meta.Dir != "" {
		attrs = append(attrs, attribute.String("cmd.dir", meta.Dir))
	}
	if len(meta.Args) > 0 {
		attrs = append(attrs, attribute.StringSlice("cmd.args", meta.Args))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the outcome and error status.
func (t *tracerImpl) EndSpan(span trace.Span, report RunReport, err error) {
	span.SetAttributes(
		attribute.String("cmd.outcome", string(report.outcome(err))),
		attribute.Int("cmd.deps", report.Dependencies),
		attribute.Int("cmd.exit_code", report.ExitCode),
	)
	if report.StoreFailed {
		span.SetAttributes(attribute.Bool("cmd.store_failed", true))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("cmd.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CommandMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, report RunReport, err error) {
	span.End()
}
