package observe

import (
	"context"
	"time"
)

// RunFunc is the signature Middleware wraps. It performs one run and reports
// how it was served.
type RunFunc func(ctx context.Context, meta CommandMeta) (RunReport, error)

// Middleware wraps runs with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe RunFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//     A report with StoreFailed set is recorded as a success and logged at warn.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(newNoopTracer(), &noopMetrics{}, &noopLogger{})
}

// Logger returns the logger the middleware writes run lines to.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap wraps a RunFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn RunFunc) RunFunc {
	return func(ctx context.Context, meta CommandMeta) (RunReport, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		report, err := fn(ctx, meta)

		// A result that was served but not stored is not a failed run.
		failed := err
		if report.StoreFailed {
			failed = nil
		}

		duration := time.Since(start)
		m.tracer.EndSpan(span, report, failed)
		m.metrics.RecordRun(ctx, meta, report, duration, failed)

		cmdLogger := m.logger.WithCommand(meta)
		fields := []Field{
			{Key: "outcome", Value: string(report.outcome(err))},
			{Key: "exit_code", Value: report.ExitCode},
			{Key: "deps", Value: report.Dependencies},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		switch {
		case failed != nil:
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			cmdLogger.Error(ctx, "run failed", fields...)
		case err != nil:
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			cmdLogger.Warn(ctx, "run completed, result not stored", fields...)
		default:
			cmdLogger.Info(ctx, "run completed", fields...)
		}

		return report, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
