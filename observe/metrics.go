package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome classifies how a run was served.
type Outcome string

const (
	OutcomeHit   Outcome = "hit"   // served from a fresh entry
	OutcomeMiss  Outcome = "miss"  // nothing stored; command executed
	OutcomeStale Outcome = "stale" // stored entry invalidated; command executed
	OutcomeError Outcome = "error" // no usable result
)

// RunReport summarizes a finished run for telemetry.
type RunReport struct {
	Outcome      Outcome
	ExitCode     int
	Dependencies int

	// StoreFailed marks a run that produced a usable result which could not
	// be persisted. The accompanying error is reported as a warning.
	StoreFailed bool
}

// outcome falls back to OutcomeError when a failed run did not set one.
func (r RunReport) outcome(err error) Outcome {
	if r.Outcome == "" {
		if err != nil {
			return OutcomeError
		}
		return OutcomeMiss
	}
	return r.Outcome
}

// Metrics records run metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRun records one run with its duration, outcome and error status.
	RecordRun(ctx context.Context, meta CommandMeta, report RunReport, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	depsHist     metric.Int64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"evalcache.run.total",
		metric.WithDescription("Total number of command runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"evalcache.run.errors",
		metric.WithDescription("Total number of command runs that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"evalcache.run.duration_ms",
		metric.WithDescription("Run duration in milliseconds, including cache validation"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	depsHist, err := meter.Int64Histogram(
		"evalcache.deps.count",
		metric.WithDescription("Number of tracked dependencies per run"),
		metric.WithUnit("{path}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		depsHist:     depsHist,
	}, nil
}

// RecordRun records metrics for one run.
func (m *metricsImpl) RecordRun(ctx context.Context, meta CommandMeta, report RunReport, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("cmd.program", meta.ProgramName()),
		attribute.String("outcome", string(report.outcome(err))),
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
	m.depsHist.Record(ctx, int64(report.Dependencies), opt)
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordRun(ctx context.Context, meta CommandMeta, report RunReport, duration time.Duration, err error) {
}
