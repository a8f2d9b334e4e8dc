package observe

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "run completed",
			Field{Key: "outcome", Value: "hit"},
			Field{Key: "deps", Value: 42},
		)
	}
}

func BenchmarkLogger_WithCommand_ThenLog(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	meta := CommandMeta{Identity: "cmd:ab", Program: "nix", Dir: "/src"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.WithCommand(meta).Info(ctx, "run completed")
	}
}

func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "filtered")
	}
}

func BenchmarkMetrics_RecordRun(b *testing.B) {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	m, _ := newMetrics(mp.Meter("bench"))
	ctx := context.Background()
	meta := CommandMeta{Program: "nix"}
	report := RunReport{Outcome: OutcomeHit, Dependencies: 10}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RecordRun(ctx, meta, report, time.Millisecond, nil)
	}
}

func BenchmarkMiddleware_Wrap(b *testing.B) {
	mw := NopMiddleware()
	run := mw.Wrap(func(ctx context.Context, meta CommandMeta) (RunReport, error) {
		return RunReport{Outcome: OutcomeHit}, nil
	})
	ctx := context.Background()
	meta := CommandMeta{Program: "nix"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = run(ctx, meta)
	}
}

func BenchmarkMiddleware_Wrap_WithError(b *testing.B) {
	mw := NewMiddleware(newNoopTracer(), &noopMetrics{}, NewLoggerWithWriter("info", io.Discard))
	failure := errors.New("exit status 1")
	run := mw.Wrap(func(ctx context.Context, meta CommandMeta) (RunReport, error) {
		return RunReport{}, failure
	})
	ctx := context.Background()
	meta := CommandMeta{Program: "nix"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = run(ctx, meta)
	}
}

func BenchmarkConfig_Validate(b *testing.B) {
	cfg := Config{
		ServiceName: "bench",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
