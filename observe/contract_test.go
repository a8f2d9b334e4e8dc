package observe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestObserverContract_Noops(t *testing.T) {
	cfg := Config{
		ServiceName: "observe-test",
		Tracing: TracingConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
		},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Fatalf("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Fatalf("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestLoggerContract_WithCommand(t *testing.T) {
	logger := NopLogger()
	if logger.WithCommand(CommandMeta{Program: "nix"}) == nil {
		t.Fatalf("WithCommand should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	metrics.RecordRun(context.Background(), CommandMeta{Program: "nix"}, RunReport{Outcome: OutcomeHit}, 10*time.Millisecond, nil)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	ctx := context.Background()
	_, span := tracer.StartSpan(ctx, CommandMeta{Program: "nix"})
	tracer.EndSpan(span, RunReport{}, errors.New("boom"))
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("expected ErrNilObserver, got: %v", err)
	}
}
