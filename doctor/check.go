package doctor

import (
	"context"
	"time"
)

// Status is the outcome of one check.
type Status int

const (
	// StatusHealthy means the component works.
	StatusHealthy Status = iota
	// StatusDegraded means runs still work but caching is impaired.
	StatusDegraded
	// StatusUnhealthy means runs will fail.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result is what a check reports.
type Result struct {
	Status  Status
	Message string
	Err     error

	// Duration is filled in by Doctor.
	Duration time.Duration
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded result.
func Degraded(message string, err error) Result {
	return Result{Status: StatusDegraded, Message: message, Err: err}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Err: err}
}

// Checker inspects one component.
//
// Contract:
// - Context: Check must return promptly once ctx is done.
// - Concurrency: checks may run in parallel with each other.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a named CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the checker name.
func (f *CheckerFunc) Name() string { return f.name }

// Check calls the wrapped function.
func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }
