package doctor

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout bounds a whole Run.
const DefaultTimeout = 10 * time.Second

// Report pairs a checker name with its result.
type Report struct {
	Name   string
	Result Result
}

// Doctor runs a fixed set of checks in parallel.
type Doctor struct {
	timeout  time.Duration
	checkers []Checker
}

// New returns a Doctor running checkers. A non-positive timeout means DefaultTimeout.
func New(timeout time.Duration, checkers ...Checker) *Doctor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Doctor{timeout: timeout, checkers: checkers}
}

// Run executes every check and returns reports in registration order.
// A check still running at the deadline is reported unhealthy with ErrCheckTimeout.
func (d *Doctor) Run(ctx context.Context) []Report {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	reports := make([]Report, len(d.checkers))
	var wg sync.WaitGroup
	for i, c := range d.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i] = Report{Name: c.Name(), Result: runCheck(ctx, c)}
		}()
	}
	wg.Wait()
	return reports
}

func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)
	go func() {
		resultCh <- c.Check(ctx)
	}()

	var res Result
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		res = Unhealthy("check timed out", ErrCheckTimeout)
	}
	res.Duration = time.Since(start)
	return res
}

// Overall is the worst status among reports. No reports is healthy.
func Overall(reports []Report) Status {
	worst := StatusHealthy
	for _, r := range reports {
		if r.Result.Status > worst {
			worst = r.Result.Status
		}
	}
	return worst
}
