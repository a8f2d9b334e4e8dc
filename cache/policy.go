package cache

// Policy configures which results may be stored.
type Policy struct {
	// CacheFailures permits storing results with a non-zero exit status.
	// A failed evaluation is often caused by state the log does not reveal
	// (network, missing credentials), so it is off by default.
	CacheFailures bool
}

// DefaultPolicy returns the default policy: only successful runs are stored.
func DefaultPolicy() Policy {
	return Policy{CacheFailures: false}
}

// ShouldStore reports whether a result with exitCode may be stored.
func (p Policy) ShouldStore(exitCode int) bool {
	return exitCode == 0 || p.CacheFailures
}
