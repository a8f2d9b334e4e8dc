package runner

import "errors"

// Sentinel errors for runs.
var (
	// ErrSpawn indicates the process could not be started or waited on.
	ErrSpawn = errors.New("runner: spawn failed")

	// ErrLogStream indicates reading the process output streams failed.
	ErrLogStream = errors.New("runner: reading log stream failed")

	// ErrCanceled indicates the run was canceled or timed out. It always
	// wraps the context error as well.
	ErrCanceled = errors.New("runner: run canceled")

	// ErrNilCache indicates a Runner was built without a cache.
	ErrNilCache = errors.New("runner: cache is nil")
)
