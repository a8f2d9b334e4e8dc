package resilience

import "errors"

// ErrMaxRetriesExceeded is returned when every attempt failed with a
// transient error. The last error is wrapped alongside it.
var ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")
