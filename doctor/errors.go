package doctor

import "errors"

var (
	// ErrCheckTimeout indicates a check did not finish before the deadline.
	ErrCheckTimeout = errors.New("doctor: check timeout")

	// ErrRoundTripMismatch indicates the store returned something other than what was written.
	ErrRoundTripMismatch = errors.New("doctor: store read back different data")
)
