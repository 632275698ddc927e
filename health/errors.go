package health

import "errors"

var (
	// ErrCheckFailed marks an unhealthy result from a checker that has no
	// more specific cause, such as memory pressure.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is recorded when a checker does not answer within the
	// aggregator's per-check deadline.
	ErrCheckTimeout = errors.New("health: check deadline exceeded")

	// ErrCheckerNotFound is returned by Aggregator.Check for an unregistered name.
	ErrCheckerNotFound = errors.New("health: no checker registered under that name")

	// ErrRoundTripMismatch means a StorageChecker read back something other
	// than the value it just wrote.
	ErrRoundTripMismatch = errors.New("health: storage returned a different value")
)
