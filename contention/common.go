package contention

import (
	"errors"
)

// Terminal failure reasons of a participant. They are carried in ParticipantResult.Err and never
// returned from Coordinator.Run.
var (
	ErrResourceExhausted   = errors.New("resource exhausted")
	ErrNoResourceAvailable = errors.New("no resource available")
	ErrRetryBudgetExceeded = errors.New("max retries exceeded")
	ErrRunTimeout          = errors.New("timeout")
	ErrCancelled           = errors.New("cancelled")
)

var (
	ErrNilResourcePool         = errors.New("resource pool must not be nil")
	ErrNilEventLog             = errors.New("event log must not be nil")
	ErrNilStrategy             = errors.New("strategy must not be nil")
	ErrUnknownStrategy         = errors.New("unknown strategy")
	ErrInvalidCapacity         = errors.New("capacity must not be negative")
	ErrInvalidParticipantCount = errors.New("participant count must be positive")
	ErrRunInProgress           = errors.New("another run is in progress on this coordinator")
	ErrResettingPoolFailed     = errors.New("resetting the resource pool failed")
	ErrInvalidRetryLimit       = errors.New("retry limit must be positive")
	ErrInvalidRetryBudget      = errors.New("retry budget must be positive")
	ErrNegativeDelay           = errors.New("delay must not be negative")
	ErrInvalidTimeout          = errors.New("timeout must be positive")
	ErrNilFunction             = errors.New("function must not be nil")
	ErrLockNotHeld             = errors.New("lock is not held")
)

// PoolStatus is a point-in-time view of a ResourcePool.
type PoolStatus struct {
	Count   int64  `json:"count"`
	Version uint64 `json:"version"`
}
