package contention

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// StrategyKind names an allocation strategy.
type StrategyKind string

const (
	Race        StrategyKind = "race"
	Pessimistic StrategyKind = "pessimistic"
	Optimistic  StrategyKind = "optimistic"
)

// StrategyKinds lists all kinds in presentation order.
func StrategyKinds() []StrategyKind {
	return []StrategyKind{Race, Pessimistic, Optimistic}
}

// ParseStrategyKind accepts a kind name case-insensitively; "unsynchronized" is an alias of race.
func ParseStrategyKind(name string) (StrategyKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(Race), "unsynchronized":
		return Race, nil
	case string(Pessimistic):
		return Pessimistic, nil
	case string(Optimistic):
		return Optimistic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// String provides the display name used in event log lines.
func (k StrategyKind) String() string {
	switch k {
	case Race:
		return "Race"
	case Pessimistic:
		return "Pessimistic"
	case Optimistic:
		return "Optimistic"
	default:
		return "unknown"
	}
}

// Strategy is one acquisition algorithm. Attempt performs exactly one acquisition for
// participantID against pool and never panics or returns an error: every terminal state
// becomes a ParticipantResult. WorkerID and Timestamp are filled in by the caller.
type Strategy interface {
	Kind() StrategyKind
	Attempt(ctx context.Context, pool ResourcePool, participantID int, eventLog *EventLog) ParticipantResult
}

// DelayFunc returns a simulated processing latency.
type DelayFunc func() time.Duration

// FixedDelay returns a DelayFunc that always yields d.
func FixedDelay(d time.Duration) DelayFunc {
	return func() time.Duration { return d }
}

// UniformDelay returns a DelayFunc yielding a random duration in [lower, upper).
func UniformDelay(lower, upper time.Duration) DelayFunc {
	return func() time.Duration {
		if upper <= lower {
			return lower
		}

		return lower + rand.N(upper-lower) //nolint:gosec // math/rand is sufficient for simulated latency
	}
}

const (
	msgNoResourceAvailable = "no resource available"
	msgResourceExhausted   = "resource exhausted"
	msgCancelled           = "cancelled"
	msgStorageFailure      = "storage failure"
)

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func succeeded(participantID, attempts int, message string) ParticipantResult {
	return ParticipantResult{
		ParticipantID: participantID,
		Success:       true,
		Message:       message,
		Attempts:      attempts,
	}
}

func failed(participantID, attempts int, message string, reason error) ParticipantResult {
	return ParticipantResult{
		ParticipantID: participantID,
		Message:       message,
		Attempts:      attempts,
		Err:           reason,
	}
}

func cancelled(participantID, attempts int, cause error) ParticipantResult {
	return failed(participantID, attempts, msgCancelled, errors.Join(ErrCancelled, cause))
}

func storageFailure(participantID, attempts int, err error) ParticipantResult {
	return failed(participantID, attempts, fmt.Sprintf("%s: %v", msgStorageFailure, err), err)
}
