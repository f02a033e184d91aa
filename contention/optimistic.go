package contention

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultRetryLimit  = 3
	defaultRetryBudget = 5 * time.Second
)

// OptimisticStrategy acquires through versioned compare-and-decrement.
//
// Per participant it loops CHECK -> ATTEMPT -> BACKOFF -> CHECK ... and stops on the first of:
// success, pool observed empty, wall-clock budget exceeded, retry limit reached, cancellation.
// The pool is only ever mutated by the atomic compare step.
type OptimisticStrategy struct {
	retryLimit  int
	retryBudget time.Duration
	backoff     BackoffFunc
	thinkTime   DelayFunc
	now         func() time.Time
}

// OptimisticOption defines a functional option for configuring OptimisticStrategy.
type OptimisticOption func(*OptimisticStrategy) error

// WithRetryLimit sets the maximum number of attempts per participant (default 3).
func WithRetryLimit(limit int) OptimisticOption {
	return func(s *OptimisticStrategy) error {
		if limit <= 0 {
			return ErrInvalidRetryLimit
		}

		s.retryLimit = limit

		return nil
	}
}

// WithRetryBudget sets the wall-clock budget per participant (default 5s).
func WithRetryBudget(budget time.Duration) OptimisticOption {
	return func(s *OptimisticStrategy) error {
		if budget <= 0 {
			return ErrInvalidRetryBudget
		}

		s.retryBudget = budget

		return nil
	}
}

// WithBackoff replaces the jittered exponential backoff, e.g. with FixedBackoff() for zero-delay tests.
func WithBackoff(backoff BackoffFunc) OptimisticOption {
	return func(s *OptimisticStrategy) error {
		if backoff == nil {
			return ErrNilFunction
		}

		s.backoff = backoff

		return nil
	}
}

// WithThinkTime inserts a simulated processing delay between reading the version and the compare step.
// It widens the conflict window; there is none by default.
func WithThinkTime(delay DelayFunc) OptimisticOption {
	return func(s *OptimisticStrategy) error {
		if delay == nil {
			return ErrNilFunction
		}

		s.thinkTime = delay

		return nil
	}
}

// WithClock replaces time.Now for the budget check.
func WithClock(now func() time.Time) OptimisticOption {
	return func(s *OptimisticStrategy) error {
		if now == nil {
			return ErrNilFunction
		}

		s.now = now

		return nil
	}
}

// NewOptimisticStrategy creates an OptimisticStrategy with optional configuration.
func NewOptimisticStrategy(options ...OptimisticOption) (*OptimisticStrategy, error) {
	s := &OptimisticStrategy{
		retryLimit:  defaultRetryLimit,
		retryBudget: defaultRetryBudget,
		backoff:     DefaultBackoff().Delay,
		now:         time.Now,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Kind implements Strategy.
func (s *OptimisticStrategy) Kind() StrategyKind {
	return Optimistic
}

// RetryLimit returns the configured maximum number of attempts.
func (s *OptimisticStrategy) RetryLimit() int {
	return s.retryLimit
}

// Attempt implements Strategy.
func (s *OptimisticStrategy) Attempt(ctx context.Context, pool ResourcePool, participantID int, eventLog *EventLog) ParticipantResult {
	started := s.now()
	conflicts := 0

	eventLog.Appendf("[%s] participant %d - started", Optimistic, participantID)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return withConflicts(cancelled(participantID, attempt-1, err), conflicts)
		}

		// CHECK
		status, err := pool.Peek(ctx)
		if err != nil {
			return withConflicts(storageFailure(participantID, attempt, err), conflicts)
		}

		if status.Count <= 0 {
			message := fmt.Sprintf("%s (%d attempts)", msgResourceExhausted, attempt)
			eventLog.Appendf("[%s] participant %d - %s", Optimistic, participantID, message)
			return withConflicts(failed(participantID, attempt, message, ErrResourceExhausted), conflicts)
		}

		if s.now().Sub(started) > s.retryBudget {
			message := fmt.Sprintf("timeout (%d attempts)", attempt)
			eventLog.Appendf("[%s] participant %d - %s", Optimistic, participantID, message)
			return withConflicts(failed(participantID, attempt, message, ErrRunTimeout), conflicts)
		}

		if s.thinkTime != nil {
			if sleepErr := sleepContext(ctx, s.thinkTime()); sleepErr != nil {
				return withConflicts(cancelled(participantID, attempt, sleepErr), conflicts)
			}
		}

		// ATTEMPT
		ok, after, err := pool.CompareAndDecrement(ctx, status.Version)
		if err != nil {
			return withConflicts(storageFailure(participantID, attempt, err), conflicts)
		}

		if ok {
			message := fmt.Sprintf("acquired (attempt %d, remaining: %d)", attempt, after.Count)
			eventLog.Appendf("[%s] participant %d - %s", Optimistic, participantID, message)
			return withConflicts(succeeded(participantID, attempt, message), conflicts)
		}

		conflicts++
		eventLog.Appendf("[%s] participant %d - version conflict at v%d, attempt %d/%d",
			Optimistic, participantID, status.Version, attempt, s.retryLimit)

		if attempt >= s.retryLimit {
			message := fmt.Sprintf("%s (%d attempts)", ErrRetryBudgetExceeded.Error(), attempt)
			eventLog.Appendf("[%s] participant %d - %s", Optimistic, participantID, message)
			return withConflicts(failed(participantID, attempt, message, ErrRetryBudgetExceeded), conflicts)
		}

		// BACKOFF
		if sleepErr := sleepContext(ctx, s.backoff(attempt)); sleepErr != nil {
			eventLog.Appendf("[%s] participant %d - %s during backoff", Optimistic, participantID, msgCancelled)
			return withConflicts(cancelled(participantID, attempt, sleepErr), conflicts)
		}
	}
}

func withConflicts(result ParticipantResult, conflicts int) ParticipantResult {
	result.Conflicts = conflicts
	return result
}

var _ Strategy = (*OptimisticStrategy)(nil)
