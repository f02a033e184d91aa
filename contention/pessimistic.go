package contention

import (
	"context"
	"fmt"
	"time"
)

const defaultPessimisticDelay = 150 * time.Millisecond

// PessimisticStrategy serializes check-and-decrement behind the pool's lock.
//
// Lock acquisition has no timeout. A holder that stalls inside the critical section stalls every
// other participant; only cancellation of the waiter's context gets it out.
type PessimisticStrategy struct {
	processingDelay DelayFunc
}

// PessimisticOption defines a functional option for configuring PessimisticStrategy.
type PessimisticOption func(*PessimisticStrategy) error

// WithPessimisticProcessingDelay sets the simulated processing latency inside the critical section.
// The default is a fixed 150ms.
func WithPessimisticProcessingDelay(delay DelayFunc) PessimisticOption {
	return func(s *PessimisticStrategy) error {
		if delay == nil {
			return ErrNilFunction
		}

		s.processingDelay = delay

		return nil
	}
}

// NewPessimisticStrategy creates a PessimisticStrategy with optional configuration.
func NewPessimisticStrategy(options ...PessimisticOption) (*PessimisticStrategy, error) {
	s := &PessimisticStrategy{processingDelay: FixedDelay(defaultPessimisticDelay)}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Kind implements Strategy.
func (s *PessimisticStrategy) Kind() StrategyKind {
	return Pessimistic
}

// Attempt implements Strategy.
func (s *PessimisticStrategy) Attempt(ctx context.Context, pool ResourcePool, participantID int, eventLog *EventLog) (result ParticipantResult) {
	const attempts = 1

	eventLog.Appendf("[%s] participant %d - waiting for lock", Pessimistic, participantID)

	locked, err := pool.Lock(ctx)
	if err != nil {
		if ctx.Err() != nil {
			eventLog.Appendf("[%s] participant %d - %s while waiting for lock", Pessimistic, participantID, msgCancelled)
			return cancelled(participantID, attempts, err)
		}

		return storageFailure(participantID, attempts, err)
	}

	eventLog.Appendf("[%s] participant %d - lock acquired", Pessimistic, participantID)

	defer func() {
		// Release must succeed even when ctx is already cancelled.
		if unlockErr := locked.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			eventLog.Appendf("[%s] participant %d - releasing lock failed: %v", Pessimistic, participantID, unlockErr)
			if result.Success {
				result = storageFailure(participantID, attempts, unlockErr)
			}

			return
		}

		eventLog.Appendf("[%s] participant %d - lock released", Pessimistic, participantID)
	}()

	status, err := locked.Peek(ctx)
	if err != nil {
		return storageFailure(participantID, attempts, err)
	}

	if status.Count <= 0 {
		eventLog.Appendf("[%s] participant %d - %s", Pessimistic, participantID, msgResourceExhausted)
		return failed(participantID, attempts, msgResourceExhausted, ErrResourceExhausted)
	}

	if sleepErr := sleepContext(ctx, s.processingDelay()); sleepErr != nil {
		eventLog.Appendf("[%s] participant %d - %s inside critical section", Pessimistic, participantID, msgCancelled)
		return cancelled(participantID, attempts, sleepErr)
	}

	ok, after, err := locked.TryDecrement(ctx)
	if err != nil {
		return storageFailure(participantID, attempts, err)
	}

	if !ok {
		eventLog.Appendf("[%s] participant %d - %s", Pessimistic, participantID, msgResourceExhausted)
		return failed(participantID, attempts, msgResourceExhausted, ErrResourceExhausted)
	}

	message := fmt.Sprintf("acquired (remaining: %d)", after.Count)
	eventLog.Appendf("[%s] participant %d - %s", Pessimistic, participantID, message)

	return succeeded(participantID, attempts, message)
}

var _ Strategy = (*PessimisticStrategy)(nil)
