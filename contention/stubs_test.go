package contention_test

import (
	"context"
	"errors"

	"github.com/AntonStoeckl/contention-lab/contention"
)

var errStorageUnavailable = errors.New("storage unavailable")

// conflictingPool loses every compare-and-decrement.
type conflictingPool struct {
	*contention.MemoryPool
}

func (p conflictingPool) CompareAndDecrement(_ context.Context, _ uint64) (bool, contention.PoolStatus, error) {
	return false, contention.PoolStatus{}, nil
}

// unreadablePool fails every read.
type unreadablePool struct {
	*contention.MemoryPool
}

func (p unreadablePool) Peek(_ context.Context) (contention.PoolStatus, error) {
	return contention.PoolStatus{}, errStorageUnavailable
}

// blockingStrategy lets participant 1 win immediately and holds everybody else until unblock is closed.
// It ignores cancellation on purpose.
type blockingStrategy struct {
	kind    contention.StrategyKind
	unblock chan struct{}
}

func (s blockingStrategy) Kind() contention.StrategyKind {
	return s.kind
}

func (s blockingStrategy) Attempt(
	ctx context.Context,
	pool contention.ResourcePool,
	participantID int,
	_ *contention.EventLog,
) contention.ParticipantResult {

	if participantID == 1 {
		locked, err := pool.Lock(ctx)
		if err != nil {
			return contention.ParticipantResult{ParticipantID: participantID, Err: err}
		}
		defer func() { _ = locked.Unlock(ctx) }()

		ok, _, _ := locked.TryDecrement(ctx)

		return contention.ParticipantResult{ParticipantID: participantID, Success: ok, Attempts: 1}
	}

	<-s.unblock

	return contention.ParticipantResult{
		ParticipantID: participantID,
		Message:       "released late",
		Attempts:      1,
		Err:           contention.ErrCancelled,
	}
}

// failingResetPool cannot be reset.
type failingResetPool struct {
	*contention.MemoryPool
}

func (p failingResetPool) Reset(_ context.Context, _ int64) error {
	return errStorageUnavailable
}
