package contention_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/testutil/helper"
)

func Test_OptimisticStrategy_Attempt_AcquiresOnFirstAttempt(t *testing.T) {
	// setup
	pool := helper.GivenMemoryPoolWithCapacity(t, 2)
	strategy := helper.GivenFastOptimisticStrategy(t, 3)

	// act
	result := strategy.Attempt(t.Context(), pool, 1, helper.GivenEventLog(t))

	// assert
	assert.True(t, result.Success)
	assert.Equal(t, "acquired (attempt 1, remaining: 1)", result.Message)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 0, result.Conflicts)
	status, _ := pool.Peek(t.Context())
	assert.Equal(t, contention.PoolStatus{Count: 1, Version: 1}, status)
}

func Test_OptimisticStrategy_Attempt_GivesUpAfterRetryLimit(t *testing.T) {
	// setup
	pool := conflictingPool{MemoryPool: helper.GivenMemoryPoolWithCapacity(t, 2)}
	eventLog := helper.GivenEventLog(t)
	strategy := helper.GivenFastOptimisticStrategy(t, 3)

	// act
	result := strategy.Attempt(t.Context(), pool, 2, eventLog)

	// assert
	assert.False(t, result.Success)
	assert.Equal(t, "max retries exceeded (3 attempts)", result.Message)
	assert.ErrorIs(t, result.Err, contention.ErrRetryBudgetExceeded)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, result.Conflicts)
	assert.Contains(t, eventLog.Snapshot(), "[Optimistic] participant 2 - version conflict at v0, attempt 3/3")
}

func Test_OptimisticStrategy_Attempt_StopsWhenPoolObservedEmpty(t *testing.T) {
	// setup
	pool := helper.GivenMemoryPoolWithCapacity(t, 0)
	strategy := helper.GivenFastOptimisticStrategy(t, 3)

	// act
	result := strategy.Attempt(t.Context(), pool, 1, helper.GivenEventLog(t))

	// assert
	assert.False(t, result.Success)
	assert.Equal(t, "resource exhausted (1 attempts)", result.Message)
	assert.ErrorIs(t, result.Err, contention.ErrResourceExhausted)
}

func Test_OptimisticStrategy_Attempt_StopsWhenRetryBudgetIsExceeded(t *testing.T) {
	// setup
	pool := conflictingPool{MemoryPool: helper.GivenMemoryPoolWithCapacity(t, 2)}
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tick := func() time.Time {
		now := clock
		clock = clock.Add(3 * time.Second)
		return now
	}

	strategy := helper.GivenFastOptimisticStrategy(t, 10, contention.WithClock(tick))

	// act
	result := strategy.Attempt(t.Context(), pool, 1, helper.GivenEventLog(t))

	// assert
	assert.False(t, result.Success)
	assert.Equal(t, "timeout (2 attempts)", result.Message)
	assert.ErrorIs(t, result.Err, contention.ErrRunTimeout)
	assert.Equal(t, 1, result.Conflicts)
}

func Test_OptimisticStrategy_Attempt_StopsWhenCancelledDuringBackoff(t *testing.T) {
	// setup
	pool := conflictingPool{MemoryPool: helper.GivenMemoryPoolWithCapacity(t, 2)}
	strategy := helper.GivenFastOptimisticStrategy(t, 10, contention.WithBackoff(contention.FixedBackoff(time.Second)))
	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	// act
	result := strategy.Attempt(ctx, pool, 1, helper.GivenEventLog(t))

	// assert
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, contention.ErrCancelled)
	assert.Equal(t, 1, result.Attempts)
}

func Test_NewOptimisticStrategy_RejectsInvalidOptions(t *testing.T) {
	_, err := contention.NewOptimisticStrategy(contention.WithRetryLimit(0))
	assert.ErrorIs(t, err, contention.ErrInvalidRetryLimit)

	_, err = contention.NewOptimisticStrategy(contention.WithRetryBudget(0))
	assert.ErrorIs(t, err, contention.ErrInvalidRetryBudget)

	_, err = contention.NewOptimisticStrategy(contention.WithBackoff(nil))
	assert.ErrorIs(t, err, contention.ErrNilFunction)
}

func Test_OptimisticStrategy_RetryLimit_DefaultsToThree(t *testing.T) {
	// act
	strategy, err := contention.NewOptimisticStrategy()

	// assert
	assert.NoError(t, err)
	assert.Equal(t, 3, strategy.RetryLimit())
}
