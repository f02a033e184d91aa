package contention_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/testutil/helper"
)

func Test_ParticipantTask_Run_StampsIdentityAndTimestamp(t *testing.T) {
	// setup
	fixedNow := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	gate := contention.NewGate(1)
	gate.Release()

	task := contention.ParticipantTask{
		ParticipantID: 7,
		WorkerID:      "worker-7",
		Strategy:      helper.GivenFastPessimisticStrategy(t, 0),
		Pool:          helper.GivenMemoryPoolWithCapacity(t, 1),
		EventLog:      helper.GivenEventLog(t),
		Gate:          gate,
		Now:           func() time.Time { return fixedNow },
	}

	// act
	result := task.Run(t.Context())

	// assert
	assert.True(t, result.Success)
	assert.Equal(t, 7, result.ParticipantID)
	assert.Equal(t, "worker-7", result.WorkerID)
	assert.Equal(t, fixedNow, result.Timestamp)
}

func Test_ParticipantTask_Run_CancelledBeforeStart(t *testing.T) {
	// setup
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	pool := helper.GivenMemoryPoolWithCapacity(t, 1)
	task := contention.ParticipantTask{
		ParticipantID: 1,
		Strategy:      helper.GivenFastRaceStrategy(t, 0),
		Pool:          pool,
		EventLog:      helper.GivenEventLog(t),
		Gate:          contention.NewGate(2),
	}

	// act
	result := task.Run(ctx)

	// assert
	assert.False(t, result.Success)
	assert.Equal(t, "cancelled before start", result.Message)
	assert.Equal(t, 0, result.Attempts)
	assert.ErrorIs(t, result.Err, contention.ErrCancelled)
	status, _ := pool.Peek(t.Context())
	assert.Equal(t, int64(1), status.Count)
}
