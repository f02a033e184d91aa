package contention_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/contention-lab/contention"
)

func Test_ParseStrategyKind(t *testing.T) {
	tests := []struct {
		input string
		want  contention.StrategyKind
	}{
		{input: "race", want: contention.Race},
		{input: "unsynchronized", want: contention.Race},
		{input: " Pessimistic ", want: contention.Pessimistic},
		{input: "OPTIMISTIC", want: contention.Optimistic},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			// act
			kind, err := contention.ParseStrategyKind(tt.input)

			// assert
			assert.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func Test_ParseStrategyKind_RejectsUnknownNames(t *testing.T) {
	// act
	_, err := contention.ParseStrategyKind("lottery")

	// assert
	assert.ErrorIs(t, err, contention.ErrUnknownStrategy)
}

func Test_StrategyKind_String_IsTheDisplayName(t *testing.T) {
	assert.Equal(t, "Race", contention.Race.String())
	assert.Equal(t, "Pessimistic", contention.Pessimistic.String())
	assert.Equal(t, "Optimistic", contention.Optimistic.String())
}

func Test_UniformDelay_StaysWithinBounds(t *testing.T) {
	// setup
	delay := contention.UniformDelay(10*time.Millisecond, 20*time.Millisecond)

	for range 100 {
		// act
		d := delay()

		// assert
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}
}

func Test_ExponentialBackoff_GrowsAndIsCapped(t *testing.T) {
	// setup
	backoff := contention.ExponentialBackoff{Base: 10 * time.Millisecond, Growth: 2, Cap: 50 * time.Millisecond}

	// act + assert
	assert.Equal(t, 20*time.Millisecond, backoff.Delay(1))
	assert.Equal(t, 40*time.Millisecond, backoff.Delay(2))
	assert.Equal(t, 50*time.Millisecond, backoff.Delay(3))
}

func Test_ExponentialBackoff_WithoutCapSaturatesInsteadOfOverflowing(t *testing.T) {
	// setup
	backoff := contention.ExponentialBackoff{Base: time.Second, Growth: 2}

	// act + assert
	assert.Equal(t, time.Duration(math.MaxInt64), backoff.Delay(200))
	assert.Equal(t, time.Duration(math.MaxInt64), backoff.Delay(5000))
	assert.Equal(t, 4*time.Second, backoff.Delay(2))
}

func Test_ExponentialBackoff_AddsBoundedJitter(t *testing.T) {
	// setup
	backoff := contention.DefaultBackoff()
	lower := time.Duration(float64(backoff.Base) * 1.5)

	for range 100 {
		// act
		d := backoff.Delay(1)

		// assert
		assert.GreaterOrEqual(t, d, lower)
		assert.Less(t, d, lower+backoff.Jitter)
	}
}

func Test_FixedBackoff_RepeatsTheLastDelay(t *testing.T) {
	// setup
	backoff := contention.FixedBackoff(time.Millisecond, 3*time.Millisecond)

	// act + assert
	assert.Equal(t, time.Millisecond, backoff(1))
	assert.Equal(t, 3*time.Millisecond, backoff(2))
	assert.Equal(t, 3*time.Millisecond, backoff(9))
	assert.Equal(t, time.Duration(0), contention.FixedBackoff()(1))
}

func Test_Summarize_OrdersResultsAndDerivesWinners(t *testing.T) {
	// setup
	results := []contention.ParticipantResult{
		{ParticipantID: 3, Success: true, Attempts: 2},
		{ParticipantID: 1, Success: false, Attempts: 1},
		{ParticipantID: 2, Success: true, Attempts: 1},
	}

	// act
	summary := contention.Summarize(contention.Optimistic, results, contention.PoolStatus{Count: 0, Version: 2})

	// assert
	assert.Equal(t, []int{2, 3}, summary.Winners)
	assert.Equal(t, 1, summary.Results[0].ParticipantID)
	assert.Equal(t, 3, results[0].ParticipantID, "input must not be reordered")
	assert.Equal(t, 4, summary.TotalAttempts)
	assert.Equal(t, int64(0), summary.FinalCount)
	assert.Equal(t, uint64(2), summary.FinalVersion)
}

func Test_Summarize_WithoutResultsHasEmptySlices(t *testing.T) {
	// act
	summary := contention.Summarize(contention.Race, nil, contention.PoolStatus{Count: 2})

	// assert
	assert.NotNil(t, summary.Results)
	assert.NotNil(t, summary.Winners)
	assert.Equal(t, 0, summary.SuccessCount())
}

func Test_RunSummary_Oversold(t *testing.T) {
	assert.True(t, contention.RunSummary{Capacity: 2, FinalCount: -3, Winners: []int{1, 2, 3, 4, 5}}.Oversold())
	assert.False(t, contention.RunSummary{Capacity: 2, FinalCount: 0, Winners: []int{1, 2}}.Oversold())
}
