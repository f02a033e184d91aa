package helper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/contention-lab/contention"
)

// GivenEventLog creates an empty EventLog.
func GivenEventLog(t testing.TB, options ...contention.EventLogOption) *contention.EventLog {
	eventLog, err := contention.NewEventLog(options...)
	require.NoError(t, err, "error in arranging test data")

	return eventLog
}

// GivenMemoryPoolWithCapacity creates a MemoryPool reset to capacity.
func GivenMemoryPoolWithCapacity(t testing.TB, capacity int64) *contention.MemoryPool {
	pool := contention.NewMemoryPool()
	require.NoError(t, pool.Reset(t.Context(), capacity), "error in arranging test data")

	return pool
}

// GivenFastRaceStrategy creates a RaceStrategy with a fixed processing delay.
func GivenFastRaceStrategy(t testing.TB, delay time.Duration, options ...contention.RaceOption) *contention.RaceStrategy {
	options = append([]contention.RaceOption{contention.WithRaceProcessingDelay(contention.FixedDelay(delay))}, options...)

	strategy, err := contention.NewRaceStrategy(options...)
	require.NoError(t, err, "error in arranging test data")

	return strategy
}

// GivenFastPessimisticStrategy creates a PessimisticStrategy with a fixed processing delay.
func GivenFastPessimisticStrategy(t testing.TB, delay time.Duration) *contention.PessimisticStrategy {
	strategy, err := contention.NewPessimisticStrategy(
		contention.WithPessimisticProcessingDelay(contention.FixedDelay(delay)))
	require.NoError(t, err, "error in arranging test data")

	return strategy
}

// GivenFastOptimisticStrategy creates an OptimisticStrategy that never sleeps between attempts.
func GivenFastOptimisticStrategy(t testing.TB, retryLimit int, options ...contention.OptimisticOption) *contention.OptimisticStrategy {
	options = append([]contention.OptimisticOption{
		contention.WithRetryLimit(retryLimit),
		contention.WithBackoff(contention.FixedBackoff()),
	}, options...)

	strategy, err := contention.NewOptimisticStrategy(options...)
	require.NoError(t, err, "error in arranging test data")

	return strategy
}

// GivenFastCoordinator creates a Coordinator without settle delay and with fast strategies.
// The optimistic retry limit is high enough for every participant count used in tests.
func GivenFastCoordinator(
	t testing.TB,
	pool contention.ResourcePool,
	eventLog *contention.EventLog,
	options ...contention.Option,
) *contention.Coordinator {

	const fastDelay = 2 * time.Millisecond
	const retryLimit = 64

	defaults := []contention.Option{
		contention.WithSettleDelay(0),
		contention.WithStrategy(GivenFastRaceStrategy(t, fastDelay)),
		contention.WithStrategy(GivenFastPessimisticStrategy(t, fastDelay)),
		contention.WithStrategy(GivenFastOptimisticStrategy(t, retryLimit)),
	}

	coordinator, err := contention.NewCoordinator(pool, eventLog, append(defaults, options...)...)
	require.NoError(t, err, "error in arranging test data")

	return coordinator
}

// ResultFor returns the result of participantID from summary.
func ResultFor(t testing.TB, summary contention.RunSummary, participantID int) contention.ParticipantResult {
	for _, result := range summary.Results {
		if result.ParticipantID == participantID {
			return result
		}
	}

	require.Failf(t, "result not found", "participant %d has no result", participantID)

	return contention.ParticipantResult{}
}
