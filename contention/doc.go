// Package contention provides a coordinator for controlled experiments that compare
// strategies for allocating a small, finite pool of slots under maximum contention.
//
// A run resets the pool, starts N participants that all block on a shared start gate,
// releases them at once and collects exactly one ParticipantResult per participant.
//
// Three allocation strategies are available:
//   - Race (unsynchronized): read, simulated processing, unchecked decrement; over-allocation is expected
//   - Pessimistic: one mutual-exclusion lock around check-and-decrement
//   - Optimistic: versioned compare-and-decrement with bounded retries and jittered exponential backoff
//
// Key types:
//   - ResourcePool: the shared counter and the three sanctioned mutation primitives
//   - MemoryPool: the in-memory ResourcePool
//   - EventLog: append-only, concurrency-safe trace of human-readable lines
//   - Strategy: one acquisition algorithm
//   - Coordinator: drives a run through its phases and produces a RunSummary
//
// Common usage pattern:
//
//	pool := contention.NewMemoryPool()
//
//	eventLog, err := contention.NewEventLog()
//	if err != nil {
//		// handle error
//	}
//
//	coordinator, err := contention.NewCoordinator(pool, eventLog)
//	if err != nil {
//		// handle error
//	}
//
//	summary, err := coordinator.Run(ctx, contention.Pessimistic, 2, 5)
//	if err != nil {
//		// handle error
//	}
//
//	fmt.Println(summary.Winners, summary.FinalCount)
package contention
