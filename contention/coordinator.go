package contention

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultSettleDelay       = 100 * time.Millisecond
	defaultCompletionTimeout = 10 * time.Second
)

// RunPhase is the coordinator's position in the run state machine.
type RunPhase int32

const (
	PhaseIdle RunPhase = iota
	PhaseResetting
	PhaseRunning
	PhaseAwaitingCompletion
	PhaseAggregating
)

// String provides a string representation of RunPhase for logging and debugging.
func (p RunPhase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseResetting:
		return "RESETTING"
	case PhaseRunning:
		return "RUNNING"
	case PhaseAwaitingCompletion:
		return "AWAITING_COMPLETION"
	case PhaseAggregating:
		return "AGGREGATING"
	default:
		return "UNKNOWN"
	}
}

// Coordinator orchestrates runs against one ResourcePool.
// Runs on the same Coordinator never overlap; a second concurrent Run fails with ErrRunInProgress.
type Coordinator struct {
	pool              ResourcePool
	eventLog          *EventLog
	strategies        map[StrategyKind]Strategy
	settleDelay       time.Duration
	completionTimeout time.Duration
	newID             func() string
	logger            Logger
	contextualLogger  ContextualLogger
	metricsCollector  MetricsCollector
	tracingCollector  TracingCollector

	running atomic.Bool
	phase   atomic.Int32

	// stragglers is closed once every participant of the previous run has returned.
	// Only accessed by the goroutine holding running.
	stragglers <-chan struct{}

	mu          sync.Mutex
	lastSummary *RunSummary
}

// NewCoordinator creates a Coordinator with the three default strategies and optional configuration.
func NewCoordinator(pool ResourcePool, eventLog *EventLog, options ...Option) (*Coordinator, error) {
	if pool == nil {
		return nil, ErrNilResourcePool
	}

	if eventLog == nil {
		return nil, ErrNilEventLog
	}

	strategies, err := defaultStrategies()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		pool:              pool,
		eventLog:          eventLog,
		strategies:        strategies,
		settleDelay:       defaultSettleDelay,
		completionTimeout: defaultCompletionTimeout,
		newID:             newUUIDv7,
	}

	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func defaultStrategies() (map[StrategyKind]Strategy, error) {
	race, err := NewRaceStrategy()
	if err != nil {
		return nil, err
	}

	pessimistic, err := NewPessimisticStrategy()
	if err != nil {
		return nil, err
	}

	optimistic, err := NewOptimisticStrategy()
	if err != nil {
		return nil, err
	}

	return map[StrategyKind]Strategy{
		Race:        race,
		Pessimistic: pessimistic,
		Optimistic:  optimistic,
	}, nil
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// Run executes one run of the strategy of the given kind: reset the pool to capacity, start
// participants tasks gated on a shared start barrier, release them at once, wait for completion
// (bounded by the completion timeout) and summarize.
//
// Participant failures and completion timeouts are reported in the RunSummary, not as errors.
func (c *Coordinator) Run(ctx context.Context, kind StrategyKind, capacity int64, participants int) (RunSummary, error) {
	if capacity < 0 {
		return RunSummary{}, ErrInvalidCapacity
	}

	if participants <= 0 {
		return RunSummary{}, ErrInvalidParticipantCount
	}

	strategy, ok := c.strategies[kind]
	if !ok {
		return RunSummary{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}

	if !c.running.CompareAndSwap(false, true) {
		return RunSummary{}, ErrRunInProgress
	}
	defer c.running.Store(false)
	defer c.setPhase(PhaseIdle)

	runID := c.newID()
	startedAt := time.Now()

	ctx, span := c.startRunSpan(ctx, runID, kind, capacity, participants)

	if err := c.awaitStragglers(ctx); err != nil {
		c.finishRunSpanError(span, statusCancelled)
		return RunSummary{}, err
	}

	// RESETTING
	c.setPhase(PhaseResetting)

	if err := c.pool.Reset(ctx, capacity); err != nil {
		c.logError(ctx, logMsgResetFailed, err, logAttrRunID, runID)
		c.finishRunSpanError(span, statusError)
		return RunSummary{}, errors.Join(ErrResettingPoolFailed, err)
	}

	c.eventLog.Appendf("[%s] run %s started: capacity %d, participants %d", kind, runID, capacity, participants)
	c.logInfo(ctx, logMsgRunStarted,
		logAttrRunID, runID,
		logAttrStrategy, string(kind),
		logAttrCapacity, capacity,
		logAttrParticipants, participants)

	// RUNNING
	c.setPhase(PhaseRunning)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	slots, done := c.startParticipants(runCtx, strategy, participants)

	// AWAITING_COMPLETION
	c.setPhase(PhaseAwaitingCompletion)

	timedOut := c.awaitCompletion(ctx, runID, done, slots)
	if timedOut {
		cancelRun()
		c.stragglers = done
	}

	// AGGREGATING
	c.setPhase(PhaseAggregating)

	summary, err := c.aggregate(ctx, kind, slots)
	summary.RunID = runID
	summary.Capacity = capacity
	summary.Participants = participants
	summary.TimedOut = timedOut
	summary.Cancelled = ctx.Err() != nil
	summary.Complete = !timedOut && len(summary.Results) == participants
	summary.StartedAt = startedAt
	summary.Duration = time.Since(startedAt)

	if err != nil {
		c.finishRunSpanError(span, statusError)
		return summary, err
	}

	if summary.Cancelled {
		c.logWarn(ctx, logMsgRunCancelled, logAttrRunID, runID, logAttrStrategy, string(kind))
	}

	c.eventLog.Appendf("[%s] run %s finished: %d results, %d winners, %d remaining",
		kind, runID, len(summary.Results), summary.SuccessCount(), summary.FinalCount)
	c.logInfo(ctx, logMsgRunCompleted,
		logAttrRunID, runID,
		logAttrStrategy, string(kind),
		logAttrWinners, summary.SuccessCount(),
		logAttrFinalCount, summary.FinalCount,
		logAttrDurationMS, toMilliseconds(summary.Duration))

	c.recordRunMetrics(ctx, summary)
	c.finishRunSpanSuccess(span, summary)

	c.mu.Lock()
	c.lastSummary = &summary
	c.mu.Unlock()

	return summary, nil
}

// startParticipants spawns one goroutine per participant, waits until all of them sit at the start
// gate, lets them settle and releases the gate once. The returned channel is closed when every
// participant has stored its result.
func (c *Coordinator) startParticipants(
	runCtx context.Context,
	strategy Strategy,
	participants int,
) ([]atomic.Pointer[ParticipantResult], <-chan struct{}) {

	gate := NewGate(participants)
	slots := make([]atomic.Pointer[ParticipantResult], participants)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(participants)

	for i := range participants {
		task := ParticipantTask{
			ParticipantID: i + 1,
			WorkerID:      c.newID(),
			Strategy:      strategy,
			Pool:          c.pool,
			EventLog:      c.eventLog,
			Gate:          gate,
		}

		go func() {
			defer wg.Done()

			result := task.Run(runCtx)
			slots[i].Store(&result)
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	if err := gate.WaitReady(runCtx); err == nil {
		_ = sleepContext(runCtx, c.settleDelay)
	}

	c.eventLog.Appendf("[%s] releasing %d participants", strategy.Kind(), gate.Arrived())
	gate.Release()

	return slots, done
}

// awaitCompletion waits for done, bounded by the completion timeout, and reports whether it timed out.
func (c *Coordinator) awaitCompletion(
	ctx context.Context,
	runID string,
	done <-chan struct{},
	slots []atomic.Pointer[ParticipantResult],
) bool {

	timer := time.NewTimer(c.completionTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return false

	case <-timer.C:
		outstanding := 0
		for i := range slots {
			if slots[i].Load() == nil {
				outstanding++
			}
		}

		c.eventLog.Appendf("run %s timed out after %s with %d participants outstanding",
			runID, c.completionTimeout, outstanding)
		c.logWarn(ctx, logMsgRunTimedOut,
			logAttrRunID, runID,
			logAttrOutstanding, outstanding,
			logAttrTimeoutMS, toMilliseconds(c.completionTimeout))

		return true
	}
}

// awaitStragglers blocks until participants left over from a timed-out previous run have returned,
// so they cannot touch the pool after it was reset.
func (c *Coordinator) awaitStragglers(ctx context.Context) error {
	if c.stragglers == nil {
		return nil
	}

	select {
	case <-c.stragglers:
		c.stragglers = nil
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) aggregate(
	ctx context.Context,
	kind StrategyKind,
	slots []atomic.Pointer[ParticipantResult],
) (RunSummary, error) {

	results := make([]ParticipantResult, 0, len(slots))
	for i := range slots {
		if result := slots[i].Load(); result != nil {
			results = append(results, *result)
		}
	}

	status, err := c.pool.Peek(context.WithoutCancel(ctx))
	if err != nil {
		c.logError(ctx, logMsgPeekFailed, err)
		return Summarize(kind, results, PoolStatus{}), err
	}

	return Summarize(kind, results, status), nil
}

// Log returns the event log lines since the last clear.
func (c *Coordinator) Log() []string {
	return c.eventLog.Snapshot()
}

// ClearLog empties the event log.
func (c *Coordinator) ClearLog() {
	c.eventLog.Clear()
}

// PoolStatus returns the current count and version of the pool.
func (c *Coordinator) PoolStatus(ctx context.Context) (PoolStatus, error) {
	return c.pool.Peek(ctx)
}

// Phase returns the current run phase.
func (c *Coordinator) Phase() RunPhase {
	return RunPhase(c.phase.Load())
}

// LastSummary returns the summary of the most recent successful Run.
func (c *Coordinator) LastSummary() (RunSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastSummary == nil {
		return RunSummary{}, false
	}

	return *c.lastSummary, true
}

func (c *Coordinator) setPhase(phase RunPhase) {
	c.phase.Store(int32(phase))
}
