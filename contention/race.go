package contention

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultRaceDelayLower = 100 * time.Millisecond
	defaultRaceDelayUpper = 200 * time.Millisecond
)

// ReadHook runs after a participant's unsynchronized read and before its simulated processing.
type ReadHook func(ctx context.Context, participantID int) error

// RaceStrategy is the unsynchronized strategy: check, simulated processing, unchecked decrement.
// It deliberately lets the pool go negative when several participants pass the check before
// any of them decrements.
type RaceStrategy struct {
	processingDelay DelayFunc
	afterRead       ReadHook
}

// RaceOption defines a functional option for configuring RaceStrategy.
type RaceOption func(*RaceStrategy) error

// WithRaceProcessingDelay sets the simulated processing latency between read and decrement.
// The default is uniformly random in [100ms, 200ms).
func WithRaceProcessingDelay(delay DelayFunc) RaceOption {
	return func(s *RaceStrategy) error {
		if delay == nil {
			return ErrNilFunction
		}

		s.processingDelay = delay

		return nil
	}
}

// WithAfterRead installs a hook between the read and the processing delay.
// Tests use it to hold every participant until all reads have completed.
func WithAfterRead(hook ReadHook) RaceOption {
	return func(s *RaceStrategy) error {
		if hook == nil {
			return ErrNilFunction
		}

		s.afterRead = hook

		return nil
	}
}

// NewRaceStrategy creates a RaceStrategy with optional configuration.
func NewRaceStrategy(options ...RaceOption) (*RaceStrategy, error) {
	s := &RaceStrategy{
		processingDelay: UniformDelay(defaultRaceDelayLower, defaultRaceDelayUpper),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Kind implements Strategy.
func (s *RaceStrategy) Kind() StrategyKind {
	return Race
}

// Attempt implements Strategy.
func (s *RaceStrategy) Attempt(ctx context.Context, pool ResourcePool, participantID int, eventLog *EventLog) ParticipantResult {
	const attempts = 1

	status, err := pool.Peek(ctx)
	if err != nil {
		eventLog.Appendf("[%s] participant %d - read failed: %v", Race, participantID, err)
		return storageFailure(participantID, attempts, err)
	}

	if status.Count <= 0 {
		eventLog.Appendf("[%s] participant %d - %s", Race, participantID, msgNoResourceAvailable)
		return failed(participantID, attempts, msgNoResourceAvailable, ErrNoResourceAvailable)
	}

	eventLog.Appendf("[%s] participant %d - observed %d, processing...", Race, participantID, status.Count)

	if s.afterRead != nil {
		if hookErr := s.afterRead(ctx, participantID); hookErr != nil {
			return cancelled(participantID, attempts, hookErr)
		}
	}

	if sleepErr := sleepContext(ctx, s.processingDelay()); sleepErr != nil {
		eventLog.Appendf("[%s] participant %d - %s during processing", Race, participantID, msgCancelled)
		return cancelled(participantID, attempts, sleepErr)
	}

	// The value read above may be stale by now; that is the point.
	after, err := pool.RawDecrement(ctx)
	if err != nil {
		eventLog.Appendf("[%s] participant %d - decrement failed: %v", Race, participantID, err)
		return storageFailure(participantID, attempts, err)
	}

	message := fmt.Sprintf("acquired (remaining: %d)", after.Count)
	if after.Count < 0 {
		message += " - pool oversold"
	}

	eventLog.Appendf("[%s] participant %d - %s", Race, participantID, message)

	return succeeded(participantID, attempts, message)
}

var _ Strategy = (*RaceStrategy)(nil)
