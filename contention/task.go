package contention

import (
	"context"
	"time"
)

const msgCancelledBeforeStart = "cancelled before start"

// ParticipantTask is the unit of work of one participant: wait at the gate, then perform exactly one
// acquisition with the given strategy.
type ParticipantTask struct {
	ParticipantID int
	WorkerID      string
	Strategy      Strategy
	Pool          ResourcePool
	EventLog      *EventLog
	Gate          *Gate
	Now           func() time.Time
}

// Run executes the task and always produces exactly one result.
func (t ParticipantTask) Run(ctx context.Context) ParticipantResult {
	var result ParticipantResult

	if err := t.Gate.Await(ctx); err != nil {
		t.EventLog.Appendf("[%s] participant %d - %s", t.Strategy.Kind(), t.ParticipantID, msgCancelledBeforeStart)
		result = cancelled(t.ParticipantID, 0, err)
		result.Message = msgCancelledBeforeStart
	} else {
		t.EventLog.Appendf("[%s] participant %d (worker %s) - started", t.Strategy.Kind(), t.ParticipantID, t.WorkerID)
		result = t.Strategy.Attempt(ctx, t.Pool, t.ParticipantID, t.EventLog)
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	result.ParticipantID = t.ParticipantID
	result.WorkerID = t.WorkerID
	result.Timestamp = now()

	return result
}
