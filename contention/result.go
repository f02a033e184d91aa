package contention

import (
	"slices"
	"time"
)

// ParticipantResult is the single, immutable outcome of one participant in one run.
type ParticipantResult struct {
	ParticipantID int       `json:"participantId"`
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	Attempts      int       `json:"attempts"`
	Conflicts     int       `json:"conflicts"`
	WorkerID      string    `json:"workerId"`
	Timestamp     time.Time `json:"timestamp"`

	// Err is the failure reason (nil on success), comparable with errors.Is against
	// ErrResourceExhausted, ErrNoResourceAvailable, ErrRetryBudgetExceeded, ErrRunTimeout, ErrCancelled.
	Err error `json:"-"`
}

// RunSummary is derived from the results of one run and the pool state at aggregation time.
type RunSummary struct {
	RunID         string              `json:"runId"`
	Strategy      StrategyKind        `json:"strategy"`
	Capacity      int64               `json:"capacity"`
	Participants  int                 `json:"participants"`
	FinalCount    int64               `json:"finalCount"`
	FinalVersion  uint64              `json:"finalVersion"`
	Winners       []int               `json:"winners"`
	Results       []ParticipantResult `json:"results"`
	TotalAttempts int                 `json:"totalAttempts"`
	Complete      bool                `json:"complete"`
	TimedOut      bool                `json:"timedOut"`
	Cancelled     bool                `json:"cancelled"`
	StartedAt     time.Time           `json:"startedAt"`
	Duration      time.Duration       `json:"duration"`
}

// SuccessCount returns the number of winners.
func (s RunSummary) SuccessCount() int {
	return len(s.Winners)
}

// Oversold reports whether the run handed out more slots than the pool had.
func (s RunSummary) Oversold() bool {
	return s.FinalCount < 0 || int64(len(s.Winners)) > s.Capacity
}

// Summarize builds the run-level facts from whatever results are present.
// Results and Winners are ordered by participant ID; FinalCount and FinalVersion come from status.
// The input slice is not modified.
func Summarize(kind StrategyKind, results []ParticipantResult, status PoolStatus) RunSummary {
	ordered := slices.Clone(results)
	slices.SortFunc(ordered, func(a, b ParticipantResult) int {
		return a.ParticipantID - b.ParticipantID
	})

	winners := make([]int, 0, len(ordered))
	totalAttempts := 0

	for _, result := range ordered {
		if result.Success {
			winners = append(winners, result.ParticipantID)
		}

		totalAttempts += result.Attempts
	}

	if ordered == nil {
		ordered = make([]ParticipantResult, 0)
	}

	return RunSummary{
		Strategy:      kind,
		FinalCount:    status.Count,
		FinalVersion:  status.Version,
		Winners:       winners,
		Results:       ordered,
		TotalAttempts: totalAttempts,
	}
}
