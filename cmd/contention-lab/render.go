package main

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/experiment"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// runResponse is the JSON shape of one run: the fields of the classic coupon API
// (type, finalCouponCount, message, winners, results) followed by the run details.
type runResponse struct {
	Type             contention.StrategyKind        `json:"type"`
	FinalCouponCount int64                          `json:"finalCouponCount"`
	Message          string                         `json:"message"`
	Winners          []int                          `json:"winners"`
	Results          []contention.ParticipantResult `json:"results"`
	RunID            string                         `json:"runId"`
	Capacity         int64                          `json:"capacity"`
	Participants     int                            `json:"participants"`
	FinalVersion     uint64                         `json:"finalVersion"`
	TotalAttempts    int                            `json:"totalAttempts"`
	Oversold         bool                           `json:"oversold"`
	Complete         bool                           `json:"complete"`
	TimedOut         bool                           `json:"timedOut"`
	Cancelled        bool                           `json:"cancelled"`
	DurationMS       float64                        `json:"durationMs"`
}

func newRunResponse(summary contention.RunSummary) runResponse {
	return runResponse{
		Type:             summary.Strategy,
		FinalCouponCount: summary.FinalCount,
		Message:          fmt.Sprintf("%s simulation finished", summary.Strategy),
		Winners:          summary.Winners,
		Results:          summary.Results,
		RunID:            summary.RunID,
		Capacity:         summary.Capacity,
		Participants:     summary.Participants,
		FinalVersion:     summary.FinalVersion,
		TotalAttempts:    summary.TotalAttempts,
		Oversold:         summary.Oversold(),
		Complete:         summary.Complete,
		TimedOut:         summary.TimedOut,
		Cancelled:        summary.Cancelled,
		DurationMS:       float64(summary.Duration.Microseconds()) / 1000,
	}
}

func renderSummaries(w io.Writer, format string, summaries []contention.RunSummary) error {
	if format == formatJSON {
		responses := make([]runResponse, 0, len(summaries))
		for _, summary := range summaries {
			responses = append(responses, newRunResponse(summary))
		}

		return writeIndentedJSON(w, responses)
	}

	for _, summary := range summaries {
		if _, err := io.WriteString(w, summaryText(summary)); err != nil {
			return err
		}
	}

	return nil
}

func summaryText(summary contention.RunSummary) string {
	var b strings.Builder

	verdict := "ok"
	switch {
	case summary.Oversold():
		verdict = "OVERSOLD"
	case !summary.Complete:
		verdict = "incomplete"
	}

	fmt.Fprintf(&b, "%s: %d of %d participants won, %d of %d resources remaining (%s)\n",
		summary.Strategy, summary.SuccessCount(), summary.Participants,
		summary.FinalCount, summary.Capacity, verdict)

	for _, result := range summary.Results {
		outcome := "lost"
		if result.Success {
			outcome = "won "
		}

		fmt.Fprintf(&b, "  participant %d %s attempts=%d  %s\n", result.ParticipantID, outcome, result.Attempts, result.Message)
	}

	return b.String()
}

func renderReport(w io.Writer, format string, report experiment.Report) error {
	if format == formatJSON {
		data, err := report.MarshalIndent()
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	}

	if _, err := fmt.Fprintf(w, "plan %q: %d runs, %d oversold\n", report.Plan, len(report.Runs), report.OversoldRuns()); err != nil {
		return err
	}

	for _, stats := range report.Strategies {
		_, err := fmt.Fprintf(w, "  %-12s runs=%d oversold=%d incomplete=%d final count %d..%d avg winners %.2f conflicts=%d\n",
			stats.Strategy, stats.Runs, stats.OversoldRuns, stats.IncompleteRuns,
			stats.MinFinalCount, stats.MaxFinalCount, stats.AverageSuccesses, stats.TotalConflicts)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeIndentedJSON(w io.Writer, value any) error {
	data, err := jsonAPI.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
