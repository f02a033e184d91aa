package experiment

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/AntonStoeckl/contention-lab/contention"
)

// RunRecord is the condensed outcome of one executed run.
type RunRecord struct {
	Iteration    int                     `json:"iteration"`
	RunID        string                  `json:"runId"`
	Strategy     contention.StrategyKind `json:"strategy"`
	Capacity     int64                   `json:"capacity"`
	Participants int                     `json:"participants"`
	Successes    int                     `json:"successes"`
	FinalCount   int64                   `json:"finalCount"`
	Attempts     int                     `json:"attempts"`
	Conflicts    int                     `json:"conflicts"`
	Oversold     bool                    `json:"oversold"`
	Complete     bool                    `json:"complete"`
	DurationMS   float64                 `json:"durationMs"`
}

// StrategyStats aggregates all runs of one strategy.
type StrategyStats struct {
	Strategy         contention.StrategyKind `json:"strategy"`
	Runs             int                     `json:"runs"`
	OversoldRuns     int                     `json:"oversoldRuns"`
	IncompleteRuns   int                     `json:"incompleteRuns"`
	MinFinalCount    int64                   `json:"minFinalCount"`
	MaxFinalCount    int64                   `json:"maxFinalCount"`
	AverageSuccesses float64                 `json:"averageSuccesses"`
	TotalConflicts   int                     `json:"totalConflicts"`

	totalSuccesses int
}

// Report is the result of executing a Plan.
type Report struct {
	Plan       string          `json:"plan"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	Runs       []RunRecord     `json:"runs"`
	Strategies []StrategyStats `json:"strategies"`
}

// Stats returns the aggregate of kind, if the report contains runs of it.
func (r Report) Stats(kind contention.StrategyKind) (StrategyStats, bool) {
	for _, stats := range r.Strategies {
		if stats.Strategy == kind {
			return stats, true
		}
	}

	return StrategyStats{}, false
}

// OversoldRuns returns the number of runs that handed out more than the capacity.
func (r Report) OversoldRuns() int {
	total := 0
	for _, stats := range r.Strategies {
		total += stats.OversoldRuns
	}

	return total
}

// MarshalIndent renders the report as indented JSON.
func (r Report) MarshalIndent() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(r, "", "  ")
}

// UploadReport writes the report as JSON to URL through fs.
func UploadReport(ctx context.Context, fs afs.Service, URL string, report Report) error {
	data, err := report.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload report to %s: %w", URL, err)
	}

	return nil
}

// reportBuilder accumulates run records and strategy stats in plan order.
type reportBuilder struct {
	report Report
	stats  map[contention.StrategyKind]*StrategyStats
	order  []contention.StrategyKind
}

func newReportBuilder(plan Plan, startedAt time.Time) *reportBuilder {
	return &reportBuilder{
		report: Report{
			Plan:      plan.Name,
			StartedAt: startedAt,
			Runs:      make([]RunRecord, 0, plan.TotalRuns()),
		},
		stats: make(map[contention.StrategyKind]*StrategyStats),
	}
}

func (b *reportBuilder) add(iteration int, summary contention.RunSummary) {
	conflicts := 0
	for _, result := range summary.Results {
		conflicts += result.Conflicts
	}

	b.report.Runs = append(b.report.Runs, RunRecord{
		Iteration:    iteration,
		RunID:        summary.RunID,
		Strategy:     summary.Strategy,
		Capacity:     summary.Capacity,
		Participants: summary.Participants,
		Successes:    summary.SuccessCount(),
		FinalCount:   summary.FinalCount,
		Attempts:     summary.TotalAttempts,
		Conflicts:    conflicts,
		Oversold:     summary.Oversold(),
		Complete:     summary.Complete,
		DurationMS:   math.Round(float64(summary.Duration.Microseconds())) / 1000,
	})

	stats, ok := b.stats[summary.Strategy]
	if !ok {
		stats = &StrategyStats{
			Strategy:      summary.Strategy,
			MinFinalCount: summary.FinalCount,
			MaxFinalCount: summary.FinalCount,
		}
		b.stats[summary.Strategy] = stats
		b.order = append(b.order, summary.Strategy)
	}

	stats.Runs++
	stats.totalSuccesses += summary.SuccessCount()
	stats.TotalConflicts += conflicts
	stats.MinFinalCount = min(stats.MinFinalCount, summary.FinalCount)
	stats.MaxFinalCount = max(stats.MaxFinalCount, summary.FinalCount)
	stats.AverageSuccesses = float64(stats.totalSuccesses) / float64(stats.Runs)

	if summary.Oversold() {
		stats.OversoldRuns++
	}

	if !summary.Complete {
		stats.IncompleteRuns++
	}
}

func (b *reportBuilder) build(finishedAt time.Time) Report {
	report := b.report
	report.FinishedAt = finishedAt
	report.Strategies = make([]StrategyStats, 0, len(b.order))

	for _, kind := range b.order {
		report.Strategies = append(report.Strategies, *b.stats[kind])
	}

	return report
}
