package contention

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"
)

const (
	logMsgRunStarted    = "contention run started"
	logMsgRunCompleted  = "contention run completed"
	logMsgRunTimedOut   = "contention run timed out"
	logMsgRunCancelled  = "contention run cancelled"
	logMsgResetFailed   = "failed to reset resource pool"
	logMsgPeekFailed    = "failed to read resource pool after run"
	logAttrLine         = "line"
	logAttrError        = "error"
	logAttrRunID        = "run_id"
	logAttrStrategy     = "strategy"
	logAttrCapacity     = "capacity"
	logAttrParticipants = "participants"
	logAttrWinners      = "winners"
	logAttrFinalCount   = "final_count"
	logAttrOutstanding  = "outstanding"
	logAttrDurationMS   = "duration_ms"
	logAttrTimeoutMS    = "timeout_ms"
)

// Metric names recorded by the Coordinator.
const (
	MetricRunDuration         = "contention_run_duration_seconds"
	MetricParticipantOutcomes = "contention_participant_outcomes_total"
	MetricFinalCount          = "contention_final_count"
	MetricRunAttempts         = "contention_run_attempts"
	MetricCASConflicts        = "contention_cas_conflicts_total"
)

// Span name and span attribute keys used by the Coordinator.
const (
	SpanNameRun             = "contention.Run"
	SpanAttrRunID           = "run_id"
	SpanAttrStrategy        = "strategy"
	SpanAttrCapacity        = "capacity"
	SpanAttrParticipants    = "participants"
	SpanAttrWinners         = "winners"
	SpanAttrFinalCount      = "final_count"
	SpanAttrOversold        = "oversold"
	SpanAttrTimedOut        = "timed_out"
	SpanAttrDurationMS      = "duration_ms"
	LabelStrategy           = "strategy"
	LabelOutcome            = "outcome"
	LabelStatus             = "status"
	outcomeSuccess          = "success"
	outcomeFailure          = "failure"
	statusSuccess           = "success"
	statusError             = "error"
	statusCancelled         = "cancelled"
	statusTimedOut          = "timeout"
	durationAttributeFormat = "%.2f"
)

// logInfo logs operational information at info level to every configured logger.
func (c *Coordinator) logInfo(ctx context.Context, message string, args ...any) {
	if c.logger != nil {
		c.logger.Info(message, args...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.InfoContext(ctx, message, args...)
	}
}

// logWarn logs warnings to every configured logger.
func (c *Coordinator) logWarn(ctx context.Context, message string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(message, args...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level to every configured logger.
func (c *Coordinator) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if c.logger != nil {
		c.logger.Error(message, allArgs...)
	}

	if c.contextualLogger != nil {
		c.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordRunMetrics records all metrics of a finished run if the metrics collector is configured.
func (c *Coordinator) recordRunMetrics(ctx context.Context, summary RunSummary) {
	if c.metricsCollector == nil {
		return
	}

	strategy := string(summary.Strategy)

	status := statusSuccess
	if summary.TimedOut {
		status = statusTimedOut
	}

	c.recordDuration(ctx, MetricRunDuration, summary.Duration, map[string]string{
		LabelStrategy: strategy,
		LabelStatus:   status,
	})

	conflicts := 0
	for _, result := range summary.Results {
		outcome := outcomeFailure
		if result.Success {
			outcome = outcomeSuccess
		}

		c.incrementCounter(ctx, MetricParticipantOutcomes, map[string]string{
			LabelStrategy: strategy,
			LabelOutcome:  outcome,
		})

		conflicts += result.Conflicts
	}

	for range conflicts {
		c.incrementCounter(ctx, MetricCASConflicts, map[string]string{LabelStrategy: strategy})
	}

	labels := map[string]string{LabelStrategy: strategy}
	c.recordValue(ctx, MetricFinalCount, float64(summary.FinalCount), labels)
	c.recordValue(ctx, MetricRunAttempts, float64(summary.TotalAttempts), labels)
}

func (c *Coordinator) recordDuration(ctx context.Context, metric string, d time.Duration, labels map[string]string) {
	if contextualCollector, ok := c.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, d, labels)
		return
	}

	c.metricsCollector.RecordDuration(metric, d, labels)
}

func (c *Coordinator) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if contextualCollector, ok := c.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(metric, labels)
}

func (c *Coordinator) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if contextualCollector, ok := c.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	c.metricsCollector.RecordValue(metric, value, labels)
}

// startRunSpan starts the run span if the tracing collector is configured.
func (c *Coordinator) startRunSpan(
	ctx context.Context,
	runID string,
	kind StrategyKind,
	capacity int64,
	participants int,
) (context.Context, SpanContext) {

	if c.tracingCollector == nil {
		return ctx, nil
	}

	return c.tracingCollector.StartSpan(ctx, SpanNameRun, map[string]string{
		SpanAttrRunID:        runID,
		SpanAttrStrategy:     string(kind),
		SpanAttrCapacity:     strconv.FormatInt(capacity, 10),
		SpanAttrParticipants: strconv.Itoa(participants),
	})
}

// finishRunSpanSuccess finishes the run span with the run's results.
func (c *Coordinator) finishRunSpanSuccess(span SpanContext, summary RunSummary) {
	if c.tracingCollector == nil || span == nil {
		return
	}

	status := statusSuccess
	if summary.TimedOut {
		status = statusTimedOut
	}

	c.tracingCollector.FinishSpan(span, status, map[string]string{
		SpanAttrWinners:    strconv.Itoa(summary.SuccessCount()),
		SpanAttrFinalCount: strconv.FormatInt(summary.FinalCount, 10),
		SpanAttrOversold:   strconv.FormatBool(summary.Oversold()),
		SpanAttrTimedOut:   strconv.FormatBool(summary.TimedOut),
		SpanAttrDurationMS: fmt.Sprintf(durationAttributeFormat, toMilliseconds(summary.Duration)),
	})
}

// finishRunSpanError finishes the run span of a run that did not produce a summary.
func (c *Coordinator) finishRunSpanError(span SpanContext, status string) {
	if c.tracingCollector == nil || span == nil {
		return
	}

	c.tracingCollector.FinishSpan(span, status, nil)
}
