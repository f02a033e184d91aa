package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/contention-lab/contention"
)

const (
	logMsgPlanStarted  = "experiment plan started"
	logMsgPlanFinished = "experiment plan finished"
	logMsgRunFailed    = "experiment run failed"
	logAttrPlan        = "plan"
	logAttrIteration   = "iteration"
	logAttrStrategy    = "strategy"
	logAttrRuns        = "runs"
	logAttrOversold    = "oversold_runs"
	logAttrError       = "error"
)

var ErrNilExecutor = errors.New("run executor must not be nil")

// RunExecutor executes a single run. *contention.Coordinator implements it.
type RunExecutor interface {
	Run(ctx context.Context, kind contention.StrategyKind, capacity int64, participants int) (contention.RunSummary, error)
}

// Option defines a functional option for configuring Runner.
type Option func(*Runner) error

// WithLogger sets the logger for the Runner.
//
// Info level: plan started/finished
// Error level: runs that failed to execute.
func WithLogger(logger contention.Logger) Option {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// WithClock replaces time.Now for the report timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) error {
		if now == nil {
			return contention.ErrNilFunction
		}

		r.now = now

		return nil
	}
}

// Runner executes plans sequentially against one RunExecutor.
type Runner struct {
	executor RunExecutor
	logger   contention.Logger
	now      func() time.Time
}

// NewRunner creates a Runner with optional configuration.
func NewRunner(executor RunExecutor, options ...Option) (*Runner, error) {
	if executor == nil {
		return nil, ErrNilExecutor
	}

	r := &Runner{executor: executor, now: time.Now}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Execute runs every RunSpec of plan, plan.Repeat times, in order.
// On the first failing run it stops and returns the report of the runs completed so far together
// with the error.
func (r *Runner) Execute(ctx context.Context, plan Plan) (Report, error) {
	builder := newReportBuilder(plan, r.now())

	r.logInfo(logMsgPlanStarted, logAttrPlan, plan.Name, logAttrRuns, plan.TotalRuns())

	for iteration := 1; iteration <= plan.Repeat; iteration++ {
		for _, run := range plan.Runs {
			summary, err := r.executor.Run(ctx, run.Strategy, run.Capacity, run.Participants)
			if err != nil {
				r.logError(logMsgRunFailed, err,
					logAttrPlan, plan.Name,
					logAttrIteration, iteration,
					logAttrStrategy, string(run.Strategy))

				return builder.build(r.now()), fmt.Errorf("iteration %d, %s run: %w", iteration, run.Strategy, err)
			}

			builder.add(iteration, summary)
		}
	}

	report := builder.build(r.now())

	r.logInfo(logMsgPlanFinished,
		logAttrPlan, plan.Name,
		logAttrRuns, len(report.Runs),
		logAttrOversold, report.OversoldRuns())

	return report, nil
}

func (r *Runner) logInfo(message string, args ...any) {
	if r.logger != nil {
		r.logger.Info(message, args...)
	}
}

func (r *Runner) logError(message string, err error, args ...any) {
	if r.logger != nil {
		r.logger.Error(message, append([]any{logAttrError, err.Error()}, args...)...)
	}
}
