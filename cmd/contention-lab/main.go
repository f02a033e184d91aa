// Command contention-lab runs concurrent resource allocation experiments.
//
// One-shot runs:
//
//	contention-lab -strategy all -capacity 2 -participants 5
//
// Experiment plans with a JSON report:
//
//	contention-lab -plan plan.yaml -report file:///tmp/report.json
//
// HTTP API:
//
//	contention-lab -serve :8080
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viant/afs"
	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/contention-lab/contention"
	"github.com/AntonStoeckl/contention-lab/experiment"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}

		log.Fatalf("contention-lab: %v", err)
	}
}

// run is main without the process globals.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	obsConfig, err := cfg.NewObservabilityConfig(ctx, stderr)
	if err != nil {
		return fmt.Errorf("failed to set up observability: %w", err)
	}

	defer func() {
		if shutdownErr := obsConfig.Shutdown(); shutdownErr != nil {
			obsConfig.Logger.Error("observability shutdown failed", "error", shutdownErr.Error())
		}
	}()

	pool, closePool, err := openPool(ctx, cfg, obsConfig.Logger)
	if err != nil {
		return fmt.Errorf("failed to open %s resource pool: %w", cfg.Store, err)
	}
	defer closePool()

	eventLog, err := contention.NewEventLog(contention.WithMirror(obsConfig.Logger))
	if err != nil {
		return err
	}

	coordinator, err := newCoordinator(cfg, pool, eventLog, obsConfig)
	if err != nil {
		return err
	}

	switch {
	case cfg.ServeAddr != "":
		return serve(ctx, cfg, coordinator, eventLog, obsConfig)
	case cfg.PlanURL != "":
		return executePlan(ctx, cfg, coordinator, obsConfig, stdout)
	default:
		return runOnce(ctx, cfg, coordinator, stdout)
	}
}

func newCoordinator(
	cfg Config,
	pool contention.ResourcePool,
	eventLog *contention.EventLog,
	obsConfig ObservabilityConfig,
) (*contention.Coordinator, error) {

	optimistic, err := contention.NewOptimisticStrategy(contention.WithRetryLimit(cfg.RetryLimit))
	if err != nil {
		return nil, err
	}

	options := []contention.Option{
		contention.WithStrategy(optimistic),
		contention.WithSettleDelay(cfg.SettleDelay),
		contention.WithCompletionTimeout(cfg.CompletionTimeout),
	}

	return contention.NewCoordinator(pool, eventLog, append(options, obsConfig.CoordinatorOptions()...)...)
}

func runOnce(ctx context.Context, cfg Config, coordinator *contention.Coordinator, stdout io.Writer) error {
	summaries := make([]contention.RunSummary, 0, len(cfg.Strategies))

	for _, kind := range cfg.Strategies {
		summary, err := coordinator.Run(ctx, kind, cfg.Capacity, cfg.Participants)
		if err != nil {
			return fmt.Errorf("%s run failed: %w", kind, err)
		}

		summaries = append(summaries, summary)
	}

	return renderSummaries(stdout, cfg.Format, summaries)
}

func executePlan(
	ctx context.Context,
	cfg Config,
	coordinator *contention.Coordinator,
	obsConfig ObservabilityConfig,
	stdout io.Writer,
) error {

	fs := afs.New()

	plan, err := experiment.LoadPlan(ctx, fs, cfg.PlanURL)
	if err != nil {
		return err
	}

	runner, err := experiment.NewRunner(coordinator, experiment.WithLogger(obsConfig.Logger))
	if err != nil {
		return err
	}

	report, runErr := runner.Execute(ctx, plan)

	if cfg.ReportURL != "" && len(report.Runs) > 0 {
		if err := experiment.UploadReport(ctx, fs, cfg.ReportURL, report); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if err := renderReport(stdout, cfg.Format, report); err != nil {
		return errors.Join(runErr, err)
	}

	return runErr
}

func serve(
	ctx context.Context,
	cfg Config,
	coordinator *contention.Coordinator,
	eventLog *contention.EventLog,
	obsConfig ObservabilityConfig,
) error {

	logger := obsConfig.slogger
	httpServer := newHTTPServer(cfg.ServeAddr, newServer(coordinator, eventLog, cfg.Capacity, cfg.Participants, logger).routes())

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("serving contention-lab API", "addr", cfg.ServeAddr, "store", cfg.Store)

		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
