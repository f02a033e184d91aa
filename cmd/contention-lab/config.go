package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/AntonStoeckl/contention-lab/contention"
)

const (
	defaultStrategy          = "all"
	defaultCapacity          = 2
	defaultParticipants      = 5
	defaultStore             = "memory"
	defaultFormat            = formatText
	defaultLogLevel          = "warn"
	defaultRetryLimit        = 3
	defaultSettleDelay       = 100 * time.Millisecond
	defaultCompletionTimeout = 10 * time.Second
	strategyAll              = "all"
	formatText               = "text"
	formatJSON               = "json"
	storeMemory              = "memory"
	storePGX                 = "pgx"
	storeSQL                 = "sql"
	storeSQLX                = "sqlx"
)

var (
	ErrInvalidFormat = errors.New("format must be text or json")
	ErrInvalidStore  = errors.New("store must be memory, pgx, sql or sqlx")
)

// Config is the parsed command line.
type Config struct {
	Strategies           []contention.StrategyKind
	Capacity             int64
	Participants         int
	RetryLimit           int
	SettleDelay          time.Duration
	CompletionTimeout    time.Duration
	Store                string
	DSN                  string
	PoolName             string
	PlanURL              string
	ReportURL            string
	ServeAddr            string
	Format               string
	ObservabilityEnabled bool
	LogLevel             slog.Level
}

func parseFlags(args []string, output io.Writer) (Config, error) {
	flags := flag.NewFlagSet("contention-lab", flag.ContinueOnError)
	flags.SetOutput(output)

	var (
		strategy          = flags.String("strategy", defaultStrategy, "Strategy to run: race, pessimistic, optimistic or all")
		capacity          = flags.Int64("capacity", defaultCapacity, "Number of resources in the pool")
		participants      = flags.Int("participants", defaultParticipants, "Number of concurrent participants")
		retryLimit        = flags.Int("retries", defaultRetryLimit, "Maximum attempts of an optimistic participant")
		settleDelay       = flags.Duration("settle", defaultSettleDelay, "Delay between all participants being ready and the release")
		completionTimeout = flags.Duration("timeout", defaultCompletionTimeout, "Upper bound for one run")
		store             = flags.String("store", defaultStore, "Resource pool storage: memory, pgx, sql or sqlx")
		dsn               = flags.String("dsn", "", "PostgreSQL DSN (default $CONTENTION_POSTGRES_DSN)")
		poolName          = flags.String("pool-name", "default", "Row of the resource pool table to use")
		planURL           = flags.String("plan", "", "URL of a YAML experiment plan to execute")
		reportURL         = flags.String("report", "", "URL to upload the JSON experiment report to")
		serveAddr         = flags.String("serve", "", "Serve the HTTP API on this address instead of running once")
		format            = flags.String("format", defaultFormat, "Output format: text or json")
		observability     = flags.Bool("observability", false, "Enable OpenTelemetry tracing, metrics and log correlation")
		logLevel          = flags.String("log-level", defaultLogLevel, "Log level: debug, info, warn or error")
	)

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	strategies, err := parseStrategies(*strategy)
	if err != nil {
		return Config{}, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}

	cfg := Config{
		Strategies:           strategies,
		Capacity:             *capacity,
		Participants:         *participants,
		RetryLimit:           *retryLimit,
		SettleDelay:          *settleDelay,
		CompletionTimeout:    *completionTimeout,
		Store:                strings.ToLower(*store),
		DSN:                  *dsn,
		PoolName:             *poolName,
		PlanURL:              *planURL,
		ReportURL:            *reportURL,
		ServeAddr:            *serveAddr,
		Format:               strings.ToLower(*format),
		ObservabilityEnabled: *observability,
		LogLevel:             level,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func parseStrategies(value string) ([]contention.StrategyKind, error) {
	if strings.EqualFold(strings.TrimSpace(value), strategyAll) {
		return contention.StrategyKinds(), nil
	}

	var kinds []contention.StrategyKind
	for _, name := range strings.Split(value, ",") {
		kind, err := contention.ParseStrategyKind(name)
		if err != nil {
			return nil, err
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}

func (c Config) validate() error {
	if c.Capacity < 0 {
		return contention.ErrInvalidCapacity
	}

	if c.Participants <= 0 {
		return contention.ErrInvalidParticipantCount
	}

	if c.RetryLimit <= 0 {
		return contention.ErrInvalidRetryLimit
	}

	switch c.Format {
	case formatText, formatJSON:
	default:
		return ErrInvalidFormat
	}

	switch c.Store {
	case storeMemory, storePGX, storeSQL, storeSQLX:
	default:
		return ErrInvalidStore
	}

	return nil
}
