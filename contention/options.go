package contention

import (
	"time"
)

// Option defines a functional option for configuring Coordinator.
type Option func(*Coordinator) error

// WithStrategy registers s for its kind, replacing the default strategy of that kind.
func WithStrategy(s Strategy) Option {
	return func(c *Coordinator) error {
		if s == nil {
			return ErrNilStrategy
		}

		c.strategies[s.Kind()] = s

		return nil
	}
}

// WithSettleDelay sets how long the coordinator waits after all participants reached the start gate
// before releasing it (default 100ms).
func WithSettleDelay(delay time.Duration) Option {
	return func(c *Coordinator) error {
		if delay < 0 {
			return ErrNegativeDelay
		}

		c.settleDelay = delay

		return nil
	}
}

// WithCompletionTimeout bounds the wait for all participants to finish (default 10s).
// A run that hits it returns a partial RunSummary.
func WithCompletionTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) error {
		if timeout <= 0 {
			return ErrInvalidTimeout
		}

		c.completionTimeout = timeout

		return nil
	}
}

// WithIDGenerator replaces the UUIDv7 generator used for run and worker IDs.
func WithIDGenerator(generate func() string) Option {
	return func(c *Coordinator) error {
		if generate == nil {
			return ErrNilFunction
		}

		c.newID = generate

		return nil
	}
}

// WithLogger sets the logger for the Coordinator.
//
// Info level: run started/finished with winners and final count
// Warn level: completion timeouts and cancelled runs
// Error level: pool reset or read failures.
func WithLogger(logger Logger) Option {
	return func(c *Coordinator) error {
		c.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, used in addition to the plain logger.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(c *Coordinator) error {
		c.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Coordinator.
func WithMetrics(collector MetricsCollector) Option {
	return func(c *Coordinator) error {
		c.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Coordinator. One span is created per run.
func WithTracing(collector TracingCollector) Option {
	return func(c *Coordinator) error {
		c.tracingCollector = collector
		return nil
	}
}
