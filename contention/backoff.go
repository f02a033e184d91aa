package contention

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	defaultBackoffBase   = 5 * time.Millisecond
	defaultBackoffGrowth = 1.5
	defaultBackoffJitter = 20 * time.Millisecond
	defaultBackoffCap    = 200 * time.Millisecond
)

// BackoffFunc returns the wait before the next attempt, given the number of the attempt that just failed (1-based).
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff computes min(Base * Growth^attempt + random[0, Jitter), Cap).
type ExponentialBackoff struct {
	Base   time.Duration
	Growth float64
	Jitter time.Duration
	Cap    time.Duration
}

// DefaultBackoff returns the backoff used by OptimisticStrategy unless configured otherwise.
func DefaultBackoff() ExponentialBackoff {
	return ExponentialBackoff{
		Base:   defaultBackoffBase,
		Growth: defaultBackoffGrowth,
		Jitter: defaultBackoffJitter,
		Cap:    defaultBackoffCap,
	}
}

// Delay implements BackoffFunc.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	delay := float64(b.Base) * math.Pow(b.Growth, float64(attempt))

	if b.Jitter > 0 {
		delay += rand.Float64() * float64(b.Jitter) //nolint:gosec // math/rand is sufficient for jitter
	}

	if b.Cap > 0 && delay > float64(b.Cap) {
		return b.Cap
	}

	if delay >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

// FixedBackoff replays delays in order and repeats the last one; without delays it never waits.
func FixedBackoff(delays ...time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if len(delays) == 0 {
			return 0
		}

		if attempt < 1 {
			attempt = 1
		}

		return delays[min(attempt, len(delays))-1]
	}
}
