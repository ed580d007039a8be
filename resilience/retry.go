package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Common retry errors.
var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Backoff describes how long to wait between attempts.
//
// The delay before retry n (1-based) is
//
//	min(Initial * Factor^n, Max) + Floor + rand[0, Jitter)
type Backoff struct {
	// Initial is the base delay the exponential curve starts from.
	Initial time.Duration `yaml:"initial" mapstructure:"initial" validate:"gte=0"`
	// Max caps the exponential part of the delay.
	Max time.Duration `yaml:"max" mapstructure:"max" validate:"gte=0"`
	// Factor is the exponential growth factor.
	Factor float64 `yaml:"factor" mapstructure:"factor" validate:"gte=0"`
	// Floor is a constant added to every delay.
	Floor time.Duration `yaml:"floor" mapstructure:"floor" validate:"gte=0"`
	// Jitter is the upper bound of the random component added to every delay.
	Jitter time.Duration `yaml:"jitter" mapstructure:"jitter" validate:"gte=0"`
}

// DefaultBackoff grows by sqrt(2) from one second, with half a second floor
// and up to 200ms of jitter.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial: time.Second,
		Max:     time.Minute,
		Factor:  math.Sqrt2,
		Floor:   500 * time.Millisecond,
		Jitter:  200 * time.Millisecond,
	}
}

// Delay returns the wait before the given retry (1-based).
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	factor := b.Factor
	if factor <= 0 {
		factor = math.Sqrt2
	}

	exp := float64(b.Initial) * math.Pow(factor, float64(retry))
	if b.Max > 0 && exp > float64(b.Max) {
		exp = float64(b.Max)
	}

	d := time.Duration(exp) + b.Floor
	if b.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(b.Jitter)))
	}
	return d
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// Backoff computes the delay between attempts.
	Backoff Backoff
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool
	// Hint returns a server-mandated delay for err, or 0 to fall back to Backoff.
	Hint func(error) time.Duration
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 6,
		Backoff:     DefaultBackoff(),
		RetryIf:     DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry executes fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. It returns the result and error of the last attempt,
// so callers keep partial results (e.g. an error response) when retries stop.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return result, err
			}
			return result, ctxErr
		}

		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			return result, err
		}

		delay := cfg.Backoff.Delay(attempt)
		if cfg.Hint != nil {
			if hint := cfg.Hint(err); hint > 0 {
				delay = hint
			}
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, err
		case <-timer.C:
		}
	}

	return result, err
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
