package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Common rate limiter errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RateLimiterConfig configures a rate limiter.
type RateLimiterConfig struct {
	// Name identifies this rate limiter for metrics/logging.
	Name string
	// Limit is the number of requests allowed per Window.
	Limit int
	// Window is the interval Limit applies to. Defaults to one second.
	Window time.Duration
	// Burst is how many requests may go out back to back. Defaults to Limit.
	// With Burst 1 starts are spaced Window/Limit apart, so no rolling Window
	// ever holds more than Limit of them.
	Burst int
	// OnLimit is called when a request has to wait or is rejected.
	OnLimit func(name string)
}

// DefaultRateLimiterConfig returns sensible defaults.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:   name,
		Limit:  10,
		Window: time.Second,
	}
}

// RateLimiter spreads Limit admissions over Window. Up to Burst requests
// may go out back to back; after that, one slot frees every Window/Limit.
type RateLimiter struct {
	config  RateLimiterConfig
	limiter *rate.Limiter

	mu    sync.RWMutex
	limit int
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Limit <= 0 {
		config.Limit = 10
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}

	return &RateLimiter{
		config:  config,
		limiter: rate.NewLimiter(every(config.Window, config.Limit), burst(config, config.Limit)),
		limit:   config.Limit,
	}
}

// every rounds the interval up so Limit intervals never fall short of window.
func every(window time.Duration, limit int) rate.Limit {
	n := time.Duration(limit)
	return rate.Every((window + n - 1) / n)
}

func burst(config RateLimiterConfig, limit int) int {
	if config.Burst > 0 {
		return config.Burst
	}
	return limit
}

// Allow checks if a request is allowed without blocking.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.Allow() {
		return true
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
	return false
}

// Wait blocks until a request is allowed or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.await(ctx, rl.limiter.Reserve())
}

// await sleeps until r's time comes, giving the slot back if ctx ends first.
func (rl *RateLimiter) await(ctx context.Context, r *rate.Reservation) error {
	if !r.OK() {
		return ErrRateLimited
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs a function if rate limit allows.
func (rl *RateLimiter) Execute(fn func() error) error {
	if !rl.Allow() {
		return ErrRateLimited
	}
	return fn()
}

// ExecuteWait blocks until rate limit allows, then runs the function.
func (rl *RateLimiter) ExecuteWait(ctx context.Context, fn func() error) error {
	if err := rl.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// SetLimit changes the number of requests allowed per window on the live
// limiter. Reservations already handed out keep their times. It reports
// whether the limit changed.
func (rl *RateLimiter) SetLimit(limit int) bool {
	limit = max(limit, 1)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.limit == limit {
		return false
	}
	rl.limit = limit
	now := time.Now()
	rl.limiter.SetLimitAt(now, every(rl.config.Window, limit))
	rl.limiter.SetBurstAt(now, burst(rl.config, limit))
	return true
}

// Limit returns the number of requests allowed per window.
func (rl *RateLimiter) Limit() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.limit
}

// Window returns the window the limit applies to.
func (rl *RateLimiter) Window() time.Duration {
	return rl.config.Window
}
