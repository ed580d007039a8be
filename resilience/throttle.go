package resilience

import (
	"context"
	"sync"
	"time"
)

// ThrottleConfig configures a Throttle.
type ThrottleConfig struct {
	// Name identifies this throttle for metrics/logging.
	Name string
	// Limit is both the number of requests allowed in flight and the number
	// allowed to start per Window.
	Limit int
	// Window is the interval Limit applies to. Defaults to one second.
	Window time.Duration
}

// Throttle admits at most Limit concurrent calls and at most Limit starts in
// any rolling Window. Callers past either bound queue in arrival order. The
// queue lives as long as the Throttle; SetLimit resizes it in place.
type Throttle struct {
	name     string
	bulkhead *Bulkhead
	limiter  *RateLimiter

	// mu orders limiter reservations by bulkhead admission and keeps the two
	// limits in step.
	mu sync.Mutex
}

// NewThrottle creates a throttle. A Limit below one is raised to one.
func NewThrottle(config ThrottleConfig) *Throttle {
	if config.Window <= 0 {
		config.Window = time.Second
	}
	limit := max(config.Limit, 1)

	return &Throttle{
		name: config.Name,
		bulkhead: NewBulkhead(BulkheadConfig{
			Name:          config.Name,
			MaxConcurrent: limit,
		}),
		limiter: NewRateLimiter(RateLimiterConfig{
			Name:   config.Name,
			Limit:  limit,
			Window: config.Window,
			Burst:  1,
		}),
	}
}

// Acquire blocks until the caller may proceed. The returned release must be
// called once the call finishes. waited reports how long the caller queued.
func (t *Throttle) Acquire(ctx context.Context) (release func(), waited time.Duration, err error) {
	start := time.Now()

	release, err = t.bulkhead.Acquire(ctx)
	if err != nil {
		return nil, time.Since(start), err
	}

	t.mu.Lock()
	r := t.limiter.limiter.Reserve()
	t.mu.Unlock()

	if err := t.limiter.await(ctx, r); err != nil {
		release()
		return nil, time.Since(start), err
	}
	return release, time.Since(start), nil
}

// Execute runs fn once the throttle admits it.
func (t *Throttle) Execute(ctx context.Context, fn func() error) error {
	release, _, err := t.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// SetLimit changes the limit without replacing the queue. Calls in flight
// keep counting against the cap and queued callers keep their place. It
// reports whether the limit changed.
func (t *Throttle) SetLimit(limit int) bool {
	limit = max(limit, 1)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.bulkhead.SetMaxConcurrent(limit) {
		return false
	}
	t.limiter.SetLimit(limit)
	return true
}

// Limit returns the current limit.
func (t *Throttle) Limit() int {
	return t.bulkhead.MaxConcurrent()
}

// InFlight returns the number of calls admitted and not yet released.
func (t *Throttle) InFlight() int {
	return t.bulkhead.InUse()
}
