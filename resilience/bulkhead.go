package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Common bulkhead errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// MaxBulkheadSlots is the largest MaxConcurrent a bulkhead accepts.
const MaxBulkheadSlots = 1 << 20

// capacity is the semaphore size. A slot weighs capacity/MaxConcurrent, so
// MaxConcurrent can change without replacing the semaphore or its queue.
// capacity > MaxBulkheadSlots^2 keeps MaxConcurrent+1 slots from fitting.
const capacity int64 = 1 << 42

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait bounds how long Execute waits for a slot (0 = fail immediately).
	MaxWait time.Duration
	// OnReject is called when a request is rejected.
	OnReject func(name string)
	// OnAcquire is called when a slot is acquired.
	OnAcquire func(name string)
	// OnRelease is called when a slot is released.
	OnRelease func(name string)
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
	}
}

// Bulkhead caps the number of concurrent calls. Waiters are admitted in the
// order they arrived, also across SetMaxConcurrent.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted
	inUse  atomic.Int64

	mu  sync.RWMutex
	max int
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	config.MaxConcurrent = min(config.MaxConcurrent, MaxBulkheadSlots)

	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(capacity),
		max:    config.MaxConcurrent,
	}
}

// Execute runs fn once a slot is free.
// Returns ErrBulkheadFull if no slot is free and MaxWait is 0, or
// ErrBulkheadTimeout if MaxWait passes first.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if b.config.MaxWait <= 0 {
		release, err := b.TryAcquire()
		if err != nil {
			if b.config.OnReject != nil {
				b.config.OnReject(b.config.Name)
			}
			return err
		}
		defer release()
		return fn()
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
	defer cancel()

	release, err := b.Acquire(waitCtx)
	if err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		if ctx.Err() == nil && waitCtx.Err() != nil {
			return ErrBulkheadTimeout
		}
		return err
	}
	defer release()

	return fn()
}

// ExecuteWithResult runs a function that returns a value.
func ExecuteWithResult[T any](b *Bulkhead, ctx context.Context, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// Acquire blocks until a slot is free or ctx is done. The returned release
// gives the slot back; calling it again is a no-op.
func (b *Bulkhead) Acquire(ctx context.Context) (release func(), err error) {
	w := b.slotWeight()
	if err := b.sem.Acquire(ctx, w); err != nil {
		return nil, err
	}
	return b.admit(w), nil
}

// TryAcquire takes a slot without blocking. It fails while others are queued.
func (b *Bulkhead) TryAcquire() (release func(), err error) {
	w := b.slotWeight()
	if !b.sem.TryAcquire(w) {
		return nil, ErrBulkheadFull
	}
	return b.admit(w), nil
}

func (b *Bulkhead) admit(w int64) func() {
	b.inUse.Add(1)
	if b.config.OnAcquire != nil {
		b.config.OnAcquire(b.config.Name)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.inUse.Add(-1)
			b.sem.Release(w)
			if b.config.OnRelease != nil {
				b.config.OnRelease(b.config.Name)
			}
		})
	}
}

// slotWeight is the semaphore weight of one slot under the current limit.
// A caller keeps the weight it queued with, so callers that queued before a
// change are admitted under the limit they asked under.
func (b *Bulkhead) slotWeight() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return capacity / int64(b.max)
}

// SetMaxConcurrent changes the number of slots in place. Holders keep their
// slots and queued callers keep their place. After a decrease, new callers
// wait until enough holders have released. It reports whether the limit
// changed.
func (b *Bulkhead) SetMaxConcurrent(n int) bool {
	n = min(max(n, 1), MaxBulkheadSlots)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.max == n {
		return false
	}
	b.max = n
	return true
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	return max(b.MaxConcurrent()-b.InUse(), 0)
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return int(b.inUse.Load())
}

// MaxConcurrent returns the maximum concurrent calls allowed.
func (b *Bulkhead) MaxConcurrent() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.max
}
