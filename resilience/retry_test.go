package resilience

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"
)

func fastBackoff() Backoff {
	return Backoff{Initial: time.Millisecond, Factor: 2.0}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	cfg := DefaultRetryConfig()
	callCount := 0

	result, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Backoff: fastBackoff()}
	callCount := 0

	result, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		if callCount < 3 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetry_ExceedsMaxAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Backoff: fastBackoff()}
	callCount := 0
	testErr := errors.New("persistent error")

	result, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "partial", testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected testErr, got %v", err)
	}
	if result != "partial" {
		t.Errorf("expected last result to be kept, got %q", result)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts: 10,
		Backoff:     Backoff{Initial: 100 * time.Millisecond, Factor: 2.0},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	testErr := errors.New("error")
	callCount := 0
	_, err := Retry(ctx, cfg, func() (string, error) {
		callCount++
		return "", testErr
	})

	// The last attempt's error is reported, not the context error.
	if !errors.Is(err, testErr) {
		t.Errorf("expected testErr, got %v", err)
	}
	if callCount >= 10 {
		t.Errorf("expected fewer than 10 calls, got %d", callCount)
	}
}

func TestRetry_CanceledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Retry(ctx, DefaultRetryConfig(), func() (int, error) {
		called = true
		return 0, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn should not run on a canceled context")
	}
}

func TestRetry_RetryIfFilter(t *testing.T) {
	retryableErr := errors.New("retryable")
	nonRetryableErr := errors.New("non-retryable")

	cfg := RetryConfig{
		MaxAttempts: 3,
		Backoff:     fastBackoff(),
		RetryIf: func(err error) bool {
			return errors.Is(err, retryableErr)
		},
	}

	callCount := 0
	_, _ = Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "", retryableErr
	})
	if callCount != 3 {
		t.Errorf("expected 3 calls for retryable error, got %d", callCount)
	}

	callCount = 0
	_, err := Retry(context.Background(), cfg, func() (string, error) {
		callCount++
		return "", nonRetryableErr
	})
	if callCount != 1 {
		t.Errorf("expected 1 call for non-retryable error, got %d", callCount)
	}
	if !errors.Is(err, nonRetryableErr) {
		t.Errorf("expected nonRetryableErr, got %v", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var retries []int
	var mu sync.Mutex

	cfg := RetryConfig{
		MaxAttempts: 3,
		Backoff:     fastBackoff(),
		OnRetry: func(attempt int, err error, delay time.Duration) {
			mu.Lock()
			retries = append(retries, attempt)
			mu.Unlock()
		},
	}

	_, _ = Retry(context.Background(), cfg, func() (string, error) {
		return "", errors.New("error")
	})

	mu.Lock()
	defer mu.Unlock()

	// OnRetry called before each retry, not before first attempt
	if len(retries) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retries))
	}
	if retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected attempts [1, 2], got %v", retries)
	}
}

func TestRetry_HintOverridesBackoff(t *testing.T) {
	var delays []time.Duration

	cfg := RetryConfig{
		MaxAttempts: 2,
		Backoff:     Backoff{Initial: time.Hour},
		Hint: func(error) time.Duration {
			return 5 * time.Millisecond
		},
		OnRetry: func(_ int, _ error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}

	_, _ = Retry(context.Background(), cfg, func() (int, error) {
		return 0, errors.New("slow down")
	})

	if len(delays) != 1 || delays[0] != 5*time.Millisecond {
		t.Errorf("expected hinted delay of 5ms, got %v", delays)
	}
}

func TestRetryFunc(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, Backoff: fastBackoff()}
	callCount := 0

	err := RetryFunc(context.Background(), cfg, func() error {
		callCount++
		if callCount < 2 {
			return errors.New("error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{
		Initial: 100 * time.Millisecond,
		Max:     1 * time.Second,
		Factor:  2.0,
	}

	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, 1 * time.Second}, // capped at max
		{5, 1 * time.Second},
	}

	for _, tt := range tests {
		got := b.Delay(tt.retry)
		if got != tt.expected {
			t.Errorf("retry %d: expected %v, got %v", tt.retry, tt.expected, got)
		}
	}
}

func TestBackoff_DelayDefault(t *testing.T) {
	b := DefaultBackoff()

	for retry := 1; retry <= 5; retry++ {
		base := time.Duration(float64(time.Second) * math.Pow(math.Sqrt2, float64(retry)))
		lo := base + 500*time.Millisecond
		hi := lo + 200*time.Millisecond

		got := b.Delay(retry)
		if got < lo || got >= hi {
			t.Errorf("retry %d: delay %v outside [%v, %v)", retry, got, lo, hi)
		}
	}
}
