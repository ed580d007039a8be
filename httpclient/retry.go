package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/spacekit/logger"
	"github.com/kbukum/spacekit/observability"
	"github.com/kbukum/spacekit/resilience"
)

// retryStage re-sends requests that failed with a network error, a 429 or a
// 5xx, up to limit more times. Other errors, including 401, are returned at
// once. On exhaustion the last error is returned with Attempts set.
func retryStage(limit int, backoff resilience.Backoff, log LogHandler, metrics *observability.ClientMetrics) Stage {
	return Stage{
		Name: StageRetry,
		Middleware: func(next Handler) Handler {
			return func(req *http.Request) (*Response, error) {
				ctx := req.Context()
				attempts := 0

				cfg := resilience.RetryConfig{
					MaxAttempts: limit + 1,
					Backoff:     backoff,
					RetryIf:     IsRetryable,
					Hint:        retryHint,
					OnRetry: func(attempt int, err error, delay time.Duration) {
						kind := "Unknown"
						fields := logger.Fields(
							logger.FieldAttempt, attempt,
							logger.FieldDelay, delay.Milliseconds(),
							logger.FieldMethod, req.Method,
							logger.FieldURL, req.URL.String(),
							logger.FieldRequestID, req.Header.Get(HeaderRequestID),
						)
						var e *Error
						if errors.As(err, &e) {
							kind = e.Code.Kind()
							if e.StatusCode > 0 {
								fields[logger.FieldStatus] = e.StatusCode
							}
						}
						log(LevelWarning, LogEntry{
							Message: fmt.Sprintf("%s error occurred. Waiting for %d ms before retrying...", kind, delay.Milliseconds()),
							Fields:  fields,
						})
						metrics.RecordRetry(ctx, kind)
					},
				}

				resp, err := resilience.Retry(ctx, cfg, func() (*Response, error) {
					attempts++
					r := req
					if attempts > 1 {
						var err error
						if r, err = rewind(req); err != nil {
							return nil, err
						}
					}
					return next(r.WithContext(withAttempt(ctx, attempts)))
				})

				var e *Error
				if errors.As(err, &e) {
					e.Attempts = attempts
				}
				return resp, err
			}
		},
	}
}

// retryHint returns the wait the server asked for on a 429.
func retryHint(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) && e.Code == ErrCodeRateLimit {
		return e.RetryAfter
	}
	return 0
}

type attemptKey struct{}

// withAttempt records the 1-based attempt number of a logical request.
func withAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey{}, n)
}

// attemptFrom returns the attempt number stored by the retry stage, or 1.
func attemptFrom(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 1
}

// rewind returns a copy of req with a fresh body so it can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, NewValidationError("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("replay request body: %v", err))
	}
	r.Body = body
	return r, nil
}
