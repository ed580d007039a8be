// Package resilience provides patterns for building fault-tolerant clients.
//
// This package includes:
//   - Retry: Retries failed operations with exponential backoff and server hints
//   - Bulkhead: Limits concurrent access, admitting waiters in arrival order
//   - RateLimiter: Spreads a fixed number of admissions over a time window
//   - Throttle: Combines a bulkhead and a rate limiter under one adjustable limit
//
// These patterns can be combined:
//
//	th := resilience.NewThrottle(resilience.ThrottleConfig{Name: "api", Limit: 7})
//
//	resp, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), func() (*http.Response, error) {
//	    release, _, err := th.Acquire(ctx)
//	    if err != nil {
//	        return nil, err
//	    }
//	    defer release()
//	    return httpClient.Do(req)
//	})
package resilience
