package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates any other client error (4xx) or a request
	// rejected before it was sent.
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Kind is the human-readable failure class used in retry log lines.
func (c ErrorCode) Kind() string {
	switch c {
	case ErrCodeTimeout:
		return "Timeout"
	case ErrCodeConnection:
		return "Connection"
	case ErrCodeRateLimit:
		return "Rate limit"
	case ErrCodeServer:
		return "Server"
	default:
		return "Client"
	}
}

// Error is a structured HTTP client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 for connection-level errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error. For API errors it is taken from the
	// response body when the server sent one.
	Message string
	// Details carries the "details" member of a JSON error body.
	Details any
	// RequestID is the request id the server echoed, or the one the client sent.
	RequestID string
	// RetryAfter is the wait the server asked for on a 429, if any.
	RetryAfter time.Duration
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Attempts is the number of attempts made before the error was returned.
	Attempts int
	// Body is the original response body (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("httpclient: ")
	b.WriteString(e.Code.String())
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{
		Code:      ErrCodeTimeout,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{
		Code:      ErrCodeConnection,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewValidationError creates an error for a request rejected before sending.
func NewValidationError(msg string) *Error {
	return &Error{
		Code:      ErrCodeValidation,
		Message:   msg,
		Retryable: false,
	}
}

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for status codes below 400.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode < 400 {
		return nil
	}

	e := &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Body:       body,
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code = ErrCodeRateLimit
		e.Retryable = true
	case statusCode < 500:
		e.Code = ErrCodeValidation
	default:
		e.Code = ErrCodeServer
		e.Retryable = true
	}
	return e
}

// apiErrorBody is the error envelope the API returns.
type apiErrorBody struct {
	Message   string `json:"message"`
	Details   any    `json:"details"`
	RequestID string `json:"requestId"`
}

// ClassifyResponse classifies resp and enriches the error with the message,
// details and request id the server reported, plus any wait hint on a 429.
// Returns nil for successful responses.
func ClassifyResponse(resp *Response) *Error {
	e := ClassifyStatusCode(resp.StatusCode, resp.Body)
	if e == nil {
		return nil
	}

	var body apiErrorBody
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &body) == nil {
		if body.Message != "" {
			e.Message = body.Message
		}
		e.Details = body.Details
		e.RequestID = body.RequestID
	}
	if id := resp.Header(HeaderRequestID); id != "" {
		e.RequestID = id
	}
	if e.Code == ErrCodeRateLimit {
		e.RetryAfter = retryAfter(resp, time.Now())
	}
	return e
}

// retryAfter reads the server's wait hint: Retry-After as seconds or an
// HTTP date, falling back to X-RateLimit-Reset in seconds.
func retryAfter(resp *Response, now time.Time) time.Duration {
	if v := strings.TrimSpace(resp.Header("Retry-After")); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d
			}
		}
	}
	if v := strings.TrimSpace(resp.Header(HeaderRateLimitReset)); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// ConfigurationError reports a missing or invalid client option. It is
// returned when the client is constructed and is never retried.
type ConfigurationError struct {
	// Field is the option the error is about, e.g. "access_token".
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "httpclient: configuration: " + e.Message
	}
	return fmt.Sprintf("httpclient: configuration: %s: %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// AuthTokenError reports that the token producer failed. It fails the
// request it was produced for and is never retried.
type AuthTokenError struct {
	Err error
}

func (e *AuthTokenError) Error() string {
	return fmt.Sprintf("httpclient: auth token: %v", e.Err)
}

func (e *AuthTokenError) Unwrap() error { return e.Err }

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeAuth
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNotFound
}

// IsRateLimit checks if an error is a rate-limit error.
func IsRateLimit(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeRateLimit
}

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeServer
}

// IsClientError checks if an error is a non-retryable 4xx response.
func IsClientError(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.StatusCode < 400 || e.StatusCode >= 500 {
		return false
	}
	return e.Code != ErrCodeRateLimit
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// IsConfiguration checks if an error is a *ConfigurationError.
func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}

// IsAuthToken checks if an error is an *AuthTokenError.
func IsAuthToken(err error) bool {
	var e *AuthTokenError
	return errors.As(err, &e)
}
