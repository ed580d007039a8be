package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeTimeout, "timeout"},
		{ErrCodeConnection, "connection"},
		{ErrCodeAuth, "auth"},
		{ErrCodeNotFound, "not_found"},
		{ErrCodeRateLimit, "rate_limit"},
		{ErrCodeValidation, "validation"},
		{ErrCodeServer, "server"},
		{ErrorCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestErrorCode_Kind(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeTimeout, "Timeout"},
		{ErrCodeConnection, "Connection"},
		{ErrCodeRateLimit, "Rate limit"},
		{ErrCodeServer, "Server"},
		{ErrCodeAuth, "Client"},
		{ErrCodeValidation, "Client"},
	}
	for _, tt := range tests {
		if got := tt.code.Kind(); got != tt.want {
			t.Errorf("%v.Kind() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	e := &Error{StatusCode: 404, Code: ErrCodeNotFound, Message: "HTTP 404"}
	want := "httpclient: not_found (HTTP 404): HTTP 404"
	if got := e.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	e2 := &Error{Code: ErrCodeConnection, Message: "connection refused"}
	want2 := "httpclient: connection: connection refused"
	if got := e2.Error(); got != want2 {
		t.Errorf("got %q, want %q", got, want2)
	}

	e3 := &Error{StatusCode: 503, Code: ErrCodeServer, Message: "unavailable", Attempts: 4}
	want3 := "httpclient: server (HTTP 503): unavailable after 4 attempts"
	if got := e3.Error(); got != want3 {
		t.Errorf("got %q, want %q", got, want3)
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := NewValidationError("bad input")
	outer := &Error{Code: ErrCodeServer, Message: "wrapped", Err: inner}
	if outer.Unwrap() != inner {
		t.Error("Unwrap did not return inner error")
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		code    int
		wantNil bool
		errCode ErrorCode
		retry   bool
	}{
		{200, true, 0, false},
		{201, true, 0, false},
		{204, true, 0, false},
		{304, true, 0, false},
		{400, false, ErrCodeValidation, false},
		{401, false, ErrCodeAuth, false},
		{403, false, ErrCodeAuth, false},
		{404, false, ErrCodeNotFound, false},
		{422, false, ErrCodeValidation, false},
		{429, false, ErrCodeRateLimit, true},
		{500, false, ErrCodeServer, true},
		{502, false, ErrCodeServer, true},
		{503, false, ErrCodeServer, true},
	}
	for _, tt := range tests {
		e := ClassifyStatusCode(tt.code, nil)
		if tt.wantNil {
			if e != nil {
				t.Errorf("ClassifyStatusCode(%d): expected nil, got %v", tt.code, e)
			}
			continue
		}
		if e == nil {
			t.Errorf("ClassifyStatusCode(%d): expected error, got nil", tt.code)
			continue
		}
		if e.Code != tt.errCode {
			t.Errorf("ClassifyStatusCode(%d): code = %v, want %v", tt.code, e.Code, tt.errCode)
		}
		if e.Retryable != tt.retry {
			t.Errorf("ClassifyStatusCode(%d): retryable = %v, want %v", tt.code, e.Retryable, tt.retry)
		}
	}
}

func TestClassifyResponse(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		resp := &Response{
			StatusCode: 422,
			Headers:    map[string]string{"X-Request-Id": "req-1"},
			Body:       []byte(`{"message":"title is required","details":{"field":"title"}}`),
		}
		e := ClassifyResponse(resp)
		if e == nil {
			t.Fatal("expected error")
		}
		if e.Message != "title is required" {
			t.Errorf("Message = %q", e.Message)
		}
		if e.RequestID != "req-1" {
			t.Errorf("RequestID = %q, want req-1", e.RequestID)
		}
		details, ok := e.Details.(map[string]any)
		if !ok || details["field"] != "title" {
			t.Errorf("Details = %#v", e.Details)
		}
	})

	t.Run("request id from body", func(t *testing.T) {
		resp := &Response{StatusCode: 500, Body: []byte(`{"requestId":"body-id"}`)}
		if e := ClassifyResponse(resp); e.RequestID != "body-id" {
			t.Errorf("RequestID = %q, want body-id", e.RequestID)
		}
	})

	t.Run("non json body", func(t *testing.T) {
		resp := &Response{StatusCode: 502, Body: []byte("<html>bad gateway</html>")}
		e := ClassifyResponse(resp)
		if e.Message != "HTTP 502" {
			t.Errorf("Message = %q, want HTTP 502", e.Message)
		}
		if string(e.Body) != "<html>bad gateway</html>" {
			t.Errorf("Body = %q", e.Body)
		}
	})

	t.Run("rate limit hint", func(t *testing.T) {
		resp := &Response{StatusCode: 429, Headers: map[string]string{"Retry-After": "2"}}
		if e := ClassifyResponse(resp); e.RetryAfter != 2*time.Second {
			t.Errorf("RetryAfter = %v, want 2s", e.RetryAfter)
		}
	})

	t.Run("success", func(t *testing.T) {
		if e := ClassifyResponse(&Response{StatusCode: 200}); e != nil {
			t.Errorf("expected nil, got %v", e)
		}
	})
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name    string
		headers map[string]string
		want    time.Duration
	}{
		{"none", nil, 0},
		{"seconds", map[string]string{"Retry-After": "3"}, 3 * time.Second},
		{"http date", map[string]string{"Retry-After": now.Add(5 * time.Second).Format(http.TimeFormat)}, 5 * time.Second},
		{"past date", map[string]string{"Retry-After": now.Add(-time.Minute).Format(http.TimeFormat)}, 0},
		{"reset header", map[string]string{"X-RateLimit-Reset": "4"}, 4 * time.Second},
		{"garbage", map[string]string{"Retry-After": "soon"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{StatusCode: 429, Headers: tt.headers}
			if got := retryAfter(resp, now); got != tt.want {
				t.Errorf("retryAfter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsHelpers(t *testing.T) {
	timeout := NewTimeoutError(fmt.Errorf("timed out"))
	conn := NewConnectionError(fmt.Errorf("connection refused"))
	auth := ClassifyStatusCode(401, nil)
	notFound := ClassifyStatusCode(404, nil)
	rateLimit := ClassifyStatusCode(429, nil)
	server := ClassifyStatusCode(500, nil)
	validation := NewValidationError("bad")

	if !IsTimeout(timeout) {
		t.Error("IsTimeout should match timeout error")
	}
	if !IsConnection(conn) {
		t.Error("IsConnection should match connection error")
	}
	if !IsAuth(auth) {
		t.Error("IsAuth should match auth error")
	}
	if !IsNotFound(notFound) {
		t.Error("IsNotFound should match not-found error")
	}
	if !IsRateLimit(rateLimit) {
		t.Error("IsRateLimit should match rate-limit error")
	}
	if !IsServerError(server) {
		t.Error("IsServerError should match server error")
	}
	if !IsClientError(auth) || !IsClientError(notFound) {
		t.Error("IsClientError should match 401 and 404")
	}
	if IsClientError(rateLimit) {
		t.Error("IsClientError should not match 429")
	}
	if !IsRetryable(timeout) || !IsRetryable(conn) || !IsRetryable(server) || !IsRetryable(rateLimit) {
		t.Error("timeout, connection, 5xx and 429 should be retryable")
	}
	if IsRetryable(auth) {
		t.Error("auth should not be retryable")
	}
	if IsRetryable(validation) {
		t.Error("validation should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("untyped errors should not be retryable")
	}
}

func TestConfigurationAndAuthTokenErrors(t *testing.T) {
	cfgErr := fmt.Errorf("new client: %w", &ConfigurationError{Field: "access_token", Message: "expected parameter accessToken"})
	if !IsConfiguration(cfgErr) {
		t.Error("IsConfiguration should match wrapped *ConfigurationError")
	}
	want := "httpclient: configuration: access_token: expected parameter accessToken"
	var ce *ConfigurationError
	if !errors.As(cfgErr, &ce) {
		t.Fatal("errors.As failed")
	}
	if ce.Error() != want {
		t.Errorf("got %q, want %q", ce.Error(), want)
	}

	boom := errors.New("boom")
	tokErr := &AuthTokenError{Err: boom}
	if !IsAuthToken(tokErr) {
		t.Error("IsAuthToken should match *AuthTokenError")
	}
	if !errors.Is(tokErr, boom) {
		t.Error("AuthTokenError should unwrap to the producer error")
	}
	if IsRetryable(tokErr) {
		t.Error("AuthTokenError should not be retryable")
	}
}
