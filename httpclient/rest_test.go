package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/kbukum/spacekit/httpclient/httpclienttest"
)

type entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestGet(t *testing.T) {
	srv := httpclienttest.NewServer(httpclienttest.WithBody(entry{ID: "1", Title: "Hello"}))
	defer srv.Close()
	c := newTestClient(t, srv, &logRecorder{})

	resp, err := Get[entry](c, context.Background(), "entries/1",
		WithQueryParam("locale", "en"),
		WithRequestHeader("X-Trace", "t1"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 || resp.Data.Title != "Hello" {
		t.Errorf("resp = %+v", resp)
	}

	req := srv.LastRequest()
	if req.Query.Get("locale") != "en" || req.Header.Get("X-Trace") != "t1" {
		t.Errorf("request options not applied: %v %v", req.Query, req.Header)
	}
}

func TestTypedMethods(t *testing.T) {
	srv := httpclienttest.NewServer(httpclienttest.WithBody(entry{ID: "2"}))
	defer srv.Close()
	c := newTestClient(t, srv, &logRecorder{})
	ctx := context.Background()
	body := entry{Title: "new"}

	tests := []struct {
		method string
		call   func() (*TypedResponse[entry], error)
	}{
		{http.MethodPost, func() (*TypedResponse[entry], error) { return Post[entry](c, ctx, "entries", body) }},
		{http.MethodPut, func() (*TypedResponse[entry], error) { return Put[entry](c, ctx, "entries/2", body) }},
		{http.MethodPatch, func() (*TypedResponse[entry], error) { return Patch[entry](c, ctx, "entries/2", body) }},
		{http.MethodDelete, func() (*TypedResponse[entry], error) { return Delete[entry](c, ctx, "entries/2") }},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp, err := tt.call()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Data.ID != "2" {
				t.Errorf("Data = %+v", resp.Data)
			}
			if got := srv.LastRequest().Method; got != tt.method {
				t.Errorf("method = %s, want %s", got, tt.method)
			}
		})
	}
}

func TestGet_ErrorResponse(t *testing.T) {
	srv := httpclienttest.NewServer(httpclienttest.WithStatuses(http.StatusNotFound))
	defer srv.Close()
	c := newTestClient(t, srv, &logRecorder{})

	type apiError struct {
		Message string `json:"message"`
	}
	resp, err := Get[apiError](c, context.Background(), "entries/missing")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if resp == nil || resp.Data.Message != "Not Found" {
		t.Errorf("error body should be decoded, got %+v", resp)
	}
}

func TestGet_DecodeError(t *testing.T) {
	srv := httpclienttest.NewServer(httpclienttest.WithBody([]int{1, 2}))
	defer srv.Close()
	c := newTestClient(t, srv, &logRecorder{})

	_, err := Get[entry](c, context.Background(), "entries")
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if e.Code != ErrCodeValidation || e.StatusCode != http.StatusOK || IsRetryable(err) {
		t.Errorf("decode error = %+v", e)
	}
	if e.RequestID == "" {
		t.Error("decode error should carry the request id")
	}
	if !strings.HasPrefix(err.Error(), "httpclient: ") {
		t.Errorf("message = %q, want the package prefix", err.Error())
	}
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		t.Errorf("decode error should wrap the json error, got %v", e.Err)
	}
}

func TestGet_WithRequestID(t *testing.T) {
	srv := httpclienttest.NewServer()
	defer srv.Close()
	c := newTestClient(t, srv, &logRecorder{})

	if _, err := Get[map[string]any](c, context.Background(), "entries", WithRequestID("req-42")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := srv.LastRequest().Header.Get(HeaderRequestID); got != "req-42" {
		t.Errorf("X-Request-Id = %q, want req-42", got)
	}
}
