// Package httpclienttest provides a scripted fake of the spacekit API for
// client tests.
package httpclienttest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// RecordedRequest is a request as the server received it.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Option configures a Server.
type Option func(*Server)

// WithStatuses scripts the status of each attempt in order. The last status
// repeats once the script runs out. The default is 200.
func WithStatuses(codes ...int) Option {
	return func(s *Server) { s.statuses = codes }
}

// WithDelay holds every request for d before responding.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithResponseHeader sets a header on every response.
func WithResponseHeader(key, value string) Option {
	return func(s *Server) { s.headers[key] = value }
}

// WithBody sets the JSON body of successful responses.
func WithBody(body any) Option {
	return func(s *Server) { s.body = body }
}

// Server is an httptest server standing in for the API. It records every
// request and tracks how many were in flight at once.
type Server struct {
	*httptest.Server

	statuses []int
	delay    time.Duration
	headers  map[string]string
	body     any

	attempts atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewServer starts a fake API server. Callers must Close it.
func NewServer(opts ...Option) *Server {
	s := &Server{headers: make(map[string]string)}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.track)
	engine.Any("/*path", s.handle)

	s.Server = httptest.NewServer(engine)
	return s
}

// Host returns the server address as "hostname:port".
func (s *Server) Host() string {
	return s.Listener.Addr().String()
}

// Attempts returns the number of requests received.
func (s *Server) Attempts() int {
	return int(s.attempts.Load())
}

// Peak returns the highest number of requests handled concurrently.
func (s *Server) Peak() int {
	return int(s.peak.Load())
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request. It panics if there is none.
func (s *Server) LastRequest() RecordedRequest {
	reqs := s.Requests()
	return reqs[len(reqs)-1]
}

func (s *Server) track(c *gin.Context) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	c.Next()
}

func (s *Server) handle(c *gin.Context) {
	attempt := int(s.attempts.Add(1))

	body, _ := io.ReadAll(c.Request.Body)
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: c.Request.Method,
		Path:   c.Request.URL.Path,
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	for k, v := range s.headers {
		c.Header(k, v)
	}
	if id := c.GetHeader("X-Request-Id"); id != "" {
		c.Header("X-Request-Id", id)
	}

	status := s.statusFor(attempt)
	switch {
	case status >= http.StatusBadRequest:
		c.JSON(status, gin.H{
			"message": http.StatusText(status),
			"details": gin.H{"attempt": attempt},
		})
	case status == http.StatusNoContent:
		c.Status(status)
	case s.body != nil:
		c.JSON(status, s.body)
	default:
		c.JSON(status, gin.H{"path": c.Request.URL.Path, "attempt": attempt})
	}
}

func (s *Server) statusFor(attempt int) int {
	if len(s.statuses) == 0 {
		return http.StatusOK
	}
	if attempt > len(s.statuses) {
		return s.statuses[len(s.statuses)-1]
	}
	return s.statuses[attempt-1]
}
