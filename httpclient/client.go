package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/spacekit/logger"
	"github.com/kbukum/spacekit/observability"
)

// Client is an HTTP client pre-configured for one API host and space.
// It is safe for concurrent use.
type Client struct {
	cfg        Config
	defaults   Params
	opts       []Option
	httpClient *http.Client
	pipeline   *Pipeline
	handler    Handler
	throttle   *throttler
	metrics    *observability.ClientMetrics
}

// New creates a client from DefaultParams and opts.
func New(opts ...Option) (*Client, error) {
	return NewWithDefaults(DefaultParams(), opts...)
}

// NewWithDefaults creates a client from the given defaults and opts.
//
// Setup runs in a fixed order: resolve the configuration and base URL,
// build the transport, then attach the before-request hook, the token
// producer (dynamic credentials only), the throttle (when enabled), the
// retry stage (unless disabled) and the error hook.
func NewWithDefaults(defaults Params, opts ...Option) (*Client, error) {
	cfg, err := Resolve(defaults, opts...)
	if err != nil {
		return nil, err
	}

	httpClient, err := buildHTTPClient(cfg)
	if err != nil {
		cfg.LogHandler(LevelError, LogEntry{Message: err.Error()})
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		defaults:   defaults.clone(),
		opts:       cloneOptions(opts),
		httpClient: httpClient,
		pipeline:   &Pipeline{},
		metrics:    cfg.Metrics,
	}

	if cfg.OnBeforeRequest != nil {
		c.pipeline.Use(beforeRequestStage(cfg.OnBeforeRequest))
	}
	if cfg.AccessToken.IsDynamic() {
		c.pipeline.Use(authStage(cfg.AccessToken))
	}
	if cfg.Throttle.Enabled() {
		c.throttle = newThrottler(cfg)
		c.pipeline.Use(c.throttle.stage())
	}
	if cfg.RetryOnError {
		c.pipeline.Use(retryStage(cfg.RetryLimit, cfg.RetryBackoff, cfg.LogHandler, cfg.Metrics))
	}
	if cfg.OnError != nil {
		c.pipeline.Use(onErrorStage(cfg.OnError))
	}
	c.handler = c.pipeline.Then(c.send)

	return c, nil
}

// CloneWithParams builds an independent client from this client's original
// options followed by overrides. The two clients share no state.
func (c *Client) CloneWithParams(overrides ...Option) (*Client, error) {
	opts := append(cloneOptions(c.opts), overrides...)
	return NewWithDefaults(c.defaults.clone(), opts...)
}

// Do executes a request through the pipeline. For error responses both the
// response and a typed *Error are returned.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.handler(httpReq)
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}
	if c.cfg.MaxBodyLength > 0 && int64(len(body)) > c.cfg.MaxBodyLength {
		return nil, NewValidationError(fmt.Sprintf("request body exceeds max body length of %d bytes", c.cfg.MaxBodyLength))
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.resolveURL(req.Path), reader)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	id := httpReq.Header.Get(HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
		httpReq.Header.Set(HeaderRequestID, id)
	}
	return httpReq.WithContext(logger.ContextWithRequestID(ctx, id)), nil
}

// resolveURL joins a relative path onto the base URL.
func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.cfg.BaseURL + strings.TrimLeft(path, "/")
}

// encodeBody buffers a body value and reports its default content type.
func encodeBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return v, "", nil
	case string:
		return []byte(v), "text/plain", nil
	case io.Reader:
		data, err := io.ReadAll(v)
		return data, "", err
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return data, "application/json", nil
	}
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Config returns the resolved configuration.
func (c *Client) Config() Config {
	cfg := c.cfg
	cfg.Params = cfg.Params.clone()
	return cfg
}

// Params returns a copy of the resolved parameters.
func (c *Client) Params() Params {
	return c.cfg.Params.clone()
}

// BaseURL returns the URL relative paths resolve against.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Pipeline returns the stages requests pass through.
func (c *Client) Pipeline() *Pipeline {
	return &Pipeline{stages: append([]Stage(nil), c.pipeline.stages...)}
}

// ThrottleLimit returns the current throttle limit, or 0 when throttling is off.
func (c *Client) ThrottleLimit() int {
	if c.throttle == nil {
		return 0
	}
	return c.throttle.gate.Limit()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
