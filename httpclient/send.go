package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kbukum/spacekit/observability"
)

// send performs one attempt on the transport. It is the innermost handler of
// the pipeline.
func (c *Client) send(req *http.Request) (*Response, error) {
	requestID := req.Header.Get(HeaderRequestID)
	ctx, span := observability.StartClientSpan(req.Context(), c.cfg.TracerProvider, observability.ClientSpan{
		Method:    req.Method,
		URL:       req.URL.String(),
		Space:     c.cfg.Space,
		RequestID: requestID,
		Attempt:   attemptFrom(req.Context()),
	})

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	c.metrics.RecordRequestStart(ctx)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequestEnd(ctx, req.Method, 0, time.Since(start))
		e := transportError(ctx, err)
		e.RequestID = requestID
		observability.EndClientSpan(span, 0, e.Code.String(), e)
		return nil, e
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp.Body, c.cfg.MaxContentLength)
	c.metrics.RecordRequestEnd(ctx, req.Method, resp.StatusCode, time.Since(start))
	if err != nil {
		observability.EndClientSpan(span, resp.StatusCode, "read_body", err)
		return nil, err
	}

	result := newResponse(resp, body)
	if e := ClassifyResponse(result); e != nil {
		if e.RequestID == "" {
			e.RequestID = requestID
		}
		observability.EndClientSpan(span, resp.StatusCode, e.Code.String(), e)
		return result, e
	}
	observability.EndClientSpan(span, resp.StatusCode, "", nil)
	return result, nil
}

// transportError classifies a failure to get any response. Cancellation by
// the caller is reported as a non-retryable timeout.
func transportError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return &Error{
			Code:    ErrCodeTimeout,
			Message: err.Error(),
			Err:     err,
		}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

// readBody reads at most limit bytes. A limit of zero means no limit.
func readBody(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		body, err := io.ReadAll(r)
		if err != nil {
			return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
		}
		return body, nil
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}
	if int64(len(body)) > limit {
		return nil, NewValidationError(fmt.Sprintf("response body exceeds max content length of %d bytes", limit))
	}
	return body, nil
}
