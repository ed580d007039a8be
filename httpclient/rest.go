package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// TypedResponse wraps a response with a decoded body of type T.
type TypedResponse[T any] struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Headers are the response headers.
	Headers map[string]string
	// Data is the decoded response body.
	Data T
}

// RequestOption configures a single request.
type RequestOption func(*Request)

// WithRequestHeader adds a header to one request.
func WithRequestHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]string)
		}
		r.Query[key] = value
	}
}

// WithRequestID sends id as X-Request-Id instead of a generated one. Retries
// of the request keep it.
func WithRequestID(id string) RequestOption {
	return WithRequestHeader(HeaderRequestID, id)
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT request with a JSON body and decodes the response into type T.
func Put[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPut, path, body, opts...)
}

// Patch performs a PATCH request with a JSON body and decodes the response into type T.
func Patch[T any](c *Client, ctx context.Context, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodPatch, path, body, opts...)
}

// Delete performs a DELETE request and decodes the JSON response into type T.
func Delete[T any](c *Client, ctx context.Context, path string, opts ...RequestOption) (*TypedResponse[T], error) {
	return doTyped[T](c, ctx, http.MethodDelete, path, nil, opts...)
}

func doTyped[T any](c *Client, ctx context.Context, method, path string, body any, opts ...RequestOption) (*TypedResponse[T], error) {
	req := Request{
		Method: method,
		Path:   path,
		Body:   body,
	}
	for _, opt := range opts {
		opt(&req)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		if resp == nil {
			return nil, err
		}
		// An error body that fits T is handed back next to the error.
		typed, decodeErr := decode[T](resp)
		if decodeErr != nil {
			return nil, err
		}
		return typed, err
	}
	return decode[T](resp)
}

// decode unmarshals a JSON response body into T. An empty body leaves the
// zero value. A body that does not decode is a validation *Error carrying the
// status and request id of the response.
func decode[T any](resp *Response) (*TypedResponse[T], error) {
	typed := &TypedResponse[T]{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
	}
	if len(resp.Body) == 0 {
		return typed, nil
	}
	if err := json.Unmarshal(resp.Body, &typed.Data); err != nil {
		return nil, &Error{
			Code:       ErrCodeValidation,
			StatusCode: resp.StatusCode,
			Message:    "decode response: " + err.Error(),
			Body:       resp.Body,
			RequestID:  resp.Header(HeaderRequestID),
			Err:        err,
		}
	}
	return typed, nil
}
