// Package transport issues the HTTP requests the controller sends to the device.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single device request
const DefaultTimeout = 3 * time.Second

// maxBodyBytes caps how much of a reply is read; the status body is a single token
const maxBodyBytes = 4096

// Request is a single device call
type Request struct {
	Method string
	URL    string
}

// Response is the device reply. Any status code is returned without error;
// callers decide what counts as success.
type Response struct {
	StatusCode int
	Body       []byte
	// Truncated is set when the reply was longer than the read limit and
	// Body holds only its first maxBodyBytes
	Truncated bool
}

// OK reports whether the status code is 2xx
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs one request/response exchange.
// An error means no response was received.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPTransport is the net/http implementation of Transport
type HTTPTransport struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPTransport creates a transport whose requests are bounded by timeout.
// A zero timeout selects DefaultTimeout.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPTransport{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Timeout returns the per-request bound
func (t *HTTPTransport) Timeout() time.Duration {
	return t.timeout
}

// Do sends req and reads at most maxBodyBytes of the reply. A longer reply
// is marked Truncated.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", req.Method, req.URL, err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", req.Method, req.URL, err)
	}

	out := &Response{StatusCode: resp.StatusCode, Body: body}
	if len(body) > maxBodyBytes {
		out.Body = body[:maxBodyBytes]
		out.Truncated = true
	}
	return out, nil
}

// Compile-time verification that HTTPTransport implements Transport
var _ Transport = (*HTTPTransport)(nil)
