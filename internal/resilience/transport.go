package resilience

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with a circuit breaker and a per-request
// timeout. Each call is exactly one attempt: failures are reported to the
// breaker and surfaced to the caller without retrying.
type HTTPClient struct {
	client  *http.Client
	breaker *Breaker
	timeout time.Duration
}

// NewHTTPClient builds a guarded transport. A nil client falls back to
// http.DefaultClient and a non-positive timeout disables the deadline.
func NewHTTPClient(client *http.Client, breaker *Breaker, timeout time.Duration) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{client: client, breaker: breaker, timeout: timeout}
}

// Do performs the request once. It returns ErrOpenCircuit without touching
// the network when the breaker refuses, and reports the outcome afterwards.
// Responses with a 5xx status count as failures; 4xx responses do not, since
// they indicate a caller problem rather than an unhealthy gateway.
func (c *HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.breaker != nil && !c.breaker.Allow(ctx) {
		return nil, ErrOpenCircuit
	}

	cancel := context.CancelFunc(func() {})
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	resp, err := c.client.Do(req.WithContext(ctx))
	if c.breaker != nil {
		success := err == nil && resp.StatusCode < http.StatusInternalServerError
		c.breaker.Report(ctx, success)
	}
	if err != nil {
		cancel()
		return nil, err
	}
	// the deadline must outlive Do so the caller can drain the body
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
