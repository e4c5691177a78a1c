// Package gateway implements the uniform request/response envelope used for
// every remote payment-gateway operation.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/payground/internal/credentials"
)

// Doer executes one HTTP exchange. The resilience wrapper satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client issues gateway operations against a resolved credential. Every
// call is attempted exactly once; the operator re-triggers manually on
// failure.
type Client struct {
	transport Doer
	tokens    *tokenSource
	logger    zerolog.Logger
}

// NewClient wires a gateway client over the provided transport.
func NewClient(transport Doer, logger zerolog.Logger) *Client {
	return &Client{
		transport: transport,
		tokens:    newTokenSource(transport),
		logger:    logger,
	}
}

// call runs one JSON exchange and normalises the outcome. payload may be
// nil for bodyless operations; non-nil payloads are cleaned of empty-string
// leaves before hitting the wire.
func (c *Client) call(ctx context.Context, resolved credentials.Resolved, operation, method, path string, payload any) Result {
	start := time.Now()
	result := c.doCall(ctx, resolved, operation, method, path, payload)
	c.observe(operation, result, time.Since(start))
	return result
}

func (c *Client) doCall(ctx context.Context, resolved credentials.Resolved, operation, method, path string, payload any) Result {
	var body io.Reader
	if payload != nil {
		cleaned, err := CleanPayload(payload)
		if err != nil {
			return failure(0, transportDetail(operation, err))
		}
		encoded, err := json.Marshal(cleaned)
		if err != nil {
			return failure(0, transportDetail(operation, err))
		}
		body = bytes.NewReader(encoded)
	}

	resp, raw, err := c.exchange(ctx, resolved, method, path, body, "application/json")
	if err != nil {
		return failure(0, transportDetail(operation, err))
	}

	parsed := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return failure(resp.StatusCode, fallbackDetail(operation))
			}
			return failure(resp.StatusCode, transportDetail(operation, err))
		}
	}

	if detail, failed := errorDetail(operation, resp.StatusCode, parsed); failed {
		return failure(resp.StatusCode, detail)
	}
	return success(resp.StatusCode, parsed)
}

// callBinary runs one exchange whose successful payload is gateway-opaque
// binary content; the result carries it base64-encoded so it can cross a
// text-only channel.
func (c *Client) callBinary(ctx context.Context, resolved credentials.Resolved, operation, method, path string, payload any) Result {
	start := time.Now()
	result := c.doCallBinary(ctx, resolved, operation, method, path, payload)
	c.observe(operation, result, time.Since(start))
	return result
}

func (c *Client) doCallBinary(ctx context.Context, resolved credentials.Resolved, operation, method, path string, payload any) Result {
	var body io.Reader
	if payload != nil {
		cleaned, err := CleanPayload(payload)
		if err != nil {
			return failure(0, transportDetail(operation, err))
		}
		encoded, err := json.Marshal(cleaned)
		if err != nil {
			return failure(0, transportDetail(operation, err))
		}
		body = bytes.NewReader(encoded)
	}

	resp, raw, err := c.exchange(ctx, resolved, method, path, body, "application/octet-stream")
	if err != nil {
		return failure(0, transportDetail(operation, err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		parsed := map[string]any{}
		if json.Unmarshal(raw, &parsed) == nil {
			if detail, failed := errorDetail(operation, resp.StatusCode, parsed); failed {
				return failure(resp.StatusCode, detail)
			}
		}
		return failure(resp.StatusCode, fallbackDetail(operation))
	}

	return success(resp.StatusCode, map[string]any{
		"content": encodeBase64(raw),
	})
}

func (c *Client) exchange(ctx context.Context, resolved credentials.Resolved, method, path string, body io.Reader, accept string) (*http.Response, []byte, error) {
	token, err := c.tokens.Token(ctx, resolved)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method,
		strings.TrimRight(resolved.Endpoint, "/")+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("gateway: exchange: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("gateway: read response: %w", err)
	}
	return resp, raw, nil
}

func (c *Client) observe(operation string, result Result, elapsed time.Duration) {
	outcome := "success"
	if !result.Succeeded {
		outcome = "failure"
	}
	if CallTotal != nil {
		CallTotal.WithLabelValues(operation, outcome).Inc()
	}
	if CallDuration != nil {
		CallDuration.WithLabelValues(operation).Observe(float64(elapsed.Milliseconds()))
	}
	evt := c.logger.Debug().Str("operation", operation).Str("result", outcome).Int("status", result.Status)
	if !result.Succeeded {
		evt = c.logger.Warn().Str("operation", operation).Int("status", result.Status)
	}
	evt.Dur("elapsed", elapsed).Msg("gateway_call")
}

// errorDetail decides failure from the body discriminator and status class,
// and picks the most useful detail available.
func errorDetail(operation string, status int, parsed map[string]any) (any, bool) {
	if errs, present := parsed["errors"]; present {
		return errs, true
	}
	if status >= http.StatusBadRequest {
		if len(parsed) > 0 {
			return parsed, true
		}
		return fallbackDetail(operation), true
	}
	return nil, false
}

func transportDetail(operation string, err error) map[string]any {
	return map[string]any{
		"message":   fallbackMessage(operation),
		"transport": err.Error(),
	}
}

func fallbackDetail(operation string) map[string]any {
	return map[string]any{"message": fallbackMessage(operation)}
}
