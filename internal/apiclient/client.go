package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Response is a successful (2xx) upstream reply.
type Response struct {
	StatusCode int
	Body       []byte
}

// CallError is the tagged failure result of a call. StatusCode is zero for
// transport-level failures.
type CallError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth retrying.
func (e *CallError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client wraps outbound calls to one external service class with a hard
// timeout, bounded retries with backoff, and a fixed pacing delay applied
// after every attempt so the service's rate limits are respected even on
// success.
type Client struct {
	httpClient *http.Client
	maxRetries int
	pacing     time.Duration
	backoff    time.Duration
	logger     *slog.Logger
}

// New creates a client for one service class. pacing is the mandatory sleep
// after every call; a public best-effort service wants ~1.5s, a paid API can
// run much tighter.
func New(timeout time.Duration, maxRetries int, pacing time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		pacing:     pacing,
		backoff:    time.Second,
		logger:     logger,
	}
}

// GetJSON issues a GET with retries and pacing.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodGet, url, headers, nil)
}

// PostJSON issues a POST of a pre-marshaled JSON payload with retries and pacing.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload []byte) (*Response, error) {
	return c.do(ctx, http.MethodPost, url, headers, payload)
}

func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, payload []byte) (*Response, error) {
	var lastErr *CallError

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff * (1 << (attempt - 1))
			if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests {
				// rate limited: back off much longer than a generic failure
				wait = 10 * time.Second * time.Duration(attempt)
				c.logger.Warn("rate limited, backing off", "url", url, "wait", wait)
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, &CallError{Err: err}
			}
		}

		resp, callErr := c.attempt(ctx, method, url, headers, payload)

		// pacing applies after every attempt, successes included
		if err := sleepCtx(ctx, c.pacing); err != nil {
			if callErr == nil {
				return resp, nil
			}
			return nil, callErr
		}

		if callErr == nil {
			return resp, nil
		}
		if !callErr.Retryable() {
			return nil, callErr
		}

		lastErr = callErr
		c.logger.Warn("call failed, will retry",
			"url", url, "attempt", attempt+1, "status", callErr.StatusCode, "error", callErr.Err)
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, method, url string, headers map[string]string, payload []byte) (*Response, *CallError) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, &CallError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &CallError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
