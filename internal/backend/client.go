// Package backend is the low-level REST client for the storefront backend.
// It owns the ambient HTTP concerns shared by the gateway client and the
// order finalizer: bearer forwarding, per-call timeouts, a circuit breaker
// and an instrumented transport.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource supplies the bearer credential. The auth collaborator owns the
// credential lifecycle; this client only forwards it.
type TokenSource func() string

// NetworkError marks a transient failure (transport error, timeout, 5xx,
// open breaker). Callers retry or surface a retry affordance.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsTransient reports whether err is safe to retry with the same request.
func IsTransient(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

type result struct {
	status int
	body   []byte
}

type Client struct {
	base    string
	token   TokenSource
	timeout time.Duration
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*result]
}

func New(base string, token TokenSource, timeout time.Duration) *Client {
	st := gobreaker.Settings{
		Name:    "storefront-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		timeout: timeout,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[*result](st),
	}
}

// Do performs one JSON round trip and returns the HTTP status. Transport
// errors, timeouts, 5xx responses and an open breaker come back as
// *NetworkError; 4xx statuses are returned to the caller to interpret.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.breaker.Execute(func() (*result, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != nil {
			if tok := c.token(); tok != "" {
				req.Header.Set("Authorization", "Bearer "+tok)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		// 5xx counts as a breaker failure; client errors do not
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("backend returned %s", resp.Status)
		}
		return &result{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return 0, &NetworkError{Op: fmt.Sprintf("%s %s", method, path), Err: err}
	}

	if out != nil && res.status < http.StatusMultipleChoices && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			return res.status, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}
	return res.status, nil
}
