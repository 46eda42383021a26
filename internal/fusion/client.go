// Package fusion is the HTTP client for the Fusion 360 add-in.
//
// The add-in exposes an ad hoc JSON-over-HTTP surface on localhost plus a
// one-shot script execution channel. All communication with the CAD host
// goes through this package; nothing above it knows about endpoints,
// retries, or the cm-based units the add-in speaks internally.
//
// Mutating calls are never retried — the add-in's automation surface is
// not idempotent and a duplicate mutation is worse than a failed one.
package fusion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Endpoint paths on the add-in's HTTP server.
const (
	epTestConnection = "/test_connection"
	epBodyProperties = "/get_body_properties"
	epFacesInfo      = "/get_faces_info"
	epEdgesInfo      = "/get_edges_info"
	epAnalyzeHoles   = "/analyze_holes"
	epFilletEdges    = "/fillet_specific_edges"
	epExecuteScript  = "/execute_script"
	epUndo           = "/undo"
)

// scriptTimeout bounds execute_script calls, which can take far longer
// than plain queries while the add-in recomputes features.
const scriptTimeout = 35 * time.Second

// ErrUnreachable reports that the add-in could not be contacted at all.
// It is a distinct error kind: no mutation was attempted, so callers must
// not treat it as a validation failure or try to roll anything back.
var ErrUnreachable = errors.New("fusion add-in unreachable")

// Error is a failure reported by the add-in itself (the request arrived,
// the operation did not succeed).
type Error struct {
	Op     string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fusion %s: %s", e.Op, e.Detail)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

// Client talks to the Fusion add-in. Safe for reuse across requests;
// the caller is responsible for serializing mutations (the add-in's
// automation API is not thread-safe).
type Client struct {
	baseURL    string
	http       *http.Client
	retryCount int
	retryDelay time.Duration
}

// NewClient creates a Client. Zero option fields get conservative defaults.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Client{
		baseURL:    opts.BaseURL,
		http:       &http.Client{Timeout: opts.Timeout},
		retryCount: opts.RetryCount,
		retryDelay: opts.RetryDelay,
	}
}

// Healthy reports whether the add-in answers its test endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodPost, epTestConnection, nil, false)
	return err == nil
}

// get performs a retried, side-effect-free read.
func (c *Client) get(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil, true)
}

// post performs a non-retried request that may mutate CAD state.
func (c *Client) post(ctx context.Context, path string, body any) (map[string]json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body, false)
}

// ExecuteScript runs a snippet inside the add-in's scripting sandbox.
// The snippet has rootComp in scope and reports back through a result
// dict. Used by fixes that need direct feature access (sketch circles,
// extrude depths, shell parameters).
func (c *Client) ExecuteScript(ctx context.Context, code string) (map[string]json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()
	return c.do(ctx, http.MethodPost, epExecuteScript, map[string]string{"code": code}, false)
}

// Undo reverts the most recent successful mutation. The add-in applies
// the undo asynchronously; this returns as soon as it is accepted.
func (c *Client) Undo(ctx context.Context) error {
	_, err := c.post(ctx, epUndo, map[string]any{})
	return err
}

// do issues one HTTP request, retrying transient failures when retry is
// true. 4xx responses and add-in-reported errors are never retried.
func (c *Client) do(ctx context.Context, method, path string, body any, retry bool) (map[string]json.RawMessage, error) {
	attempts := 1
	if retry {
		attempts = c.retryCount
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.once(ctx, method, path, body)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// Only connection-level failures are worth retrying.
		if !errors.Is(err, ErrUnreachable) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, path string, body any) (map[string]json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Caller cancellation is not a connectivity verdict.
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: path, Detail: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(raw, 200))}
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &Error{Op: path, Detail: fmt.Sprintf("invalid JSON response: %v", err)}
	}

	// The add-in reports its own failures in-band.
	if msg, ok := result["error"]; ok {
		var detail string
		_ = json.Unmarshal(msg, &detail)
		if detail == "" {
			detail = string(msg)
		}
		return nil, &Error{Op: path, Detail: detail}
	}

	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
