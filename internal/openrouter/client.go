package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// DefaultBaseURL is the public OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

const maxRetries = 3

// ErrEmptyResponse is returned when a completion carries no choices.
var ErrEmptyResponse = errors.New("openrouter: empty response")

// StatusError is a non-200 reply from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request is worth sending again.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client talks to the chat completions and models endpoints.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	backoff    func(attempt int) time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithBackoff sets the wait before retry attempt n (0-based). A zero delay
// also disables Retry-After waits.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoff = f }
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// NewClient returns a client for apiKey against DefaultBaseURL unless an
// option says otherwise.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		backoff:    exponentialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatCompletion posts req to /chat/completions. Rate limits and server
// errors are retried.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: %w", err)
	}
	var out ChatResponse
	if err := c.send(ctx, http.MethodPost, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, fmt.Errorf("openrouter: provider error %d: %s", out.Error.Code, out.Error.Message)
	}
	return &out, nil
}

// Complete returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels returns every model the API advertises.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out ModelsResponse
	if err := c.send(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send issues the request until it gets a 200 or a permanent failure, then
// decodes the body into out.
func (c *Client) send(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.backoff(attempt-1)+c.retryAfter(lastErr)); err != nil {
				return fmt.Errorf("openrouter: %w", err)
			}
		}

		req, err := c.newRequest(ctx, method, path, body)
		if err != nil {
			return fmt.Errorf("openrouter: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("openrouter: %w", err)
		}
		if resp.StatusCode == http.StatusOK {
			err = json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("openrouter: %w", err)
			}
			return nil
		}

		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		serr := &StatusError{Code: resp.StatusCode, Body: string(raw)}
		if !serr.Temporary() {
			return fmt.Errorf("openrouter: %w", serr)
		}
		lastErr = &retryError{StatusError: serr, after: resp.Header.Get("Retry-After")}
	}
	return fmt.Errorf("openrouter: %w", lastErr)
}

// retryError keeps the Retry-After header of a rate-limited reply.
type retryError struct {
	*StatusError
	after string
}

func (e *retryError) Unwrap() error { return e.StatusError }

// retryAfter is the extra wait a 429 asked for, on top of the backoff.
func (c *Client) retryAfter(err error) time.Duration {
	var rerr *retryError
	if !errors.As(err, &rerr) || rerr.Code != http.StatusTooManyRequests || c.backoff(0) == 0 {
		return 0
	}
	secs, perr := strconv.Atoi(rerr.after)
	if perr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
