// Package tokenizer exchanges raw card numbers for opaque tokens via the
// payout provider's tokenization endpoint.
package tokenizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// SentinelToken is the placeholder used when no real token was obtained
// (dry runs, tests). It must never reach a live mutating call; the
// orchestrator enforces that before every submission.
const SentinelToken = "tok_PLACEHOLDER"

// Error reports a failed tokenization. Row-local: the caller skips the row
// and moves on.
type Error struct {
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tokenization failed after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("tokenization failed after %d attempt(s): status %d", e.Attempts, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Tokenizer calls the tokenization endpoint with retry-on-throttle.
type Tokenizer struct {
	url        string
	backoff    []time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(context.Context, time.Duration) error
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *Tokenizer) {
		t.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tokenizer) {
		t.logger = logger
	}
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(t *Tokenizer) {
		t.sleep = sleep
	}
}

// New creates a Tokenizer. backoff lists the wait before each retry after a
// throttled attempt; its length bounds the retries.
func New(url string, backoff []time.Duration, opts ...Option) *Tokenizer {
	t := &Tokenizer{
		url:        url,
		backoff:    backoff,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize exchanges one raw card number for an opaque token. HTTP 429
// triggers the configured backoff schedule; any other failure is returned
// immediately without retry.
func (t *Tokenizer) Tokenize(ctx context.Context, rawValue string) (string, error) {
	attempts := 0
	for {
		attempts++
		token, status, err := t.attempt(ctx, rawValue)
		if err == nil && status == http.StatusOK {
			return token, nil
		}
		if err != nil {
			return "", &Error{Attempts: attempts, Err: err}
		}
		if status != http.StatusTooManyRequests {
			return "", &Error{Attempts: attempts, StatusCode: status}
		}
		if attempts > len(t.backoff) {
			return "", &Error{Attempts: attempts, StatusCode: status}
		}

		wait := t.backoff[attempts-1]
		t.logger.Warn("tokenization throttled, backing off", "wait", wait, "attempt", attempts)
		if err := t.sleep(ctx, wait); err != nil {
			return "", &Error{Attempts: attempts, Err: err}
		}
	}
}

func (t *Tokenizer) attempt(ctx context.Context, rawValue string) (token string, status int, err error) {
	payload, err := json.Marshal(map[string]string{"rawValue": rawValue})
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for keep-alive
		return "", resp.StatusCode, nil
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", resp.StatusCode, fmt.Errorf("unmarshal response: %w", err)
	}
	if result.Token == "" {
		return "", resp.StatusCode, fmt.Errorf("empty token in response")
	}
	return result.Token, http.StatusOK, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
