// Package remote executes requests against the inspection API with
// bounded retry. Network failures never escape as errors; every call
// collapses into a Result the caller must check.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rpacode/edlsync/internal/logger"
	"github.com/rpacode/edlsync/internal/model"
)

// HeaderIdempotencyKey carries the client-generated key the remote side
// can deduplicate at-least-once redeliveries on.
const HeaderIdempotencyKey = "X-Idempotency-Key"

// SettingsStore is the slice of the local store the client reads its
// runtime configuration from.
type SettingsStore interface {
	APIConfig() (model.APIConfig, error)
	AuthToken() (string, error)
	SetSetting(key string, value interface{}) error
	GetSetting(key string, dest interface{}) (bool, error)
	DeleteSetting(key string) error
}

// Result is the outcome of one logical request, after internal retries.
// A failed Result is final for that call; queue-level retry is the
// caller's business.
type Result struct {
	Success bool
	Status  int
	Data    json.RawMessage
	Error   string
}

// Client executes requests against the remote API.
type Client struct {
	settings SettingsStore
	http     *http.Client

	// sleep is stubbed in tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// NewClient creates a Client reading base URL, timeout, retry policy and
// auth token from the settings store on every call, so a settings save
// takes effect from the next request on.
func NewClient(settings SettingsStore) *Client {
	return &Client{
		settings: settings,
		http:     &http.Client{},
		sleep:    time.Sleep,
	}
}

// Send executes method against path (joined onto the configured base URL
// unless already absolute) with body JSON-marshaled when non-nil. On a
// non-2xx status or transport failure it retries up to the configured
// attempt count with a linearly growing delay (retryDelay * attempt),
// then reports the last error in the Result.
func (c *Client) Send(ctx context.Context, method, path string, body interface{}, headers http.Header) Result {
	cfg, err := c.settings.APIConfig()
	if err != nil {
		return failure(0, fmt.Errorf("failed to load api config: %w", err))
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return failure(0, fmt.Errorf("failed to marshal request body: %w", err))
		}
	}

	url := path
	if !strings.HasPrefix(path, "http") {
		url = strings.TrimSuffix(cfg.BaseURL, "/") + path
	}

	token, err := c.settings.AuthToken()
	if err != nil {
		return failure(0, fmt.Errorf("failed to load auth token: %w", err))
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	retryDelay := time.Duration(cfg.RetryDelayMs) * time.Millisecond

	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		status, data, err := c.do(ctx, method, url, payload, token, headers, timeout)
		if err == nil {
			return Result{Success: true, Status: status, Data: data}
		}

		lastErr = err
		lastStatus = status
		logger.Log.Warn("remote request attempt failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
		if attempt < cfg.RetryAttempts {
			c.sleep(retryDelay * time.Duration(attempt))
		}
	}

	return failure(lastStatus, lastErr)
}

// do executes a single attempt bounded by the configured timeout.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, token string, headers http.Header, timeout time.Duration) (int, json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if len(raw) == 0 {
		return resp.StatusCode, nil, nil
	}
	if !json.Valid(raw) {
		return resp.StatusCode, nil, fmt.Errorf("invalid JSON response body")
	}
	return resp.StatusCode, json.RawMessage(raw), nil
}

func failure(status int, err error) Result {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{Success: false, Status: status, Error: msg}
}
