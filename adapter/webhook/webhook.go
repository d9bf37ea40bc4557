// Package webhook POSTs message completion events as JSON to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pithecene-io/boltstream/adapter"
	"github.com/pithecene-io/boltstream/iox"
	"github.com/pithecene-io/boltstream/types"
)

// Defaults applied by New when the config leaves them unset.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
)

// Request headers set on every delivery. HeaderMessageID lets receivers
// drop duplicates produced by retries.
const (
	HeaderMessageID = "X-Boltstream-Message-Id"
	HeaderEventType = "X-Boltstream-Event"
)

var userAgent = "boltstream/" + types.Version

// Config configures the webhook adapter.
type Config struct {
	URL     string
	Headers map[string]string
	// Timeout bounds a single attempt, not the whole publish.
	Timeout time.Duration
	// Retries is the number of attempts after the first.
	Retries     int
	BackoffBase time.Duration
}

func (c *Config) validate() error {
	if c.URL == "" {
		return errors.New("webhook adapter requires a URL")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("webhook: invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook: URL scheme must be http or https, got %q", u.Scheme)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0, got %d", c.Retries)
	}
	return nil
}

// Adapter publishes message completion events via HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New validates cfg, fills defaults and returns a ready adapter.
func New(cfg Config) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = adapter.DefaultBackoffBase
	}
	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish delivers event, retrying 5xx, 408, 429 and transport errors with
// exponential backoff. Other 4xx responses fail on the first attempt.
func (a *Adapter) Publish(ctx context.Context, event *adapter.MessageCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	attempts := a.config.Retries + 1
	var lastErr error
	for n := 0; n < attempts; n++ {
		if n > 0 {
			if err := adapter.Wait(ctx, a.config.BackoffBase, n); err != nil {
				return fmt.Errorf("webhook: context canceled during backoff: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("webhook: context canceled: %w", err)
		}

		lastErr = a.post(ctx, event, body)
		switch {
		case lastErr == nil:
			return nil
		case IsNonRetriable(lastErr):
			return fmt.Errorf("webhook: non-retriable error: %w", lastErr)
		case ctx.Err() != nil:
			return fmt.Errorf("webhook: context canceled: %w", lastErr)
		}
	}
	return fmt.Errorf("webhook: failed after %d attempts: %w", attempts, lastErr)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// retriable reports whether a retry may get a different answer.
func (e *StatusError) retriable() bool {
	switch e.Code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.Code >= 500
}

// IsNonRetriable reports whether err carries a StatusError that a retry
// cannot fix.
func IsNonRetriable(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && !statusErr.retriable()
}

func (a *Adapter) post(ctx context.Context, event *adapter.MessageCompletedEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderMessageID, event.MessageID)
	req.Header.Set(HeaderEventType, event.EventType)
	// Configured headers win, including over the defaults above.
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Close drops idle keep-alive connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
