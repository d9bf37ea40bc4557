// Package redis delivers message completion events over Redis, either as
// pub/sub PUBLISH (fire-and-forget) or as XADD onto a capped stream.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/boltstream/adapter"
)

// Defaults applied by New when the config leaves them unset.
const (
	DefaultChannel      = "boltstream:message_completed"
	DefaultTimeout      = 5 * time.Second
	DefaultRetries      = 3
	DefaultStreamMaxLen = 10_000
)

// Config configures the Redis adapter.
type Config struct {
	// URL is redis://[:password@]host:port[/db].
	URL     string
	Channel string
	// Stream switches delivery from PUBLISH on Channel to XADD on this key.
	Stream string
	// StreamMaxLen caps the stream approximately (MAXLEN ~).
	StreamMaxLen int64
	Timeout      time.Duration
	Retries      int
	BackoffBase  time.Duration
}

// Adapter publishes message completion events to Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New validates cfg and connects lazily; no command is sent until Publish.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.StreamMaxLen < 0 {
		return nil, fmt.Errorf("stream max length must be >= 0, got %d", cfg.StreamMaxLen)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Stream != "" && cfg.StreamMaxLen == 0 {
		cfg.StreamMaxLen = DefaultStreamMaxLen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = adapter.DefaultBackoffBase
	}
	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Target names where events go, as "channel:<name>" or "stream:<name>".
func (a *Adapter) Target() string {
	if a.config.Stream != "" {
		return "stream:" + a.config.Stream
	}
	return "channel:" + a.config.Channel
}

// Publish delivers event, retrying every failure except a closed client.
func (a *Adapter) Publish(ctx context.Context, event *adapter.MessageCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	attempts := a.config.Retries + 1
	var lastErr error
	for n := 0; n < attempts; n++ {
		if n > 0 {
			if err := adapter.Wait(ctx, a.config.BackoffBase, n); err != nil {
				return fmt.Errorf("redis: context canceled during backoff: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}

		lastErr = a.send(ctx, event, body)
		switch {
		case lastErr == nil:
			return nil
		case errors.Is(lastErr, goredis.ErrClosed):
			return fmt.Errorf("redis: %w", lastErr)
		case ctx.Err() != nil:
			return fmt.Errorf("redis: context canceled: %w", lastErr)
		}
	}
	return fmt.Errorf("redis: failed after %d attempts to %s: %w", attempts, a.Target(), lastErr)
}

// send runs one attempt under the per-attempt timeout.
func (a *Adapter) send(ctx context.Context, event *adapter.MessageCompletedEvent, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if a.config.Stream == "" {
		return a.client.Publish(ctx, a.config.Channel, body).Err()
	}
	return a.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: a.config.Stream,
		MaxLen: a.config.StreamMaxLen,
		Approx: true,
		Values: map[string]any{
			"message_id": event.MessageID,
			"session_id": event.SessionID,
			"event":      body,
		},
	}).Err()
}

// Close closes the connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
