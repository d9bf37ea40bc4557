// Package adapter defines the notification boundary for finished messages.
//
// Adapters publish message completion notifications to downstream systems.
// The runtime owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"time"
)

// EventTypeMessageCompleted is the event_type of every MessageCompletedEvent.
const EventTypeMessageCompleted = "message_completed"

// DefaultBackoffBase is the delay before the first retry. Each further retry
// doubles it.
const DefaultBackoffBase = 500 * time.Millisecond

// MessageCompletedEvent is the payload published when a message's final
// chunk has been parsed and its events flushed.
type MessageCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "message_completed"
	SessionID       string `json:"session_id"`
	MessageID       string `json:"message_id"`
	Source          string `json:"source"`
	Timestamp       string `json:"timestamp"` // ISO 8601
	EventCount      int64  `json:"event_count"`
	Artifacts       int64  `json:"artifacts"`
	Actions         int64  `json:"actions"`
	ImageRequests   int64  `json:"image_requests"`
	ParseErrors     int64  `json:"parse_errors"`
}

// Adapter publishes message completion events to a downstream system.
type Adapter interface {
	// Publish sends a message completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *MessageCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff returns the delay before retry attempt n (n >= 1).
func Backoff(base time.Duration, n int) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if n < 1 {
		return 0
	}
	return time.Duration(1<<uint(n-1)) * base
}

// Wait sleeps for the retry delay of attempt n, returning early with the
// context's error if it is canceled first.
func Wait(ctx context.Context, base time.Duration, n int) error {
	t := time.NewTimer(Backoff(base, n))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
