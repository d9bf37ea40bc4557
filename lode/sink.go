// Package lode persists parser events to a Lode dataset.
//
// Events are written as JSON lines under a Hive layout partitioned by
// source/day/message_id/event_type, on the local filesystem or S3.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "boltstream"

// DeriveDay computes the partition day from session start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds Lode sink configuration.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition key for the upstream producer.
	Source string
	// Day is the partition key derived from session start time (YYYY-MM-DD UTC).
	Day string
	// SessionID is stamped on metrics records.
	SessionID string
}

// withDefaults fills unset partition values so every record carries all keys.
func (c Config) withDefaults() Config {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.Source == "" {
		c.Source = "default"
	}
	if c.Day == "" {
		c.Day = DeriveDay(time.Now())
	}
	return c
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteEvents writes a batch of events to Lode.
	// Must preserve ordering within the batch.
	WriteEvents(ctx context.Context, events []*types.EventEnvelope) error

	// Close releases client resources.
	Close() error
}

// Sink is a Lode-backed implementation of policy.Sink.
type Sink struct {
	client Client
}

// NewSink creates a new Lode sink.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteEvents implements policy.Sink.
func (s *Sink) WriteEvents(ctx context.Context, events []*types.EventEnvelope) error {
	return s.client.WriteEvents(ctx, events)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

// Verify Sink implements policy.Sink.
var _ policy.Sink = (*Sink)(nil)

// StubClient is a test client that records writes without persisting.
type StubClient struct {
	mu      sync.Mutex
	batches [][]*types.EventEnvelope
	closed  bool
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteEvents implements Client.
func (c *StubClient) WriteEvents(_ context.Context, events []*types.EventEnvelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, events)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Batches returns the recorded write batches.
func (c *StubClient) Batches() [][]*types.EventEnvelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]*types.EventEnvelope(nil), c.batches...)
}

// Closed reports whether Close was called.
func (c *StubClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
