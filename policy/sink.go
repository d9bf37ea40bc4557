package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/boltstream/types"
)

// Sink is where a policy hands off event batches: a lode dataset, a JSON
// lines writer, or a stub in tests.
//
// A strict policy writes batches of one; buffered and streaming policies
// write whatever they have accumulated.
type Sink interface {
	// WriteEvents persists events in order. On error the policy decides
	// whether the batch is retried, dropped or fatal.
	WriteEvents(ctx context.Context, events []*types.EventEnvelope) error

	// Close releases resources held by the sink.
	Close() error
}

// StubSink records batches in memory for tests.
type StubSink struct {
	mu      sync.Mutex
	batches [][]*types.EventEnvelope
	events  []*types.EventEnvelope
	err     error
	closed  bool
}

// StubSinkStats is a point-in-time view of a StubSink.
type StubSinkStats struct {
	EventsWritten int64
	EventBatches  int64
	Closed        bool
}

// NewStubSink returns an empty stub sink.
func NewStubSink() *StubSink {
	return &StubSink{}
}

// WriteEvents records a copy of the batch, or fails with the error set by
// SetError.
func (s *StubSink) WriteEvents(_ context.Context, events []*types.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]*types.EventEnvelope(nil), events...))
	s.events = append(s.events, events...)
	return nil
}

// SetError makes subsequent writes fail with err; nil restores success.
func (s *StubSink) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Events returns every written event in write order.
func (s *StubSink) Events() []*types.EventEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.EventEnvelope(nil), s.events...)
}

// BatchSizes returns the length of each written batch.
func (s *StubSink) BatchSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, len(s.batches))
	for i, b := range s.batches {
		sizes[i] = len(b)
	}
	return sizes
}

// Close marks the sink closed.
func (s *StubSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Stats returns counts for assertions.
func (s *StubSink) Stats() StubSinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StubSinkStats{
		EventsWritten: int64(len(s.events)),
		EventBatches:  int64(len(s.batches)),
		Closed:        s.closed,
	}
}
