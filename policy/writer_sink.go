package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pithecene-io/boltstream/types"
)

// ErrSinkClosed is returned by writes after Close.
var ErrSinkClosed = errors.New("sink closed")

// WriterSink writes each event as one JSON line to an io.Writer.
// Used when no storage backend is configured, so events go to stdout.
type WriterSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closed bool
}

// NewWriterSink creates a JSON-lines sink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// WriteEvents encodes the batch in order. A write after Close is an error.
func (s *WriterSink) WriteEvents(_ context.Context, events []*types.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	for _, e := range events {
		if err := s.enc.Encode(e); err != nil {
			return fmt.Errorf("write event %s: %w", e.EventID, err)
		}
	}
	return nil
}

// Close marks the sink closed. The underlying writer is not closed.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify WriterSink implements Sink.
var _ Sink = (*WriterSink)(nil)
