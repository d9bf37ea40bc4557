package lode

import (
	"context"

	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

// InstrumentedSink counts each batch write as a sink success or failure on
// the collector. A nil collector is allowed.
type InstrumentedSink struct {
	policy.Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps inner.
func NewInstrumentedSink(inner policy.Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{Sink: inner, collector: collector}
}

// WriteEvents forwards to the wrapped sink.
func (s *InstrumentedSink) WriteEvents(ctx context.Context, events []*types.EventEnvelope) error {
	if err := s.Sink.WriteEvents(ctx, events); err != nil {
		s.collector.IncSinkWriteFailure()
		return err
	}
	s.collector.IncSinkWriteSuccess()
	return nil
}
