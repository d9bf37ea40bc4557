package policy

import (
	"context"
	"errors"
	"sync"

	"github.com/pithecene-io/boltstream/types"
)

// ErrPolicyClosed is returned for events ingested after Close.
var ErrPolicyClosed = errors.New("policy closed")

// StrictPolicy writes every event to the sink as it arrives, interim updates
// included. The caller blocks on sink latency and a sink error fails the
// session.
type StrictPolicy struct {
	sink Sink

	mu     sync.Mutex
	stats  *counters
	closed bool
}

// NewStrictPolicy returns a strict policy writing to sink.
func NewStrictPolicy(sink Sink) *StrictPolicy {
	return &StrictPolicy{sink: sink, stats: newCounters()}
}

// IngestEvent writes envelope as a batch of one.
func (p *StrictPolicy) IngestEvent(ctx context.Context, envelope *types.EventEnvelope) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPolicyClosed
	}
	p.stats.ingested()
	p.mu.Unlock()

	err := p.sink.WriteEvents(ctx, []*types.EventEnvelope{envelope})

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.stats.failed()
		return err
	}
	p.stats.persisted(1)
	return nil
}

// Flush only counts; nothing is ever buffered.
func (p *StrictPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	p.stats.flushed()
	p.mu.Unlock()
	return nil
}

// Close closes the sink once; later calls return nil.
func (p *StrictPolicy) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.sink.Close()
}

// Stats implements Policy.
func (p *StrictPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshot(0)
}

var _ Policy = (*StrictPolicy)(nil)
