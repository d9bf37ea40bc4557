package policy

import (
	"context"
	"sync"

	"github.com/pithecene-io/boltstream/types"
)

// NoopPolicy discards everything while keeping the same accounting a real
// policy would: droppable events count as dropped, the rest as persisted.
// It backs dry runs and stdout-only sessions.
type NoopPolicy struct {
	mu    sync.Mutex
	stats *counters
}

func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: newCounters()}
}

func (p *NoopPolicy) IngestEvent(_ context.Context, envelope *types.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.ingested()
	if IsDroppable(envelope.Type) {
		p.stats.dropped(envelope.Type)
		return nil
	}
	p.stats.persisted(1)
	return nil
}

func (p *NoopPolicy) Flush(_ context.Context) error {
	p.mu.Lock()
	p.stats.flushed()
	p.mu.Unlock()
	return nil
}

func (p *NoopPolicy) Close() error { return nil }

func (p *NoopPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshot(0)
}

var _ Policy = (*NoopPolicy)(nil)
