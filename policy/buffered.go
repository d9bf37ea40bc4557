package policy

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/pithecene-io/boltstream/log"
	"github.com/pithecene-io/boltstream/types"
)

// BufferedConfig configures a BufferedPolicy. At least one limit must be
// positive; a zero limit is unbounded.
type BufferedConfig struct {
	MaxBufferEvents int
	// MaxBufferBytes bounds the EstimateEventSize total.
	MaxBufferBytes int64
	Logger         *log.Logger
}

// DefaultBufferedConfig is 1000 events or 10 MiB, whichever fills first.
func DefaultBufferedConfig() BufferedConfig {
	return BufferedConfig{MaxBufferEvents: 1000, MaxBufferBytes: 10 << 20}
}

// ErrInvalidConfig is returned when BufferedConfig sets no limit.
var ErrInvalidConfig = errors.New("invalid config: at least one of MaxBufferEvents or MaxBufferBytes must be set")

// Drop reasons, as logged.
const (
	dropBufferFull = "buffer_full"
	dropEvicted    = "evicted_for_non_droppable"
)

// pending is a buffered event with its size estimate, computed once.
type pending struct {
	env  *types.EventEnvelope
	size int64
}

// BufferedPolicy batches events in a bounded buffer and writes them on Flush.
//
// When the buffer is full an incoming droppable event is dropped. An
// incoming non-droppable event first evicts buffered droppable events,
// oldest first; if that is not enough the buffer is written out to make
// room. A failed write keeps the batch for the next flush.
type BufferedPolicy struct {
	sink   Sink
	config BufferedConfig
	logger *log.Logger

	mu     sync.Mutex // guards buf, bytes, stats, closed
	buf    []pending
	bytes  int64
	stats  *counters
	closed bool

	flushMu sync.Mutex // one sink write at a time
}

// NewBufferedPolicy returns ErrInvalidConfig when no limit is set.
func NewBufferedPolicy(sink Sink, config BufferedConfig) (*BufferedPolicy, error) {
	if config.MaxBufferEvents <= 0 && config.MaxBufferBytes <= 0 {
		return nil, ErrInvalidConfig
	}
	return &BufferedPolicy{
		sink:   sink,
		config: config,
		logger: config.Logger,
		buf:    make([]pending, 0, min(max(config.MaxBufferEvents, 64), 4096)),
		stats:  newCounters(),
	}, nil
}

// IngestEvent buffers envelope, applying the drop rules when full.
func (p *BufferedPolicy) IngestEvent(ctx context.Context, envelope *types.EventEnvelope) error {
	ev := pending{env: envelope, size: EstimateEventSize(envelope)}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPolicyClosed
	}
	p.stats.ingested()

	if p.fitsLocked(ev.size) {
		p.pushLocked(ev)
		p.mu.Unlock()
		return nil
	}

	if IsDroppable(envelope.Type) {
		p.stats.dropped(envelope.Type)
		p.mu.Unlock()
		p.logDrop(envelope, dropBufferFull)
		return nil
	}

	evicted := p.evictLocked(ev.size)
	fits := p.fitsLocked(ev.size)
	if fits {
		p.pushLocked(ev)
	}
	p.mu.Unlock()

	for _, e := range evicted {
		p.logDrop(e, dropEvicted)
	}
	if fits {
		return nil
	}

	if err := p.Flush(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	p.pushLocked(ev)
	p.mu.Unlock()
	return nil
}

// Flush writes the whole buffer as one batch. Ingestion continues during
// the write; on failure the batch is put back ahead of newer events.
func (p *BufferedPolicy) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	p.stats.flushed()
	batch, bytes := p.buf, p.bytes
	if len(batch) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.buf = make([]pending, 0, cap(batch))
	p.bytes = 0
	p.mu.Unlock()

	events := make([]*types.EventEnvelope, len(batch))
	for i, e := range batch {
		events[i] = e.env
	}

	err := p.sink.WriteEvents(ctx, events)

	p.mu.Lock()
	if err != nil {
		p.stats.failed()
		p.buf = append(batch, p.buf...)
		p.bytes += bytes
	} else {
		p.stats.persisted(int64(len(batch)))
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("flush failed", map[string]any{
			"policy": "buffered",
			"events": len(batch),
			"error":  err.Error(),
		})
	}
	return err
}

// Close flushes what is left and closes the sink. Both errors are reported.
// Later calls return nil.
func (p *BufferedPolicy) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	flushErr := p.Flush(context.Background())
	return errors.Join(flushErr, p.sink.Close())
}

// Stats implements Policy.
func (p *BufferedPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshot(p.bytes)
}

func (p *BufferedPolicy) fitsLocked(size int64) bool {
	if p.config.MaxBufferEvents > 0 && len(p.buf) >= p.config.MaxBufferEvents {
		return false
	}
	return p.config.MaxBufferBytes <= 0 || p.bytes+size <= p.config.MaxBufferBytes
}

func (p *BufferedPolicy) pushLocked(ev pending) {
	p.buf = append(p.buf, ev)
	p.bytes += ev.size
}

// evictLocked drops buffered droppable events, oldest first, until an event
// of size fits or none are left.
func (p *BufferedPolicy) evictLocked(size int64) []*types.EventEnvelope {
	var evicted []*types.EventEnvelope
	for !p.fitsLocked(size) {
		i := slices.IndexFunc(p.buf, func(e pending) bool { return IsDroppable(e.env.Type) })
		if i < 0 {
			break
		}
		victim := p.buf[i]
		p.buf = slices.Delete(p.buf, i, i+1)
		p.bytes -= victim.size
		p.stats.dropped(victim.env.Type)
		evicted = append(evicted, victim.env)
	}
	return evicted
}

func (p *BufferedPolicy) logDrop(envelope *types.EventEnvelope, reason string) {
	p.logger.Debug("event dropped", map[string]any{
		"policy":     "buffered",
		"event_type": string(envelope.Type),
		"message_id": envelope.MessageID,
		"reason":     reason,
	})
}

var _ Policy = (*BufferedPolicy)(nil)
