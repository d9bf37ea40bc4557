package policy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pithecene-io/boltstream/log"
	"github.com/pithecene-io/boltstream/types"
)

// StreamingConfig configures a StreamingPolicy. At least one trigger must
// be enabled.
type StreamingConfig struct {
	// FlushCount flushes once N events are buffered (0 disables).
	FlushCount int
	// FlushInterval flushes on a timer (0 disables).
	FlushInterval time.Duration
	// FlushOnArtifactClose flushes as soon as an artifact_close event is
	// buffered, so a finished artifact reaches storage with all its actions.
	FlushOnArtifactClose bool

	Logger *log.Logger
}

func (c StreamingConfig) hasTrigger() bool {
	return c.FlushCount > 0 || c.FlushInterval > 0 || c.FlushOnArtifactClose
}

// FlushTrigger identifies what caused a streaming flush.
type FlushTrigger string

const (
	FlushTriggerCount       FlushTrigger = "count"
	FlushTriggerInterval    FlushTrigger = "interval"
	FlushTriggerArtifact    FlushTrigger = "artifact"
	FlushTriggerTermination FlushTrigger = "termination" // message end or shutdown
)

var flushTriggers = []FlushTrigger{
	FlushTriggerCount,
	FlushTriggerInterval,
	FlushTriggerArtifact,
	FlushTriggerTermination,
}

// ErrStreamingInvalidConfig is returned when no flush trigger is enabled.
var ErrStreamingInvalidConfig = errors.New("invalid streaming config: one of FlushCount, FlushInterval or FlushOnArtifactClose must be set")

// StreamingPolicy persists continuously in batches and never drops.
//
// A failed batch is put back ahead of newer events and retried on the next
// trigger. mu guards the buffer and counters; flushMu serializes writes so
// batches reach the sink in ingest order.
type StreamingPolicy struct {
	sink   Sink
	config StreamingConfig
	logger *log.Logger

	mu       sync.Mutex
	buffer   []*types.EventEnvelope
	bytes    int64
	stats    *counters
	triggers map[FlushTrigger]int64
	stopped  bool

	flushMu sync.Mutex

	stop chan struct{}
	done chan struct{}
}

// NewStreamingPolicy validates config and starts the interval loop when an
// interval is set.
func NewStreamingPolicy(sink Sink, config StreamingConfig) (*StreamingPolicy, error) {
	if !config.hasTrigger() {
		return nil, ErrStreamingInvalidConfig
	}

	p := &StreamingPolicy{
		sink:     sink,
		config:   config,
		logger:   config.Logger,
		stats:    newCounters(),
		triggers: make(map[FlushTrigger]int64, len(flushTriggers)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if config.FlushInterval > 0 {
		go p.tick()
	} else {
		close(p.done)
	}
	return p, nil
}

// IngestEvent buffers the event and flushes when a count or artifact
// trigger fires.
func (p *StreamingPolicy) IngestEvent(ctx context.Context, envelope *types.EventEnvelope) error {
	p.mu.Lock()
	p.stats.ingested()
	p.buffer = append(p.buffer, envelope)
	p.bytes += EstimateEventSize(envelope)

	var trigger FlushTrigger
	switch {
	case p.config.FlushOnArtifactClose && envelope.Type == types.EventTypeArtifactClose:
		trigger = FlushTriggerArtifact
	case p.config.FlushCount > 0 && len(p.buffer) >= p.config.FlushCount:
		trigger = FlushTriggerCount
	}
	p.mu.Unlock()

	if trigger == "" {
		return nil
	}
	return p.flush(ctx, trigger)
}

// Flush writes everything buffered.
func (p *StreamingPolicy) Flush(ctx context.Context) error {
	return p.flush(ctx, FlushTriggerTermination)
}

// flush swaps the buffer out under mu and writes it outside mu, so ingest
// is never blocked on the sink.
func (p *StreamingPolicy) flush(ctx context.Context, trigger FlushTrigger) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	p.triggers[trigger]++
	p.stats.flushed()
	batch := p.buffer
	if len(batch) == 0 {
		p.mu.Unlock()
		return nil
	}
	p.buffer = nil
	p.bytes = 0
	p.mu.Unlock()

	if err := p.sink.WriteEvents(ctx, batch); err != nil {
		p.mu.Lock()
		p.stats.failed()
		p.buffer = append(batch, p.buffer...)
		p.bytes = 0
		for _, e := range p.buffer {
			p.bytes += EstimateEventSize(e)
		}
		p.mu.Unlock()

		p.logger.Error("streaming flush failed", map[string]any{
			"policy":  "streaming",
			"trigger": string(trigger),
			"events":  len(batch),
			"error":   err.Error(),
		})
		return err
	}

	p.mu.Lock()
	p.stats.persisted(int64(len(batch)))
	p.mu.Unlock()

	p.logger.Debug("streaming flush", map[string]any{
		"policy":  "streaming",
		"trigger": string(trigger),
		"events":  len(batch),
	})
	return nil
}

// Close stops the interval loop, flushes what is left (best effort) and
// closes the sink. Safe to call more than once.
func (p *StreamingPolicy) Close() error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.stop)
	}
	p.mu.Unlock()
	<-p.done

	_ = p.Flush(context.Background())
	return p.sink.Close()
}

// Stats returns a snapshot of policy statistics.
func (p *StreamingPolicy) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.snapshot(p.bytes)
}

// FlushTriggerStats returns flush counts for every trigger, zeros included.
func (p *StreamingPolicy) FlushTriggerStats() map[FlushTrigger]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[FlushTrigger]int64, len(flushTriggers))
	for _, t := range flushTriggers {
		out[t] = p.triggers[t]
	}
	return out
}

func (p *StreamingPolicy) tick() {
	defer close(p.done)

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			pending := len(p.buffer) > 0
			p.mu.Unlock()
			if pending {
				// Failures are logged and the batch retried next tick.
				_ = p.flush(context.Background(), FlushTriggerInterval)
			}
		}
	}
}

var _ Policy = (*StreamingPolicy)(nil)
