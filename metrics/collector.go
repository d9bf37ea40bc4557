// Package metrics provides per-session metrics collection.
//
// The Collector accumulates counters during a single ingestion session. It is
// a leaf package with no internal dependencies. Parser and policy counters are
// absorbed from their own stats snapshots at session end rather than recorded
// live, avoiding double-counting.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all session metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Session lifecycle
	SessionsStarted   int64 `json:"sessions_started_total"`
	SessionsCompleted int64 `json:"sessions_completed_total"`
	SessionsFailed    int64 `json:"sessions_failed_total"`

	// Input
	ChunksReceived    int64 `json:"chunks_received_total"`
	BytesReceived     int64 `json:"bytes_received_total"`
	FrameDecodeErrors int64 `json:"frame_decode_errors_total"`
	StreamsCompleted  int64 `json:"streams_completed_total"`
	StreamsReset      int64 `json:"streams_reset_total"`

	// Parser (absorbed from parser.Stats at session end)
	TagsRecognized int64 `json:"tags_recognized_total"`
	TagsLiteral    int64 `json:"tags_literal_total"`
	ContentUpdates int64 `json:"content_updates_total"`
	ImageBlocks    int64 `json:"image_blocks_total"`
	ImageFailures  int64 `json:"image_failures_total"`
	TagOverflows   int64 `json:"tag_overflows_total"`
	ImageOverflows int64 `json:"image_overflows_total"`

	// Ingestion (absorbed from policy.Stats at session end)
	EventsReceived  int64            `json:"events_received_total"`
	EventsPersisted int64            `json:"events_persisted_total"`
	EventsDropped   int64            `json:"events_dropped_total"`
	DroppedByType   map[string]int64 `json:"dropped_by_type,omitempty"`
	FlushTriggers   map[string]int64 `json:"flush_triggers,omitempty"`

	// Adapter
	AdapterPublishSuccess int64 `json:"adapter_publish_success_total"`
	AdapterPublishFailure int64 `json:"adapter_publish_failure_total"`

	// Sink
	SinkWriteSuccess int64 `json:"sink_write_success_total"`
	SinkWriteFailure int64 `json:"sink_write_failure_total"`

	// Dimensions (informational, set at construction)
	Policy         string `json:"policy"`
	StorageBackend string `json:"storage_backend"`
	SessionID      string `json:"session_id"`
	Source         string `json:"source,omitempty"`
}

// ParserCounters mirrors parser.Stats so this package stays free of
// dependencies on the parser.
type ParserCounters struct {
	TagsRecognized int64
	TagsLiteral    int64
	ContentUpdates int64
	ImageBlocks    int64
	ImageFailures  int64
	TagOverflows   int64
	ImageOverflows int64
}

// Collector accumulates metrics during a single session.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	sessionsStarted   int64
	sessionsCompleted int64
	sessionsFailed    int64

	chunksReceived    int64
	bytesReceived     int64
	frameDecodeErrors int64
	streamsCompleted  int64
	streamsReset      int64

	parser ParserCounters

	eventsReceived  int64
	eventsPersisted int64
	eventsDropped   int64
	droppedByType   map[string]int64
	flushTriggers   map[string]int64

	adapterPublishSuccess int64
	adapterPublishFailure int64

	sinkWriteSuccess int64
	sinkWriteFailure int64

	policy         string
	storageBackend string
	sessionID      string
	source         string
}

// NewCollector creates a Collector with dimension labels.
// sessionID and source are optional dimensions.
func NewCollector(policy, storageBackend, sessionID, source string) *Collector {
	return &Collector{
		droppedByType:  make(map[string]int64),
		policy:         policy,
		storageBackend: storageBackend,
		sessionID:      sessionID,
		source:         source,
	}
}

// add applies fn under the lock. No-op on a nil receiver.
func (c *Collector) add(fn func()) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}

// --- Session lifecycle ---

// IncSessionStarted records a session start.
func (c *Collector) IncSessionStarted() { c.add(func() { c.sessionsStarted++ }) }

// IncSessionCompleted records a successful session completion.
func (c *Collector) IncSessionCompleted() { c.add(func() { c.sessionsCompleted++ }) }

// IncSessionFailed records a session that ended with a stream or policy failure.
func (c *Collector) IncSessionFailed() { c.add(func() { c.sessionsFailed++ }) }

// --- Input ---

// AddChunk records one received chunk of n bytes.
func (c *Collector) AddChunk(n int) {
	c.add(func() {
		c.chunksReceived++
		c.bytesReceived += int64(n)
	})
}

// IncFrameDecodeErrors records a frame decode error.
func (c *Collector) IncFrameDecodeErrors() { c.add(func() { c.frameDecodeErrors++ }) }

// IncStreamCompleted records a message whose final chunk was processed.
func (c *Collector) IncStreamCompleted() { c.add(func() { c.streamsCompleted++ }) }

// IncStreamReset records a reset frame. A reset of all streams counts once.
func (c *Collector) IncStreamReset() { c.add(func() { c.streamsReset++ }) }

// --- Adapter ---

// IncAdapterPublishSuccess records a delivered completion notification.
func (c *Collector) IncAdapterPublishSuccess() { c.add(func() { c.adapterPublishSuccess++ }) }

// IncAdapterPublishFailure records a failed completion notification.
func (c *Collector) IncAdapterPublishFailure() { c.add(func() { c.adapterPublishFailure++ }) }

// --- Sink ---
// Sink counters are per-call, not per-record. A single WriteEvents call
// with N events counts as 1 success. Per-event granularity is tracked
// separately by policy.Stats (events_persisted_total).

// IncSinkWriteSuccess records a successful sink write operation (per-call).
func (c *Collector) IncSinkWriteSuccess() { c.add(func() { c.sinkWriteSuccess++ }) }

// IncSinkWriteFailure records a failed sink write operation (per-call).
func (c *Collector) IncSinkWriteFailure() { c.add(func() { c.sinkWriteFailure++ }) }

// --- Absorbed stats ---

// AbsorbParserStats copies parser counters into the collector.
// Called once after session completion with the final parser stats.
func (c *Collector) AbsorbParserStats(pc ParserCounters) {
	c.add(func() { c.parser = pc })
}

// AbsorbPolicyStats copies ingestion counters from policy.Stats into the collector.
// Called once after session completion with the final policy stats snapshot.
// Map keys are string-typed event types and flush triggers to keep this
// package free of dependencies on the types and policy packages.
// flushTriggers may be nil for policies that do not report triggers.
func (c *Collector) AbsorbPolicyStats(totalEvents, persisted, dropped int64, droppedByType, flushTriggers map[string]int64) {
	c.add(func() {
		c.eventsReceived = totalEvents
		c.eventsPersisted = persisted
		c.eventsDropped = dropped
		c.droppedByType = copyCounts(droppedByType)
		if flushTriggers != nil {
			c.flushTriggers = copyCounts(flushTriggers)
		} else {
			c.flushTriggers = nil
		}
	})
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		SessionsStarted:   c.sessionsStarted,
		SessionsCompleted: c.sessionsCompleted,
		SessionsFailed:    c.sessionsFailed,

		ChunksReceived:    c.chunksReceived,
		BytesReceived:     c.bytesReceived,
		FrameDecodeErrors: c.frameDecodeErrors,
		StreamsCompleted:  c.streamsCompleted,
		StreamsReset:      c.streamsReset,

		TagsRecognized: c.parser.TagsRecognized,
		TagsLiteral:    c.parser.TagsLiteral,
		ContentUpdates: c.parser.ContentUpdates,
		ImageBlocks:    c.parser.ImageBlocks,
		ImageFailures:  c.parser.ImageFailures,
		TagOverflows:   c.parser.TagOverflows,
		ImageOverflows: c.parser.ImageOverflows,

		EventsReceived:  c.eventsReceived,
		EventsPersisted: c.eventsPersisted,
		EventsDropped:   c.eventsDropped,
		DroppedByType:   copyCounts(c.droppedByType),

		AdapterPublishSuccess: c.adapterPublishSuccess,
		AdapterPublishFailure: c.adapterPublishFailure,

		SinkWriteSuccess: c.sinkWriteSuccess,
		SinkWriteFailure: c.sinkWriteFailure,

		Policy:         c.policy,
		StorageBackend: c.storageBackend,
		SessionID:      c.sessionID,
		Source:         c.source,
	}
	if c.flushTriggers != nil {
		s.FlushTriggers = copyCounts(c.flushTriggers)
	}
	return s
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
