// Package policy defines how parser events are buffered, dropped and
// persisted on their way to a Sink.
package policy

import (
	"context"
	"maps"

	"github.com/pithecene-io/boltstream/types"
)

// Policy defines the ingestion policy interface.
// Policies control buffering, dropping, and persistence behavior.
//
//   - May drop: action_content_update (interim, best-effort)
//   - Must NOT drop: every other event type
//   - Policy must not alter event shapes
//   - Policy failure terminates the session
type Policy interface {
	// IngestEvent handles an event envelope.
	// May drop droppable event types; must return an error rather than
	// lose a non-droppable one.
	IngestEvent(ctx context.Context, envelope *types.EventEnvelope) error

	// Flush flushes any buffered data.
	// Called when a message completes and on session termination.
	Flush(ctx context.Context) error

	// Close cleans up policy resources.
	Close() error

	// Stats returns an atomic snapshot of policy metrics.
	Stats() Stats
}

// Stats represents policy observability metrics.
type Stats struct {
	// TotalEvents is the total number of events received.
	TotalEvents int64 `json:"total_events"`
	// EventsPersisted is the number of events persisted.
	EventsPersisted int64 `json:"events_persisted"`
	// EventsDropped is the total number of events dropped.
	EventsDropped int64 `json:"events_dropped"`
	// DroppedByType maps event types to drop counts.
	DroppedByType map[types.EventType]int64 `json:"dropped_by_type,omitempty"`
	// BufferSize is the current buffer size in bytes (if buffered).
	BufferSize int64 `json:"buffer_size"`
	// FlushCount is the number of flush operations.
	FlushCount int64 `json:"flush_count"`
	// Errors is the count of sink errors encountered.
	Errors int64 `json:"errors"`
}

// droppableTypes are the interim event types a policy may shed under
// pressure. Everything else must reach the sink or fail the session.
var droppableTypes = map[types.EventType]bool{
	types.EventTypeActionContentUpdate: true,
}

// IsDroppable reports whether eventType may be dropped by policy.
func IsDroppable(eventType types.EventType) bool {
	return droppableTypes[eventType]
}

// DroppableTypes returns a copy of the droppable set.
func DroppableTypes() map[types.EventType]bool {
	return maps.Clone(droppableTypes)
}

// envelopeOverhead approximates the fixed fields of a serialized envelope.
const envelopeOverhead = 200

// EstimateEventSize approximates the stored size of an envelope for buffer
// accounting. Strings count their length, nested values recurse, and other
// scalars count a flat 16 bytes.
func EstimateEventSize(envelope *types.EventEnvelope) int64 {
	return envelopeOverhead + sizeOf(envelope.Payload)
}

func sizeOf(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(val))
	case []byte:
		return int64(len(val))
	case map[string]any:
		var n int64
		for k, inner := range val {
			n += int64(len(k)) + sizeOf(inner)
		}
		return n
	case []any:
		var n int64
		for _, inner := range val {
			n += sizeOf(inner)
		}
		return n
	case []map[string]any:
		var n int64
		for _, inner := range val {
			n += sizeOf(inner)
		}
		return n
	default:
		return 16
	}
}

// counters accumulates Stats. It does no locking; every policy guards its
// counters with the same mutex that guards its buffer, so a snapshot never
// sees counts that disagree with the buffer.
type counters struct {
	stats Stats
}

func newCounters() *counters {
	return &counters{stats: Stats{DroppedByType: make(map[types.EventType]int64)}}
}

func (c *counters) ingested()         { c.stats.TotalEvents++ }
func (c *counters) persisted(n int64) { c.stats.EventsPersisted += n }
func (c *counters) failed()           { c.stats.Errors++ }
func (c *counters) flushed()          { c.stats.FlushCount++ }

func (c *counters) dropped(t types.EventType) {
	c.stats.EventsDropped++
	c.stats.DroppedByType[t]++
}

// snapshot copies the counters; bufferSize is the owner's current buffer.
func (c *counters) snapshot(bufferSize int64) Stats {
	s := c.stats
	s.BufferSize = bufferSize
	s.DroppedByType = maps.Clone(c.stats.DroppedByType)
	return s
}
