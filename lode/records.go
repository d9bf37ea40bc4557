package lode

import (
	"time"

	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/types"
)

// RecordKind discriminator values.
const (
	RecordKindEvent   = "event"
	RecordKindMetrics = "metrics"
)

// Partition values for session metrics records, which belong to no single
// message.
const (
	metricsMessageID = "_session"
	metricsEventType = "metrics"
)

// EventRecord is the storage format for parser events.
// Includes the record_kind discriminator and the partition keys.
type EventRecord struct {
	RecordKind string `json:"record_kind"`

	ContractVersion string         `json:"contract_version"`
	EventID         string         `json:"event_id"`
	SessionID       string         `json:"session_id"`
	MessageID       string         `json:"message_id"`
	Seq             int64          `json:"seq"`
	Type            string         `json:"type"`
	Ts              string         `json:"ts"`
	Payload         map[string]any `json:"payload"`

	// Partition keys (used by Lode HiveLayout)
	Source    string `json:"source"`
	Day       string `json:"day"`
	EventType string `json:"event_type"`
}

// toEventRecord converts an EventEnvelope to its storage format.
func toEventRecord(e *types.EventEnvelope, cfg Config) EventRecord {
	return EventRecord{
		RecordKind:      RecordKindEvent,
		ContractVersion: e.ContractVersion,
		EventID:         e.EventID,
		SessionID:       e.SessionID,
		MessageID:       e.MessageID,
		Seq:             e.Seq,
		Type:            string(e.Type),
		Ts:              e.Ts,
		Payload:         e.Payload,
		Source:          cfg.Source,
		Day:             cfg.Day,
		EventType:       string(e.Type),
	}
}

// toEventRecordMap converts an EventEnvelope to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toEventRecordMap(e *types.EventEnvelope, cfg Config) map[string]any {
	r := toEventRecord(e, cfg)
	return map[string]any{
		"record_kind":      r.RecordKind,
		"contract_version": r.ContractVersion,
		"event_id":         r.EventID,
		"session_id":       r.SessionID,
		"message_id":       r.MessageID,
		"seq":              r.Seq,
		"type":             r.Type,
		"ts":               r.Ts,
		"payload":          r.Payload,
		"source":           r.Source,
		"day":              r.Day,
		"event_type":       r.EventType,
	}
}

// fromEventRecordMap rebuilds an envelope from a stored record.
// Returns false when the record is not an event record.
func fromEventRecordMap(m map[string]any) (*types.EventEnvelope, bool) {
	if m["record_kind"] != RecordKindEvent {
		return nil, false
	}
	payload, _ := m["payload"].(map[string]any)
	return &types.EventEnvelope{
		ContractVersion: toString(m["contract_version"]),
		EventID:         toString(m["event_id"]),
		SessionID:       toString(m["session_id"]),
		MessageID:       toString(m["message_id"]),
		Seq:             toInt64(m["seq"]),
		Type:            types.EventType(toString(m["type"])),
		Ts:              toString(m["ts"]),
		Payload:         payload,
	}, true
}

// toMetricsRecordMap converts a session metrics snapshot to a map for storage.
func toMetricsRecordMap(snap metrics.Snapshot, completedAt time.Time, cfg Config) map[string]any {
	return map[string]any{
		"record_kind":                   RecordKindMetrics,
		"ts":                            completedAt.UTC().Format(time.RFC3339Nano),
		"session_id":                    snap.SessionID,
		"policy":                        snap.Policy,
		"storage_backend":               snap.StorageBackend,
		"source":                        cfg.Source,
		"day":                           cfg.Day,
		"message_id":                    metricsMessageID,
		"event_type":                    metricsEventType,
		"dropped_by_type":               snap.DroppedByType,
		"flush_triggers":                snap.FlushTriggers,
		"sessions_started_total":        snap.SessionsStarted,
		"sessions_completed_total":      snap.SessionsCompleted,
		"sessions_failed_total":         snap.SessionsFailed,
		"chunks_received_total":         snap.ChunksReceived,
		"bytes_received_total":          snap.BytesReceived,
		"frame_decode_errors_total":     snap.FrameDecodeErrors,
		"streams_completed_total":       snap.StreamsCompleted,
		"streams_reset_total":           snap.StreamsReset,
		"tags_recognized_total":         snap.TagsRecognized,
		"tags_literal_total":            snap.TagsLiteral,
		"content_updates_total":         snap.ContentUpdates,
		"image_blocks_total":            snap.ImageBlocks,
		"image_failures_total":          snap.ImageFailures,
		"tag_overflows_total":           snap.TagOverflows,
		"image_overflows_total":         snap.ImageOverflows,
		"events_received_total":         snap.EventsReceived,
		"events_persisted_total":        snap.EventsPersisted,
		"events_dropped_total":          snap.EventsDropped,
		"adapter_publish_success_total": snap.AdapterPublishSuccess,
		"adapter_publish_failure_total": snap.AdapterPublishFailure,
		"sink_write_success_total":      snap.SinkWriteSuccess,
		"sink_write_failure_total":      snap.SinkWriteFailure,
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 converts a decoded numeric value to int64.
// JSONL round-trips numbers as float64; in-memory values keep their type.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
