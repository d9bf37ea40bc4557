package reader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/types"
)

// summaryWidth bounds text excerpts in event summaries.
const summaryWidth = 60

// ParseMetricsRecord converts a Lode record (map[string]any) to SessionStats.
// Handles both int64 (direct writes) and float64 (JSON round-trips) for numeric fields.
func ParseMetricsRecord(record map[string]any) (*SessionStats, error) {
	if record == nil {
		return nil, errors.New("nil record")
	}

	stats := &SessionStats{
		Ts: toString(record["ts"]),
		Snapshot: metrics.Snapshot{
			SessionsStarted:   toInt64(record["sessions_started_total"]),
			SessionsCompleted: toInt64(record["sessions_completed_total"]),
			SessionsFailed:    toInt64(record["sessions_failed_total"]),

			ChunksReceived:    toInt64(record["chunks_received_total"]),
			BytesReceived:     toInt64(record["bytes_received_total"]),
			FrameDecodeErrors: toInt64(record["frame_decode_errors_total"]),
			StreamsCompleted:  toInt64(record["streams_completed_total"]),
			StreamsReset:      toInt64(record["streams_reset_total"]),

			TagsRecognized: toInt64(record["tags_recognized_total"]),
			TagsLiteral:    toInt64(record["tags_literal_total"]),
			ContentUpdates: toInt64(record["content_updates_total"]),
			ImageBlocks:    toInt64(record["image_blocks_total"]),
			ImageFailures:  toInt64(record["image_failures_total"]),
			TagOverflows:   toInt64(record["tag_overflows_total"]),
			ImageOverflows: toInt64(record["image_overflows_total"]),

			EventsReceived:  toInt64(record["events_received_total"]),
			EventsPersisted: toInt64(record["events_persisted_total"]),
			EventsDropped:   toInt64(record["events_dropped_total"]),
			DroppedByType:   parseCounts(record["dropped_by_type"]),
			FlushTriggers:   parseCounts(record["flush_triggers"]),

			AdapterPublishSuccess: toInt64(record["adapter_publish_success_total"]),
			AdapterPublishFailure: toInt64(record["adapter_publish_failure_total"]),
			SinkWriteSuccess:      toInt64(record["sink_write_success_total"]),
			SinkWriteFailure:      toInt64(record["sink_write_failure_total"]),

			Policy:         toString(record["policy"]),
			StorageBackend: toString(record["storage_backend"]),
			SessionID:      toString(record["session_id"]),
			Source:         toString(record["source"]),
		},
	}

	// The write path always populates these; missing values indicate
	// data corruption or a malformed record.
	if stats.Ts == "" {
		return nil, errors.New("metrics record missing required field: ts")
	}
	if stats.SessionID == "" {
		return nil, errors.New("metrics record missing required field: session_id")
	}
	if stats.Policy == "" {
		return nil, errors.New("metrics record missing required field: policy")
	}

	return stats, nil
}

// SummarizePayload renders a one-line description of an event payload.
func SummarizePayload(et types.EventType, payload map[string]any) string {
	switch et {
	case types.EventTypeText:
		return excerpt(toString(payload["text"]))
	case types.EventTypeArtifactOpen, types.EventTypeArtifactClose:
		return fmt.Sprintf("%s %q", toString(payload["artifact_id"]), toString(payload["title"]))
	case types.EventTypeActionOpen, types.EventTypeActionClose, types.EventTypeActionContentUpdate:
		action, _ := payload["action"].(map[string]any)
		parts := []string{toString(action["type"])}
		if path := toString(action["file_path"]); path != "" {
			parts = append(parts, path)
		}
		if content := toString(action["content"]); content != "" {
			parts = append(parts, fmt.Sprintf("(%d bytes)", len(content)))
		}
		return strings.TrimSpace(strings.Join(parts, " "))
	case types.EventTypeImageGenerationRequest:
		images, _ := payload["images"].([]any)
		if len(images) == 1 {
			return "1 image"
		}
		return fmt.Sprintf("%d images", len(images))
	case types.EventTypeParseError:
		return fmt.Sprintf("%s: %s", toString(payload["kind"]), toString(payload["message"]))
	default:
		return ""
	}
}

// excerpt flattens newlines and truncates s to summaryWidth runes.
func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= summaryWidth {
		return s
	}
	return string(r[:summaryWidth-1]) + "…"
}

// toInt64 converts a value to int64, handling float64 from JSON and int64 from direct writes.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// parseCounts converts a counter map from Lode record format.
// Handles both map[string]int64 (direct) and map[string]any (JSON round-trip).
func parseCounts(v any) map[string]int64 {
	switch m := v.(type) {
	case map[string]int64:
		return m
	case map[string]any:
		result := make(map[string]int64, len(m))
		for k, val := range m {
			result[k] = toInt64(val)
		}
		return result
	default:
		return nil
	}
}
