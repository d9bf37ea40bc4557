package reader

import (
	"strings"
	"testing"

	"github.com/pithecene-io/boltstream/types"
)

func validMetricsRecord() map[string]any {
	return map[string]any{
		"ts":                       "2026-10-18T12:00:00Z",
		"session_id":               "sess-001",
		"policy":                   "buffered",
		"storage_backend":          "fs",
		"source":                   "claude-chat",
		"sessions_started_total":   float64(1),
		"sessions_completed_total": float64(1),
		"chunks_received_total":    float64(42),
		"bytes_received_total":     int64(2048),
		"tags_recognized_total":    float64(6),
		"events_received_total":    float64(17),
		"events_persisted_total":   float64(15),
		"events_dropped_total":     float64(2),
		"dropped_by_type":          map[string]any{"action_content_update": float64(2)},
		"flush_triggers":           map[string]int64{"termination": 1},
	}
}

func TestParseMetricsRecord(t *testing.T) {
	stats, err := ParseMetricsRecord(validMetricsRecord())
	if err != nil {
		t.Fatalf("ParseMetricsRecord failed: %v", err)
	}

	if stats.Ts != "2026-10-18T12:00:00Z" {
		t.Errorf("Ts = %q", stats.Ts)
	}
	if stats.SessionID != "sess-001" || stats.Policy != "buffered" || stats.StorageBackend != "fs" {
		t.Errorf("unexpected dimensions: %+v", stats.Snapshot)
	}
	if stats.Source != "claude-chat" {
		t.Errorf("Source = %q, want claude-chat", stats.Source)
	}
	if stats.ChunksReceived != 42 {
		t.Errorf("ChunksReceived = %d, want 42", stats.ChunksReceived)
	}
	if stats.BytesReceived != 2048 {
		t.Errorf("BytesReceived = %d, want 2048", stats.BytesReceived)
	}
	if stats.EventsReceived != 17 || stats.EventsPersisted != 15 || stats.EventsDropped != 2 {
		t.Errorf("unexpected event counters: %+v", stats.Snapshot)
	}
	if stats.DroppedByType["action_content_update"] != 2 {
		t.Errorf("DroppedByType = %v", stats.DroppedByType)
	}
	if stats.FlushTriggers["termination"] != 1 {
		t.Errorf("FlushTriggers = %v", stats.FlushTriggers)
	}
	// Absent counters default to zero.
	if stats.SessionsFailed != 0 || stats.SinkWriteFailure != 0 {
		t.Errorf("expected zero for absent counters, got %+v", stats.Snapshot)
	}
}

func TestParseMetricsRecord_MissingFields(t *testing.T) {
	for _, field := range []string{"ts", "session_id", "policy"} {
		t.Run(field, func(t *testing.T) {
			record := validMetricsRecord()
			delete(record, field)
			_, err := ParseMetricsRecord(record)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), field) {
				t.Errorf("error should name %q, got: %v", field, err)
			}
		})
	}
}

func TestParseMetricsRecord_Nil(t *testing.T) {
	if _, err := ParseMetricsRecord(nil); err == nil {
		t.Fatal("expected error for nil record")
	}
}

func TestSummarizePayload(t *testing.T) {
	long := strings.Repeat("a", 100)

	tests := []struct {
		name    string
		et      types.EventType
		payload map[string]any
		want    string
	}{
		{
			name:    "text flattens whitespace",
			et:      types.EventTypeText,
			payload: map[string]any{"text": "Hello\n\n  world"},
			want:    "Hello world",
		},
		{
			name:    "text truncated",
			et:      types.EventTypeText,
			payload: map[string]any{"text": long},
			want:    strings.Repeat("a", summaryWidth-1) + "…",
		},
		{
			name:    "artifact",
			et:      types.EventTypeArtifactOpen,
			payload: map[string]any{"artifact_id": "proj", "title": "Demo App"},
			want:    `proj "Demo App"`,
		},
		{
			name: "file action",
			et:   types.EventTypeActionClose,
			payload: map[string]any{
				"artifact_id": "proj",
				"action":      map[string]any{"type": "file", "file_path": "index.js", "content": "let x;"},
			},
			want: "file index.js (6 bytes)",
		},
		{
			name:    "action without content",
			et:      types.EventTypeActionOpen,
			payload: map[string]any{"action": map[string]any{"type": "shell"}},
			want:    "shell",
		},
		{
			name:    "single image",
			et:      types.EventTypeImageGenerationRequest,
			payload: map[string]any{"images": []any{map[string]any{"local_path": "a.png"}}},
			want:    "1 image",
		},
		{
			name:    "image count",
			et:      types.EventTypeImageGenerationRequest,
			payload: map[string]any{"images": []any{map[string]any{}, map[string]any{}}},
			want:    "2 images",
		},
		{
			name:    "parse error",
			et:      types.EventTypeParseError,
			payload: map[string]any{"kind": "tag_overflow", "message": "tag buffer exceeded"},
			want:    "tag_overflow: tag buffer exceeded",
		},
		{
			name:    "unknown type",
			et:      types.EventType("mystery"),
			payload: map[string]any{"text": "ignored"},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SummarizePayload(tt.et, tt.payload); got != tt.want {
				t.Errorf("SummarizePayload() = %q, want %q", got, tt.want)
			}
		})
	}
}
