package lode

import (
	"testing"

	"github.com/pithecene-io/boltstream/types"
)

func TestToEventRecordMap_PartitionKeys(t *testing.T) {
	e := newEnvelope("m-1", 4, types.EventTypeActionContentUpdate)
	record := toEventRecordMap(e, testConfig())

	for _, key := range hiveLayout {
		if _, ok := record[key]; !ok {
			t.Errorf("record missing partition key %q", key)
		}
	}
	if record["event_type"] != "action_content_update" {
		t.Errorf("event_type = %v, want action_content_update", record["event_type"])
	}
	if record["record_kind"] != RecordKindEvent {
		t.Errorf("record_kind = %v, want %q", record["record_kind"], RecordKindEvent)
	}
}

func TestFromEventRecordMap_DecodedNumbers(t *testing.T) {
	// JSONL decoding yields float64 for numbers
	record := map[string]any{
		"record_kind": RecordKindEvent,
		"event_id":    "e1",
		"message_id":  "m-1",
		"seq":         float64(7),
		"type":        "text",
		"payload":     map[string]any{"text": "hi"},
	}
	e, ok := fromEventRecordMap(record)
	if !ok {
		t.Fatal("expected event record")
	}
	if e.Seq != 7 || e.Type != types.EventTypeText || e.Payload["text"] != "hi" {
		t.Errorf("unexpected envelope %+v", e)
	}

	if _, ok := fromEventRecordMap(map[string]any{"record_kind": RecordKindMetrics}); ok {
		t.Error("metrics record must not decode as an event")
	}
}
