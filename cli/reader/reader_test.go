package reader

import (
	"errors"
	"fmt"
	"testing"
	"time"

	lodeapi "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/boltstream/lode"
	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/types"
)

// newStore returns a writer client and a reader sharing one in-memory store.
func newStore(t *testing.T) (*lode.LodeClient, *LodeReader) {
	t.Helper()
	store := lodeapi.NewMemory()
	factory := func() (lodeapi.Store, error) { return store, nil }

	client, err := lode.NewClientWithFactory(lode.Config{
		Dataset:   "boltstream",
		Source:    "claude-chat",
		Day:       "2026-10-18",
		SessionID: "sess-001",
	}, factory)
	if err != nil {
		t.Fatalf("NewClientWithFactory failed: %v", err)
	}

	ds, err := lode.NewReadDataset("boltstream", factory)
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	return client, NewLodeReader(ds)
}

func envelope(messageID string, seq int64, et types.EventType, payload map[string]any) *types.EventEnvelope {
	return &types.EventEnvelope{
		ContractVersion: types.ContractVersion,
		EventID:         fmt.Sprintf("%s-%d", messageID, seq),
		SessionID:       "sess-001",
		MessageID:       messageID,
		Seq:             seq,
		Type:            et,
		Ts:              fmt.Sprintf("2026-10-18T12:00:%02dZ", seq),
		Payload:         payload,
	}
}

func TestLodeReader_InspectMessage(t *testing.T) {
	client, r := newStore(t)

	events := []*types.EventEnvelope{
		envelope("m-1", 1, types.EventTypeText, map[string]any{"text": "Building it"}),
		envelope("m-1", 2, types.EventTypeArtifactOpen, map[string]any{"artifact_id": "proj", "title": "Demo"}),
		envelope("m-1", 3, types.EventTypeText, map[string]any{"text": "done"}),
		envelope("m-2", 1, types.EventTypeText, map[string]any{"text": "other message"}),
	}
	if err := client.WriteEvents(t.Context(), events); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}

	resp, err := r.InspectMessage(t.Context(), "m-1")
	if err != nil {
		t.Fatalf("InspectMessage failed: %v", err)
	}

	if resp.MessageID != "m-1" || resp.SessionID != "sess-001" {
		t.Errorf("unexpected ids: %+v", resp)
	}
	if resp.EventCount != 3 {
		t.Fatalf("EventCount = %d, want 3", resp.EventCount)
	}
	if resp.FirstTs != "2026-10-18T12:00:01Z" || resp.LastTs != "2026-10-18T12:00:03Z" {
		t.Errorf("FirstTs/LastTs = %q/%q", resp.FirstTs, resp.LastTs)
	}
	if resp.CountsByType["text"] != 2 || resp.CountsByType["artifact_open"] != 1 {
		t.Errorf("CountsByType = %v", resp.CountsByType)
	}
	for i, row := range resp.Events {
		if row.Seq != int64(i+1) {
			t.Errorf("Events[%d].Seq = %d, want %d", i, row.Seq, i+1)
		}
	}
	if resp.Events[1].Summary != `proj "Demo"` {
		t.Errorf("Events[1].Summary = %q", resp.Events[1].Summary)
	}
}

func TestLodeReader_InspectMessage_NotFound(t *testing.T) {
	client, r := newStore(t)
	seed := []*types.EventEnvelope{envelope("m-1", 1, types.EventTypeText, map[string]any{"text": "hi"})}
	if err := client.WriteEvents(t.Context(), seed); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}

	_, err := r.InspectMessage(t.Context(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLodeReader_StatsSession(t *testing.T) {
	client, r := newStore(t)

	snap := metrics.Snapshot{
		SessionsStarted:   1,
		SessionsCompleted: 1,
		ChunksReceived:    12,
		EventsReceived:    9,
		EventsPersisted:   9,
		FlushTriggers:     map[string]int64{"termination": 1},
		Policy:            "strict",
		StorageBackend:    "fs",
		SessionID:         "sess-001",
	}
	if err := client.WriteMetrics(t.Context(), snap, time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	stats, err := r.StatsSession(t.Context(), "sess-001")
	if err != nil {
		t.Fatalf("StatsSession failed: %v", err)
	}
	if stats.Ts != "2026-10-18T12:00:00Z" {
		t.Errorf("Ts = %q", stats.Ts)
	}
	if stats.Policy != "strict" || stats.ChunksReceived != 12 || stats.EventsPersisted != 9 {
		t.Errorf("unexpected stats: %+v", stats.Snapshot)
	}
	if stats.FlushTriggers["termination"] != 1 {
		t.Errorf("FlushTriggers = %v", stats.FlushTriggers)
	}
}

func TestLodeReader_StatsSession_NotFound(t *testing.T) {
	client, r := newStore(t)
	seed := []*types.EventEnvelope{envelope("m-1", 1, types.EventTypeText, map[string]any{"text": "hi"})}
	if err := client.WriteEvents(t.Context(), seed); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}

	_, err := r.StatsSession(t.Context(), "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
