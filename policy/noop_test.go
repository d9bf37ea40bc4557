package policy_test

import (
	"testing"

	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

func TestNoopPolicy_Stats(t *testing.T) {
	pol := policy.NewNoopPolicy()

	events := []types.EventType{
		types.EventTypeText,
		types.EventTypeActionOpen,
		types.EventTypeActionContentUpdate,
		types.EventTypeActionContentUpdate,
		types.EventTypeActionClose,
	}
	for i, et := range events {
		if err := pol.IngestEvent(t.Context(), newEvent(int64(i+1), et)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	stats := pol.Stats()
	if stats.TotalEvents != 5 {
		t.Errorf("expected TotalEvents=5, got %d", stats.TotalEvents)
	}
	if stats.EventsPersisted != 3 {
		t.Errorf("expected EventsPersisted=3, got %d", stats.EventsPersisted)
	}
	if stats.EventsDropped != 2 {
		t.Errorf("expected EventsDropped=2, got %d", stats.EventsDropped)
	}
	if got := stats.DroppedByType[types.EventTypeActionContentUpdate]; got != 2 {
		t.Errorf("expected 2 content update drops, got %d", got)
	}
	if stats.FlushCount != 1 {
		t.Errorf("expected FlushCount=1, got %d", stats.FlushCount)
	}
	if err := pol.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestStats_SnapshotIsCopy(t *testing.T) {
	pol := policy.NewNoopPolicy()
	_ = pol.IngestEvent(t.Context(), newEvent(1, types.EventTypeActionContentUpdate))

	snap := pol.Stats()
	snap.DroppedByType[types.EventTypeActionContentUpdate] = 99

	if got := pol.Stats().DroppedByType[types.EventTypeActionContentUpdate]; got != 1 {
		t.Errorf("mutating a snapshot leaked into policy stats: got %d", got)
	}
}

func TestIsDroppable(t *testing.T) {
	for _, et := range types.AllEventTypes() {
		want := et == types.EventTypeActionContentUpdate
		if got := policy.IsDroppable(et); got != want {
			t.Errorf("IsDroppable(%s) = %v, want %v", et, got, want)
		}
	}

	set := policy.DroppableTypes()
	set[types.EventTypeText] = true
	if policy.IsDroppable(types.EventTypeText) {
		t.Error("DroppableTypes must return a copy")
	}
}

func TestEstimateEventSize(t *testing.T) {
	small := newEvent(1, types.EventTypeText)
	large := newEvent(2, types.EventTypeActionClose)
	large.Payload = map[string]any{
		"action": map[string]any{"content": string(make([]byte, 4096))},
	}

	if policy.EstimateEventSize(large) <= policy.EstimateEventSize(small) {
		t.Error("expected larger payload to have larger estimate")
	}
	if got := policy.EstimateEventSize(&types.EventEnvelope{}); got != 200 {
		t.Errorf("expected base estimate 200, got %d", got)
	}
}

func TestEstimateEventSize_Nested(t *testing.T) {
	ev := &types.EventEnvelope{Payload: map[string]any{
		"images": []any{
			map[string]any{"data": "abcd"},
			map[string]any{"data": "efgh"},
		},
		"count": 2,
	}}
	// overhead + "images" + 2*("data"+4) + "count" + scalar
	want := int64(200 + 6 + 2*(4+4) + 5 + 16)
	if got := policy.EstimateEventSize(ev); got != want {
		t.Errorf("EstimateEventSize = %d, want %d", got, want)
	}
}
