package policy_test

import (
	"errors"
	"testing"

	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

func TestStrictPolicy_IngestEvent_ImmediateWrite(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	if err := pol.IngestEvent(t.Context(), newEvent(1, types.EventTypeText)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Verify immediate write (batch of 1)
	sinkStats := sink.Stats()
	if sinkStats.EventsWritten != 1 {
		t.Errorf("expected 1 event written immediately, got %d", sinkStats.EventsWritten)
	}
	if sinkStats.EventBatches != 1 {
		t.Errorf("expected 1 batch, got %d", sinkStats.EventBatches)
	}

	stats := pol.Stats()
	if stats.TotalEvents != 1 {
		t.Errorf("expected TotalEvents=1, got %d", stats.TotalEvents)
	}
	if stats.EventsPersisted != 1 {
		t.Errorf("expected EventsPersisted=1, got %d", stats.EventsPersisted)
	}
	if stats.EventsDropped != 0 {
		t.Errorf("expected EventsDropped=0, got %d", stats.EventsDropped)
	}
}

func TestStrictPolicy_NoDrops(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	// Strict policy persists interim updates too
	eventTypes := types.AllEventTypes()
	for i, et := range eventTypes {
		if err := pol.IngestEvent(t.Context(), newEvent(int64(i+1), et)); err != nil {
			t.Fatalf("unexpected error for %s: %v", et, err)
		}
	}

	stats := pol.Stats()
	if stats.EventsDropped != 0 {
		t.Errorf("strict policy should never drop, got %d drops", stats.EventsDropped)
	}
	if stats.EventsPersisted != int64(len(eventTypes)) {
		t.Errorf("expected %d persisted, got %d", len(eventTypes), stats.EventsPersisted)
	}

	// Order preserved
	for i, e := range sink.Events() {
		if e.Seq != int64(i+1) {
			t.Errorf("event %d has seq %d", i, e.Seq)
		}
	}
}

func TestStrictPolicy_SinkError(t *testing.T) {
	sink := policy.NewStubSink()
	sinkErr := errors.New("disk full")
	sink.SetError(sinkErr)
	pol := policy.NewStrictPolicy(sink)

	err := pol.IngestEvent(t.Context(), newEvent(1, types.EventTypeActionClose))
	if !errors.Is(err, sinkErr) {
		t.Fatalf("expected sink error, got %v", err)
	}

	stats := pol.Stats()
	if stats.Errors != 1 {
		t.Errorf("expected Errors=1, got %d", stats.Errors)
	}
	if stats.EventsPersisted != 0 {
		t.Errorf("expected EventsPersisted=0, got %d", stats.EventsPersisted)
	}
}

func TestStrictPolicy_FlushAndClose(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := pol.Stats().FlushCount; got != 1 {
		t.Errorf("expected FlushCount=1, got %d", got)
	}
	if err := pol.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !sink.Stats().Closed {
		t.Error("expected sink to be closed")
	}
}

func TestStrictPolicy_IngestAfterClose(t *testing.T) {
	sink := policy.NewStubSink()
	pol := policy.NewStrictPolicy(sink)

	if err := pol.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := pol.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}

	err := pol.IngestEvent(t.Context(), newEvent(1, types.EventTypeText))
	if !errors.Is(err, policy.ErrPolicyClosed) {
		t.Fatalf("expected ErrPolicyClosed, got %v", err)
	}
	if got := pol.Stats().TotalEvents; got != 0 {
		t.Errorf("rejected event should not be counted, got %d", got)
	}
	if len(sink.Events()) != 0 {
		t.Error("sink should not receive events after close")
	}
}
