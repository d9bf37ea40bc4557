package lode

import (
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

func TestDeriveDay(t *testing.T) {
	// 23:30 at UTC-5 is already the next day in UTC
	loc := time.FixedZone("EST", -5*60*60)
	start := time.Date(2026, 10, 17, 23, 30, 0, 0, loc)
	if got := DeriveDay(start); got != "2026-10-18" {
		t.Errorf("DeriveDay = %q, want %q", got, "2026-10-18")
	}
}

func TestSink_DelegatesToClient(t *testing.T) {
	client := NewStubClient()
	sink := NewSink(client)

	events := []*types.EventEnvelope{newEnvelope("m-1", 1, types.EventTypeText)}
	if err := sink.WriteEvents(t.Context(), events); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	batches := client.Batches()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Errorf("expected 1 batch of 1 event, got %v", batches)
	}
	if !client.Closed() {
		t.Error("expected client to be closed")
	}
}

func TestInstrumentedSink_RecordsOutcomes(t *testing.T) {
	inner := policy.NewStubSink()
	collector := metrics.NewCollector("strict", "fs", "sess-001", "")
	sink := NewInstrumentedSink(inner, collector)

	events := []*types.EventEnvelope{newEnvelope("m-1", 1, types.EventTypeText)}
	if err := sink.WriteEvents(t.Context(), events); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}

	sinkErr := errors.New("disk full")
	inner.SetError(sinkErr)
	if err := sink.WriteEvents(t.Context(), events); !errors.Is(err, sinkErr) {
		t.Fatalf("expected inner error, got %v", err)
	}

	s := collector.Snapshot()
	if s.SinkWriteSuccess != 1 {
		t.Errorf("SinkWriteSuccess = %d, want 1", s.SinkWriteSuccess)
	}
	if s.SinkWriteFailure != 1 {
		t.Errorf("SinkWriteFailure = %d, want 1", s.SinkWriteFailure)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !inner.Stats().Closed {
		t.Error("expected inner sink to be closed")
	}
}

func TestInstrumentedSink_NilCollector(t *testing.T) {
	sink := NewInstrumentedSink(policy.NewStubSink(), nil)
	events := []*types.EventEnvelope{newEnvelope("m-1", 1, types.EventTypeText)}
	if err := sink.WriteEvents(t.Context(), events); err != nil {
		t.Fatalf("WriteEvents failed: %v", err)
	}
}
