package policy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

// helper to create streaming policy or fail test
func mustNewStreamingPolicy(t *testing.T, sink policy.Sink, config policy.StreamingConfig) *policy.StreamingPolicy {
	t.Helper()
	pol, err := policy.NewStreamingPolicy(sink, config)
	if err != nil {
		t.Fatalf("NewStreamingPolicy failed: %v", err)
	}
	t.Cleanup(func() { _ = pol.Close() })
	return pol
}

func TestStreamingPolicy_InvalidConfig(t *testing.T) {
	_, err := policy.NewStreamingPolicy(policy.NewStubSink(), policy.StreamingConfig{})
	if !errors.Is(err, policy.ErrStreamingInvalidConfig) {
		t.Errorf("expected ErrStreamingInvalidConfig, got %v", err)
	}
}

func TestStreamingPolicy_CountTrigger(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewStreamingPolicy(t, sink, policy.StreamingConfig{FlushCount: 3})

	ingestAll(t, pol, newEvent(1, types.EventTypeText), newEvent(2, types.EventTypeText))
	if got := sink.Stats().EventsWritten; got != 0 {
		t.Fatalf("expected no writes below count, got %d", got)
	}

	ingestAll(t, pol, newEvent(3, types.EventTypeActionContentUpdate))
	if got := sink.Stats().EventsWritten; got != 3 {
		t.Errorf("expected 3 written at count trigger, got %d", got)
	}

	triggers := pol.FlushTriggerStats()
	if triggers[policy.FlushTriggerCount] != 1 {
		t.Errorf("expected 1 count flush, got %d", triggers[policy.FlushTriggerCount])
	}
	if pol.Stats().EventsDropped != 0 {
		t.Error("streaming policy must not drop")
	}
}

func TestStreamingPolicy_IntervalTrigger(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewStreamingPolicy(t, sink, policy.StreamingConfig{FlushInterval: 10 * time.Millisecond})

	ingestAll(t, pol, newEvent(1, types.EventTypeText))

	deadline := time.Now().Add(2 * time.Second)
	for sink.Stats().EventsWritten == 0 {
		if time.Now().After(deadline) {
			t.Fatal("interval flush did not happen")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := pol.FlushTriggerStats()[policy.FlushTriggerInterval]; got < 1 {
		t.Errorf("expected interval flush, got %d", got)
	}
}

func TestStreamingPolicy_FailureRestoresOrder(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewStreamingPolicy(t, sink, policy.StreamingConfig{FlushCount: 100})

	ingestAll(t, pol, newEvent(1, types.EventTypeText), newEvent(2, types.EventTypeText))

	sink.SetError(errors.New("boom"))
	if err := pol.Flush(t.Context()); err == nil {
		t.Fatal("expected flush error")
	}
	ingestAll(t, pol, newEvent(3, types.EventTypeText))

	sink.SetError(nil)
	if err := pol.Flush(t.Context()); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	got := seqs(sink.Events())
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("expected seqs [1 2 3], got %v", got)
	}
	if errs := pol.Stats().Errors; errs != 1 {
		t.Errorf("expected Errors=1, got %d", errs)
	}
}

func TestStreamingPolicy_CloseFlushesAndStops(t *testing.T) {
	sink := policy.NewStubSink()
	pol, err := policy.NewStreamingPolicy(sink, policy.StreamingConfig{
		FlushCount:    100,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewStreamingPolicy failed: %v", err)
	}

	ingestAll(t, pol, newEvent(1, types.EventTypeArtifactOpen))
	if err := pol.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close must not panic on the closed channel.
	_ = pol.Close()

	stats := sink.Stats()
	if stats.EventsWritten != 1 || !stats.Closed {
		t.Errorf("expected flush and close, got %+v", stats)
	}
	if got := pol.FlushTriggerStats()[policy.FlushTriggerTermination]; got < 1 {
		t.Errorf("expected termination flush, got %d", got)
	}
}

func TestStreamingPolicy_ArtifactCloseTrigger(t *testing.T) {
	sink := policy.NewStubSink()
	pol := mustNewStreamingPolicy(t, sink, policy.StreamingConfig{FlushOnArtifactClose: true})

	ingestAll(t, pol,
		newEvent(1, types.EventTypeArtifactOpen),
		newEvent(2, types.EventTypeActionOpen),
		newEvent(3, types.EventTypeActionClose),
	)
	if got := sink.Stats().EventsWritten; got != 0 {
		t.Fatalf("expected nothing written before artifact close, got %d", got)
	}

	ingestAll(t, pol, newEvent(4, types.EventTypeArtifactClose), newEvent(5, types.EventTypeText))

	if got := sink.BatchSizes(); len(got) != 1 || got[0] != 4 {
		t.Errorf("expected one batch of 4, got %v", got)
	}
	triggers := pol.FlushTriggerStats()
	if triggers[policy.FlushTriggerArtifact] != 1 || triggers[policy.FlushTriggerCount] != 0 {
		t.Errorf("unexpected triggers %v", triggers)
	}
	if _, ok := triggers[policy.FlushTriggerInterval]; !ok {
		t.Error("trigger stats should list every trigger")
	}
}
