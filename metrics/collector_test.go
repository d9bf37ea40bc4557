package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("strict", "fs", "sess-001", "gpt")

	c.IncSessionStarted()
	c.IncSessionCompleted()
	c.IncSessionFailed()
	c.IncSessionFailed()
	c.AddChunk(10)
	c.AddChunk(32)
	c.IncFrameDecodeErrors()
	c.IncStreamCompleted()
	c.IncStreamReset()
	c.IncStreamReset()
	c.IncAdapterPublishSuccess()
	c.IncAdapterPublishFailure()
	c.IncSinkWriteSuccess()
	c.IncSinkWriteSuccess()
	c.IncSinkWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name      string
		got, want int64
	}{
		{"SessionsStarted", s.SessionsStarted, 1},
		{"SessionsCompleted", s.SessionsCompleted, 1},
		{"SessionsFailed", s.SessionsFailed, 2},
		{"ChunksReceived", s.ChunksReceived, 2},
		{"BytesReceived", s.BytesReceived, 42},
		{"FrameDecodeErrors", s.FrameDecodeErrors, 1},
		{"StreamsCompleted", s.StreamsCompleted, 1},
		{"StreamsReset", s.StreamsReset, 2},
		{"AdapterPublishSuccess", s.AdapterPublishSuccess, 1},
		{"AdapterPublishFailure", s.AdapterPublishFailure, 1},
		{"SinkWriteSuccess", s.SinkWriteSuccess, 2},
		{"SinkWriteFailure", s.SinkWriteFailure, 1},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %d, want %d", ck.name, ck.got, ck.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("buffered", "s3", "sess-42", "claude")
	s := c.Snapshot()

	if s.Policy != "buffered" {
		t.Errorf("Policy = %q, want %q", s.Policy, "buffered")
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
	if s.SessionID != "sess-42" {
		t.Errorf("SessionID = %q, want %q", s.SessionID, "sess-42")
	}
	if s.Source != "claude" {
		t.Errorf("Source = %q, want %q", s.Source, "claude")
	}
}

func TestCollector_AbsorbParserStats(t *testing.T) {
	c := NewCollector("strict", "fs", "sess-001", "")
	c.AbsorbParserStats(ParserCounters{
		TagsRecognized: 7,
		TagsLiteral:    2,
		ContentUpdates: 3,
		ImageBlocks:    1,
		ImageFailures:  1,
		TagOverflows:   4,
		ImageOverflows: 5,
	})

	s := c.Snapshot()
	if s.TagsRecognized != 7 || s.TagsLiteral != 2 || s.ContentUpdates != 3 {
		t.Errorf("unexpected tag counters: %+v", s)
	}
	if s.ImageBlocks != 1 || s.ImageFailures != 1 {
		t.Errorf("unexpected image counters: %+v", s)
	}
	if s.TagOverflows != 4 || s.ImageOverflows != 5 {
		t.Errorf("unexpected overflow counters: %+v", s)
	}
}

func TestCollector_AbsorbPolicyStats(t *testing.T) {
	c := NewCollector("buffered", "fs", "sess-001", "")

	c.AbsorbPolicyStats(100, 92, 8, map[string]int64{"action_content_update": 8}, nil)

	s := c.Snapshot()
	if s.EventsReceived != 100 {
		t.Errorf("EventsReceived = %d, want 100", s.EventsReceived)
	}
	if s.EventsPersisted != 92 {
		t.Errorf("EventsPersisted = %d, want 92", s.EventsPersisted)
	}
	if s.EventsDropped != 8 {
		t.Errorf("EventsDropped = %d, want 8", s.EventsDropped)
	}
	if s.DroppedByType["action_content_update"] != 8 {
		t.Errorf("DroppedByType[action_content_update] = %d, want 8", s.DroppedByType["action_content_update"])
	}
	if s.FlushTriggers != nil {
		t.Errorf("FlushTriggers should be nil when nil passed, got %v", s.FlushTriggers)
	}
}

func TestCollector_AbsorbPolicyStats_FlushTriggers(t *testing.T) {
	c := NewCollector("streaming", "fs", "sess-001", "")

	triggers := map[string]int64{"count": 3, "interval": 7, "termination": 1}
	c.AbsorbPolicyStats(100, 100, 0, nil, triggers)

	s := c.Snapshot()
	if s.FlushTriggers["count"] != 3 || s.FlushTriggers["interval"] != 7 || s.FlushTriggers["termination"] != 1 {
		t.Errorf("unexpected FlushTriggers %v", s.FlushTriggers)
	}

	// Mutate original; collector should be isolated
	triggers["count"] = 999
	if got := c.Snapshot().FlushTriggers["count"]; got != 3 {
		t.Errorf("FlushTriggers[count] = %d, want 3 (should be isolated)", got)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("strict", "fs", "sess-001", "")
	original := map[string]int64{"action_content_update": 3}
	c.AbsorbPolicyStats(10, 7, 3, original, nil)

	original["action_content_update"] = 999

	s := c.Snapshot()
	s.DroppedByType["injected"] = 1

	s2 := c.Snapshot()
	if s2.DroppedByType["action_content_update"] != 3 {
		t.Errorf("DroppedByType = %v, want isolated copy", s2.DroppedByType)
	}
	if _, exists := s2.DroppedByType["injected"]; exists {
		t.Error("snapshot mutation leaked into collector")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("strict", "fs", "sess-001", "")
	c.IncSessionStarted()
	c.IncSinkWriteSuccess()

	s1 := c.Snapshot()

	c.IncSessionCompleted()
	c.IncSinkWriteSuccess()

	if s1.SessionsCompleted != 0 || s1.SinkWriteSuccess != 1 {
		t.Errorf("snapshot should be frozen, got %+v", s1)
	}
	s2 := c.Snapshot()
	if s2.SessionsCompleted != 1 || s2.SinkWriteSuccess != 2 {
		t.Errorf("new snapshot should reflect mutations, got %+v", s2)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncSessionStarted()
	c.IncSessionCompleted()
	c.IncSessionFailed()
	c.AddChunk(5)
	c.IncFrameDecodeErrors()
	c.IncStreamCompleted()
	c.IncStreamReset()
	c.IncAdapterPublishSuccess()
	c.IncAdapterPublishFailure()
	c.IncSinkWriteSuccess()
	c.IncSinkWriteFailure()
	c.AbsorbParserStats(ParserCounters{TagsRecognized: 1})
	c.AbsorbPolicyStats(10, 8, 2, map[string]int64{"x": 2}, nil)

	s := c.Snapshot()
	if s.SessionsStarted != 0 {
		t.Errorf("nil collector snapshot SessionsStarted = %d, want 0", s.SessionsStarted)
	}
	if s.DroppedByType != nil {
		t.Errorf("nil collector snapshot DroppedByType should be nil, got %v", s.DroppedByType)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("strict", "fs", "sess-001", "")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.AddChunk(2)
				c.IncSinkWriteSuccess()
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)
	if s.ChunksReceived != want {
		t.Errorf("ChunksReceived = %d, want %d", s.ChunksReceived, want)
	}
	if s.BytesReceived != 2*want {
		t.Errorf("BytesReceived = %d, want %d", s.BytesReceived, 2*want)
	}
	if s.SinkWriteSuccess != want {
		t.Errorf("SinkWriteSuccess = %d, want %d", s.SinkWriteSuccess, want)
	}
}
