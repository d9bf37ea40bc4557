package ipc

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/pithecene-io/boltstream/types"
)

func TestFrameEncoder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)

	if err := enc.WriteChunk("m1", 1, "<boltArt", false); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	if err := enc.WriteChunk("m1", 2, "ifact>", true); err != nil {
		t.Fatalf("WriteChunk failed: %v", err)
	}
	if err := enc.WriteReset(""); err != nil {
		t.Fatalf("WriteReset failed: %v", err)
	}

	dec := NewFrameDecoder(&buf)
	var frames []any
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		f, err := DecodeFrame(payload)
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v", err)
		}
		frames = append(frames, f)
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	second, ok := frames[1].(*types.ChunkFrame)
	if !ok {
		t.Fatalf("frame 1 is %T", frames[1])
	}
	if second.Type != types.ChunkFrameType || second.Seq != 2 || !second.Final || second.Data != "ifact>" {
		t.Errorf("unexpected chunk %+v", *second)
	}
	reset, ok := frames[2].(*types.ResetFrame)
	if !ok {
		t.Fatalf("frame 2 is %T", frames[2])
	}
	if reset.MessageID != "" {
		t.Errorf("got reset id %q, want empty", reset.MessageID)
	}
}

func TestFrameEncoder_WriteEvent(t *testing.T) {
	var buf bytes.Buffer
	envelope := &types.EventEnvelope{
		ContractVersion: types.ContractVersion,
		EventID:         "evt-1",
		SessionID:       "sess-1",
		MessageID:       "m1",
		Seq:             3,
		Type:            types.EventTypeActionClose,
		Ts:              "2026-01-15T10:00:00Z",
		Payload:         map[string]any{"content": "npm install"},
	}

	if err := NewFrameEncoder(&buf).WriteEvent(envelope); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	payload, err := NewFrameDecoder(&buf).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	got, err := DecodeEventEnvelope(payload)
	if err != nil {
		t.Fatalf("DecodeEventEnvelope failed: %v", err)
	}
	if got.EventID != "evt-1" || got.Type != types.EventTypeActionClose || got.Seq != 3 {
		t.Errorf("unexpected envelope %+v", got)
	}
	if got.Payload["content"] != "npm install" {
		t.Errorf("got payload %v", got.Payload)
	}
}

func TestFrameEncoder_ConcurrentWritesStayFramed(t *testing.T) {
	var buf bytes.Buffer
	enc := NewFrameEncoder(&buf)

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				_ = enc.WriteChunk("m", int64(w*100+i), "data", false)
			}
		}()
	}
	wg.Wait()

	dec := NewFrameDecoder(&buf)
	count := 0
	for {
		payload, err := dec.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed after %d frames: %v", count, err)
		}
		if _, err := DecodeChunk(payload); err != nil {
			t.Fatalf("DecodeChunk failed: %v", err)
		}
		count++
	}
	if count != 200 {
		t.Errorf("got %d frames, want 200", count)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestFrameEncoder_WriteError(t *testing.T) {
	err := NewFrameEncoder(failingWriter{}).WriteReset("m1")
	if err == nil {
		t.Fatal("expected write error")
	}
}
