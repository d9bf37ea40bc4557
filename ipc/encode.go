package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/boltstream/types"
)

// FrameEncoder writes length-prefixed msgpack frames.
// Safe for concurrent use; each frame is written atomically.
type FrameEncoder struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// EncodeFrame marshals v and returns the framed bytes.
func EncodeFrame(v any) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, tooLarge(len(payload))
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// WriteFrame marshals v and writes it as a single frame.
func (e *FrameEncoder) WriteFrame(v any) error {
	frame, err := EncodeFrame(v)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.writer.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// WriteChunk writes a chunk frame. Type is set automatically.
func (e *FrameEncoder) WriteChunk(messageID string, seq int64, data string, final bool) error {
	return e.WriteFrame(&types.ChunkFrame{
		Type:      types.ChunkFrameType,
		MessageID: messageID,
		Seq:       seq,
		Data:      data,
		Final:     final,
	})
}

// WriteReset writes a reset frame. An empty messageID resets every stream.
func (e *FrameEncoder) WriteReset(messageID string) error {
	return e.WriteFrame(&types.ResetFrame{
		Type:      types.ResetFrameType,
		MessageID: messageID,
	})
}

// WriteEvent writes an event envelope frame.
func (e *FrameEncoder) WriteEvent(envelope *types.EventEnvelope) error {
	return e.WriteFrame(envelope)
}
