// Package ipc implements length-prefixed msgpack framing for chunk input
// and event output streams.
//
// Every frame is a 4-byte big-endian payload length followed by a msgpack
// map. Input frames are discriminated by their "type" field: "chunk"
// carries the next increment of a message, "reset" drops parser state.
package ipc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/boltstream/types"
)

const (
	LengthPrefixSize = 4
	MaxFrameSize     = 16 << 20
	MaxPayloadSize   = MaxFrameSize - LengthPrefixSize
)

// readBufferSize keeps short pipe reads from costing a syscall each.
const readBufferSize = 64 << 10

// FrameErrorKind classifies frame errors. Partial and TooLarge leave the
// stream out of sync and are fatal; Decode spoils one frame only.
type FrameErrorKind int

const (
	FrameErrorPartial FrameErrorKind = iota
	FrameErrorTooLarge
	FrameErrorDecode
)

var frameErrorKindNames = [...]string{
	FrameErrorPartial:  "partial",
	FrameErrorTooLarge: "too_large",
	FrameErrorDecode:   "decode",
}

func (k FrameErrorKind) String() string {
	if k >= 0 && int(k) < len(frameErrorKindNames) {
		return frameErrorKindNames[k]
	}
	return fmt.Sprintf("FrameErrorKind(%d)", int(k))
}

// FrameError is returned for any framing or payload decoding failure.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	msg := "frame " + e.Kind.String() + ": " + e.Msg
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsFatal reports whether the stream can no longer be read.
func (e *FrameError) IsFatal() bool {
	return e.Kind != FrameErrorDecode
}

// IsFatalFrameError reports whether err wraps a fatal *FrameError.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	return errors.As(err, &frameErr) && frameErr.IsFatal()
}

func tooLarge(size int) *FrameError {
	return &FrameError{
		Kind: FrameErrorTooLarge,
		Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", size, MaxPayloadSize),
	}
}

// FrameDecoder splits a byte stream into frame payloads.
type FrameDecoder struct {
	r *bufio.Reader
}

func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{r: bufio.NewReaderSize(r, readBufferSize)}
}

// ReadFrame returns the next raw msgpack payload. io.EOF means the stream
// ended on a frame boundary; a stream ending anywhere else is a fatal
// FrameErrorPartial.
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size > MaxPayloadSize {
		return nil, tooLarge(int(size))
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}
	return payload, nil
}

// DecodeFrame decodes an input payload into *types.ChunkFrame or
// *types.ResetFrame by its "type" field.
func DecodeFrame(payload []byte) (any, error) {
	var probe struct {
		Type string `msgpack:"type"`
	}
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame type", Err: err}
	}

	switch probe.Type {
	case types.ChunkFrameType:
		return DecodeChunk(payload)
	case types.ResetFrameType:
		return DecodeReset(payload)
	}
	return nil, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", probe.Type)}
}

func DecodeChunk(payload []byte) (*types.ChunkFrame, error) {
	return decodeAs[types.ChunkFrame](payload, "chunk frame")
}

func DecodeReset(payload []byte) (*types.ResetFrame, error) {
	return decodeAs[types.ResetFrame](payload, "reset frame")
}

func DecodeEventEnvelope(payload []byte) (*types.EventEnvelope, error) {
	return decodeAs[types.EventEnvelope](payload, "event envelope")
}

func decodeAs[T any](payload []byte, what string) (*T, error) {
	v := new(T)
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode " + what, Err: err}
	}
	return v, nil
}
