package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/boltstream/types"
)

// encodeFrame encodes a payload with length prefix.
func encodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

func mustEncode(t *testing.T, v any) []byte {
	t.Helper()
	frame, err := EncodeFrame(v)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	return frame
}

func TestFrameDecoder_SingleChunk(t *testing.T) {
	chunk := &types.ChunkFrame{
		Type:      types.ChunkFrameType,
		MessageID: "msg-1",
		Seq:       1,
		Data:      `Some text <boltAction type="file"`,
	}

	decoder := NewFrameDecoder(bytes.NewReader(mustEncode(t, chunk)))
	payload, err := decoder.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	decoded, err := DecodeFrame(payload)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	got, ok := decoded.(*types.ChunkFrame)
	if !ok {
		t.Fatalf("expected *types.ChunkFrame, got %T", decoded)
	}
	if *got != *chunk {
		t.Errorf("decoded = %+v, want %+v", *got, *chunk)
	}

	if _, err := decoder.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestFrameDecoder_MixedChunksAndResets(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(mustEncode(t, &types.ChunkFrame{Type: types.ChunkFrameType, MessageID: "a", Seq: 1, Data: "x"}))
	stream.Write(mustEncode(t, &types.ResetFrame{Type: types.ResetFrameType, MessageID: "a"}))
	stream.Write(mustEncode(t, &types.ChunkFrame{Type: types.ChunkFrameType, MessageID: "b", Seq: 1, Data: "y", Final: true}))
	stream.Write(mustEncode(t, &types.ResetFrame{Type: types.ResetFrameType}))

	decoder := NewFrameDecoder(&stream)
	var kinds []string
	for {
		payload, err := decoder.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		decoded, err := DecodeFrame(payload)
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v", err)
		}
		switch f := decoded.(type) {
		case *types.ChunkFrame:
			kinds = append(kinds, "chunk:"+f.MessageID)
		case *types.ResetFrame:
			kinds = append(kinds, "reset:"+f.MessageID)
		default:
			t.Fatalf("unexpected frame %T", decoded)
		}
	}

	want := "chunk:a,reset:a,chunk:b,reset:"
	if got := strings.Join(kinds, ","); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFrameDecoder_OneByteReader(t *testing.T) {
	chunk := &types.ChunkFrame{Type: types.ChunkFrameType, MessageID: "m", Seq: 7, Data: strings.Repeat("z", 1000)}
	reader := iotest.OneByteReader(bytes.NewReader(mustEncode(t, chunk)))

	payload, err := NewFrameDecoder(reader).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	got, err := DecodeChunk(payload)
	if err != nil {
		t.Fatalf("DecodeChunk failed: %v", err)
	}
	if got.Seq != 7 || len(got.Data) != 1000 {
		t.Errorf("decoded seq=%d len=%d, want 7 and 1000", got.Seq, len(got.Data))
	}
}

// TestFrameDecoder_PartialFrame validates fatal error for truncated frames.
func TestFrameDecoder_PartialFrame(t *testing.T) {
	frame := mustEncode(t, &types.ChunkFrame{Type: types.ChunkFrameType, MessageID: "m", Seq: 1, Data: "hello world"})

	// Keep only length prefix + half payload
	truncated := frame[:LengthPrefixSize+len(frame[LengthPrefixSize:])/2]

	decoder := NewFrameDecoder(bytes.NewReader(truncated))
	_, err := decoder.ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated frame")
	}
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorPartial {
		t.Errorf("Kind = %v, want FrameErrorPartial", frameErr.Kind)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected wrapped io.ErrUnexpectedEOF, got %v", err)
	}
}

// TestFrameDecoder_OversizedFrame validates fatal error for frames exceeding max size.
func TestFrameDecoder_OversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(MaxPayloadSize+1))

	_, err := NewFrameDecoder(&buf).ReadFrame()
	if err == nil {
		t.Fatal("expected error for oversized frame")
	}
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}

	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorTooLarge {
		t.Errorf("Kind = %v, want FrameErrorTooLarge", frameErr.Kind)
	}
}

func TestFrameDecoder_EmptyStream(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader(nil)).ReadFrame()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got: %v", err)
	}
}

// TestFrameDecoder_TruncatedLengthPrefix validates fatal error when the length prefix is incomplete.
func TestFrameDecoder_TruncatedLengthPrefix(t *testing.T) {
	_, err := NewFrameDecoder(bytes.NewReader([]byte{0x00, 0x00})).ReadFrame()
	if err == nil {
		t.Fatal("expected error for truncated length prefix")
	}
	if !IsFatalFrameError(err) {
		t.Errorf("expected fatal frame error, got: %v", err)
	}
}

// TestDecodeFrame_MalformedMsgpack validates that decode errors are not fatal:
// the frame boundary was read correctly, only its content is bad.
func TestDecodeFrame_MalformedMsgpack(t *testing.T) {
	frame := encodeFrame([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	payload, err := NewFrameDecoder(bytes.NewReader(frame)).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	_, err = DecodeFrame(payload)
	if err == nil {
		t.Fatal("expected decode error for malformed msgpack")
	}
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T", err)
	}
	if frameErr.Kind != FrameErrorDecode {
		t.Errorf("Kind = %v, want FrameErrorDecode", frameErr.Kind)
	}
	if IsFatalFrameError(err) {
		t.Error("decode errors should not be fatal")
	}
}

func TestDecodeFrame_UnknownType(t *testing.T) {
	payload, err := msgpack.Marshal(map[string]any{"type": "artifact_chunk"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	_, err = DecodeFrame(payload)
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected *FrameError, got %T (%v)", err, err)
	}
	if frameErr.Kind != FrameErrorDecode {
		t.Errorf("Kind = %v, want FrameErrorDecode", frameErr.Kind)
	}
	if !strings.Contains(err.Error(), "artifact_chunk") {
		t.Errorf("error %q should name the frame type", err)
	}
}

func TestFrameError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *FrameError
		contains string
	}{
		{
			name:     "partial without underlying error",
			err:      &FrameError{Kind: FrameErrorPartial, Msg: "truncated"},
			contains: "truncated",
		},
		{
			name:     "partial with underlying error",
			err:      &FrameError{Kind: FrameErrorPartial, Msg: "read failed", Err: io.ErrUnexpectedEOF},
			contains: "unexpected EOF",
		},
		{
			name:     "oversized",
			err:      &FrameError{Kind: FrameErrorTooLarge, Msg: "payload too big"},
			contains: "too big",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := tt.err.Error(); !strings.Contains(msg, tt.contains) {
				t.Errorf("error message %q does not contain %q", msg, tt.contains)
			}
		})
	}
}

func TestFrameErrorKind_String(t *testing.T) {
	tests := map[FrameErrorKind]string{
		FrameErrorPartial:  "partial",
		FrameErrorTooLarge: "too_large",
		FrameErrorDecode:   "decode",
		FrameErrorKind(9):  "FrameErrorKind(9)",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestIsFatalFrameError_NonFrameError(t *testing.T) {
	if IsFatalFrameError(errors.New("regular error")) {
		t.Error("regular errors should not be fatal frame errors")
	}
	if IsFatalFrameError(nil) {
		t.Error("nil should not be a fatal frame error")
	}
	if IsFatalFrameError(io.EOF) {
		t.Error("io.EOF should not be a fatal frame error")
	}
}
