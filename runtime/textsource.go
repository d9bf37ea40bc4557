package runtime

import (
	"bytes"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/pithecene-io/boltstream/ipc"
)

// DefaultChunkSize is the chunk size used when a TextSource is given none.
const DefaultChunkSize = 64

// TextSource feeds a complete text to the engine as one message split into
// fixed-size chunks. Chunk boundaries never split a UTF-8 sequence.
type TextSource struct {
	MessageID string
	Text      string
	ChunkSize int
}

// Chunks splits the text. Every chunk holds at most ChunkSize bytes unless
// a single rune is wider than ChunkSize. Empty text yields one empty chunk
// so the message still completes.
func (s *TextSource) Chunks() []string {
	size := s.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	text := s.Text
	if text == "" {
		return []string{""}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= size {
			chunks = append(chunks, text)
			break
		}
		cut := size
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// Rune wider than size: take it whole.
			_, w := utf8.DecodeRuneInString(text)
			cut = w
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

// Reader returns the chunks encoded as chunk frames, the last one final.
func (s *TextSource) Reader() (io.Reader, error) {
	if s.MessageID == "" {
		return nil, errors.New("text source requires a message id")
	}
	var buf bytes.Buffer
	enc := ipc.NewFrameEncoder(&buf)
	chunks := s.Chunks()
	for i, c := range chunks {
		if err := enc.WriteChunk(s.MessageID, int64(i+1), c, i == len(chunks)-1); err != nil {
			return nil, err
		}
	}
	return &buf, nil
}
