//nolint:revive // types is a common Go package naming convention
package types

// Frame type discriminants.
const (
	// ChunkFrameType marks a frame carrying the next increment of a message.
	ChunkFrameType = "chunk"
	// ResetFrameType marks a control frame that drops parser state.
	ResetFrameType = "reset"
)

// ChunkFrame carries the next increment of text for one message.
// Discriminated from other frames by Type == "chunk".
type ChunkFrame struct {
	// Type is always "chunk".
	Type string `msgpack:"type"`
	// MessageID identifies the stream this chunk belongs to.
	MessageID string `msgpack:"message_id"`
	// Seq is the chunk sequence number for the message, starts at 1.
	Seq int64 `msgpack:"seq"`
	// Data is the chunk text. May split tags at any byte.
	Data string `msgpack:"data"`
	// Final is true on the last chunk of a message.
	Final bool `msgpack:"final"`
}

// ResetFrame drops parser state for one message, or for all messages when
// MessageID is empty. It does not affect chunk seq ordering of other messages.
type ResetFrame struct {
	// Type is always "reset".
	Type string `msgpack:"type"`
	// MessageID is the stream to reset; empty resets every stream.
	MessageID string `msgpack:"message_id,omitempty"`
}
