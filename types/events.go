// Package types defines core domain types shared across boltstream packages.
//
//nolint:revive // types is a common Go package naming convention
package types

// ContractVersion is the event contract version stamped on every envelope.
const ContractVersion = "0.1.0"

// EventType discriminates parser events.
type EventType string

// Event type constants. One per parser callback.
const (
	EventTypeText                   EventType = "text"
	EventTypeArtifactOpen           EventType = "artifact_open"
	EventTypeArtifactClose          EventType = "artifact_close"
	EventTypeActionOpen             EventType = "action_open"
	EventTypeActionClose            EventType = "action_close"
	EventTypeActionContentUpdate    EventType = "action_content_update"
	EventTypeImageGenerationRequest EventType = "image_generation_request"
	EventTypeParseError             EventType = "parse_error"
)

// IsInterim returns true for best-effort events that a consumer may miss
// without affecting the correctness of final action content.
func (e EventType) IsInterim() bool {
	return e == EventTypeActionContentUpdate
}

// AllEventTypes returns every known event type in declaration order.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeText,
		EventTypeArtifactOpen,
		EventTypeArtifactClose,
		EventTypeActionOpen,
		EventTypeActionClose,
		EventTypeActionContentUpdate,
		EventTypeImageGenerationRequest,
		EventTypeParseError,
	}
}

// EventEnvelope wraps a single parser event for transport and storage.
type EventEnvelope struct {
	// ContractVersion is the semantic version of the event contract.
	ContractVersion string `msgpack:"contract_version" json:"contract_version"`
	// EventID is a unique identifier for this event.
	EventID string `msgpack:"event_id" json:"event_id"`
	// SessionID identifies the ingestion session that produced the event.
	SessionID string `msgpack:"session_id" json:"session_id"`
	// MessageID is the stream (message) the event belongs to.
	MessageID string `msgpack:"message_id" json:"message_id"`
	// Seq is monotonic per message, starting at 1.
	Seq int64 `msgpack:"seq" json:"seq"`
	// Type is the event type discriminator.
	Type EventType `msgpack:"type" json:"type"`
	// Ts is the event timestamp in RFC 3339 UTC format.
	Ts string `msgpack:"ts" json:"ts"`
	// Payload is the type-specific payload.
	Payload map[string]any `msgpack:"payload" json:"payload"`
}

// ArtifactData identifies an artifact container.
type ArtifactData struct {
	MessageID string `json:"message_id"`
	ID        string `json:"id"`
	Title     string `json:"title"`
}

// ActionData is the state of an action at the time of an event.
// Kind and FilePath are empty when the tag did not carry them.
type ActionData struct {
	Kind     string `json:"type,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	Content  string `json:"content"`
}

// ActionEvent is delivered on action open, close and content update.
// ArtifactID is empty when the action is not nested in an artifact.
type ActionEvent struct {
	MessageID  string     `json:"message_id"`
	ArtifactID string     `json:"artifact_id,omitempty"`
	Action     ActionData `json:"action"`
}

// ImageRequest is one entry of an image-generation block.
type ImageRequest struct {
	LocalPath   string `json:"local_path"`
	Description string `json:"description"`
}

// ParseErrorKind classifies recoverable parser failures.
type ParseErrorKind string

const (
	// ParseErrorTagOverflow indicates a pending tag exceeded the configured limit.
	ParseErrorTagOverflow ParseErrorKind = "tag_overflow"
	// ParseErrorImageOverflow indicates an image block exceeded the configured limit.
	ParseErrorImageOverflow ParseErrorKind = "image_overflow"
)

// ParseError describes a recoverable failure inside one stream.
type ParseError struct {
	MessageID string         `json:"message_id"`
	Kind      ParseErrorKind `json:"kind"`
	Message   string         `json:"message"`
}
