package parser

import "github.com/pithecene-io/boltstream/types"

// Callbacks receives parser events. Every method is invoked synchronously
// from inside Parse, on the goroutine that called it.
//
// Embed NopCallbacks to implement only the events you need.
type Callbacks interface {
	// OnText receives literal text outside any action, trimmed.
	OnText(messageID, text string)
	// OnArtifactOpen fires when an artifact container opens.
	OnArtifactOpen(artifact types.ArtifactData)
	// OnArtifactClose fires with the id and title stored at open.
	OnArtifactClose(artifact types.ArtifactData)
	// OnActionOpen fires when an action opens; Content is empty.
	OnActionOpen(event types.ActionEvent)
	// OnActionClose carries the final cleaned content.
	OnActionClose(event types.ActionEvent)
	// OnActionContentUpdate carries interim cleaned content. Best-effort.
	OnActionContentUpdate(event types.ActionEvent)
	// OnImageGenerationRequest carries the valid entries of an image block.
	OnImageGenerationRequest(messageID string, requests []types.ImageRequest)
	// OnParseError reports a buffer overflow handled by the configured Limits.
	OnParseError(err types.ParseError)
}

// NopCallbacks implements Callbacks with no-op methods.
type NopCallbacks struct{}

// OnText implements Callbacks.
func (NopCallbacks) OnText(string, string) {}

// OnArtifactOpen implements Callbacks.
func (NopCallbacks) OnArtifactOpen(types.ArtifactData) {}

// OnArtifactClose implements Callbacks.
func (NopCallbacks) OnArtifactClose(types.ArtifactData) {}

// OnActionOpen implements Callbacks.
func (NopCallbacks) OnActionOpen(types.ActionEvent) {}

// OnActionClose implements Callbacks.
func (NopCallbacks) OnActionClose(types.ActionEvent) {}

// OnActionContentUpdate implements Callbacks.
func (NopCallbacks) OnActionContentUpdate(types.ActionEvent) {}

// OnImageGenerationRequest implements Callbacks.
func (NopCallbacks) OnImageGenerationRequest(string, []types.ImageRequest) {}

// OnParseError implements Callbacks.
func (NopCallbacks) OnParseError(types.ParseError) {}

var _ Callbacks = NopCallbacks{}
