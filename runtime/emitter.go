package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/boltstream/log"
	"github.com/pithecene-io/boltstream/parser"
	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

// MessageSummary counts the events one message produced.
type MessageSummary struct {
	Events        int64
	Artifacts     int64
	Actions       int64
	ImageRequests int64
	ParseErrors   int64
}

// Emitter converts parser callbacks into event envelopes and ingests them
// into a policy. Seq is assigned per message starting at 1.
//
// Callbacks carry no context, so the emitter holds the session context it
// was created with. The first policy error is latched; later events are
// discarded and Err reports it.
type Emitter struct {
	ctx    context.Context
	policy policy.Policy
	meta   *types.SessionMeta
	logger *log.Logger
	newID  func() string
	now    func() time.Time

	mu        sync.Mutex
	seqs      map[string]int64
	summaries map[string]*MessageSummary
	total     int64
	err       error
}

// NewEmitter creates an emitter ingesting into pol.
func NewEmitter(ctx context.Context, pol policy.Policy, meta *types.SessionMeta, logger *log.Logger) *Emitter {
	return &Emitter{
		ctx:       ctx,
		policy:    pol,
		meta:      meta,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
		seqs:      make(map[string]int64),
		summaries: make(map[string]*MessageSummary),
	}
}

// emit wraps payload in an envelope and ingests it.
func (e *Emitter) emit(messageID string, et types.EventType, payload map[string]any, count func(*MessageSummary)) {
	e.mu.Lock()
	if e.err != nil {
		e.mu.Unlock()
		return
	}
	e.seqs[messageID]++
	sum := e.summaries[messageID]
	if sum == nil {
		sum = &MessageSummary{}
		e.summaries[messageID] = sum
	}
	sum.Events++
	if count != nil {
		count(sum)
	}
	e.total++
	envelope := &types.EventEnvelope{
		ContractVersion: types.ContractVersion,
		EventID:         e.newID(),
		SessionID:       e.meta.SessionID,
		MessageID:       messageID,
		Seq:             e.seqs[messageID],
		Type:            et,
		Ts:              e.now().UTC().Format(time.RFC3339Nano),
		Payload:         payload,
	}
	e.mu.Unlock()

	if err := e.policy.IngestEvent(e.ctx, envelope); err != nil {
		e.logger.Error("policy ingestion failed", map[string]any{
			"message_id": messageID,
			"event_type": et,
			"seq":        envelope.Seq,
			"error":      err.Error(),
		})
		e.mu.Lock()
		if e.err == nil {
			e.err = err
		}
		e.mu.Unlock()
	}
}

// Err returns the first policy error, if any.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Total returns the number of events emitted across all messages.
func (e *Emitter) Total() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// Complete returns the summary of messageID and forgets its seq and counters.
func (e *Emitter) Complete(messageID string) MessageSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out MessageSummary
	if sum := e.summaries[messageID]; sum != nil {
		out = *sum
	}
	delete(e.summaries, messageID)
	delete(e.seqs, messageID)
	return out
}

// Forget drops per-message state for messageID, or for every message when
// messageID is empty.
func (e *Emitter) Forget(messageID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if messageID == "" {
		clear(e.seqs)
		clear(e.summaries)
		return
	}
	delete(e.seqs, messageID)
	delete(e.summaries, messageID)
}

// OnText implements parser.Callbacks.
func (e *Emitter) OnText(messageID, text string) {
	e.emit(messageID, types.EventTypeText, map[string]any{"text": text}, nil)
}

// OnArtifactOpen implements parser.Callbacks.
func (e *Emitter) OnArtifactOpen(a types.ArtifactData) {
	e.emit(a.MessageID, types.EventTypeArtifactOpen, artifactPayload(a), func(s *MessageSummary) { s.Artifacts++ })
}

// OnArtifactClose implements parser.Callbacks.
func (e *Emitter) OnArtifactClose(a types.ArtifactData) {
	e.emit(a.MessageID, types.EventTypeArtifactClose, artifactPayload(a), nil)
}

// OnActionOpen implements parser.Callbacks.
func (e *Emitter) OnActionOpen(ev types.ActionEvent) {
	e.emit(ev.MessageID, types.EventTypeActionOpen, actionPayload(ev), nil)
}

// OnActionClose implements parser.Callbacks.
func (e *Emitter) OnActionClose(ev types.ActionEvent) {
	e.emit(ev.MessageID, types.EventTypeActionClose, actionPayload(ev), func(s *MessageSummary) { s.Actions++ })
}

// OnActionContentUpdate implements parser.Callbacks.
func (e *Emitter) OnActionContentUpdate(ev types.ActionEvent) {
	e.emit(ev.MessageID, types.EventTypeActionContentUpdate, actionPayload(ev), nil)
}

// OnImageGenerationRequest implements parser.Callbacks.
func (e *Emitter) OnImageGenerationRequest(messageID string, requests []types.ImageRequest) {
	images := make([]any, len(requests))
	for i, r := range requests {
		images[i] = map[string]any{
			"local_path":  r.LocalPath,
			"description": r.Description,
		}
	}
	n := int64(len(requests))
	e.emit(messageID, types.EventTypeImageGenerationRequest, map[string]any{"images": images},
		func(s *MessageSummary) { s.ImageRequests += n })
}

// OnParseError implements parser.Callbacks.
func (e *Emitter) OnParseError(pe types.ParseError) {
	e.emit(pe.MessageID, types.EventTypeParseError, map[string]any{
		"kind":    string(pe.Kind),
		"message": pe.Message,
	}, func(s *MessageSummary) { s.ParseErrors++ })
}

func artifactPayload(a types.ArtifactData) map[string]any {
	return map[string]any{
		"artifact_id": a.ID,
		"title":       a.Title,
	}
}

func actionPayload(ev types.ActionEvent) map[string]any {
	action := map[string]any{"content": ev.Action.Content}
	if ev.Action.Kind != "" {
		action["type"] = ev.Action.Kind
	}
	if ev.Action.FilePath != "" {
		action["file_path"] = ev.Action.FilePath
	}
	payload := map[string]any{"action": action}
	if ev.ArtifactID != "" {
		payload["artifact_id"] = ev.ArtifactID
	}
	return payload
}

// Verify Emitter implements parser.Callbacks.
var _ parser.Callbacks = (*Emitter)(nil)
