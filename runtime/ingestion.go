package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/boltstream/adapter"
	"github.com/pithecene-io/boltstream/ipc"
	"github.com/pithecene-io/boltstream/log"
	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/parser"
	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

// IngestionError classifies ingestion errors for outcome determination.
type IngestionError struct {
	// Kind indicates whether this is a stream/frame error or a policy error.
	Kind IngestionErrorKind
	// Err is the underlying error.
	Err error
}

// IngestionErrorKind classifies ingestion errors.
type IngestionErrorKind int

const (
	// IngestionErrorStream indicates bad framing or chunk ordering.
	IngestionErrorStream IngestionErrorKind = iota
	// IngestionErrorPolicy indicates the policy or its sink failed.
	IngestionErrorPolicy
	// IngestionErrorCanceled indicates context cancellation.
	IngestionErrorCanceled
)

func (e *IngestionError) Error() string {
	return e.Err.Error()
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IsPolicyError returns true if the error is a policy failure.
func IsPolicyError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorPolicy
	}
	return false
}

// IsCanceledError returns true if the error is due to context cancellation.
func IsCanceledError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorCanceled
	}
	return false
}

// IsStreamError returns true if the error is a stream/frame error.
func IsStreamError(err error) bool {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Kind == IngestionErrorStream
	}
	return false
}

// IngestionEngine drives chunk frames through the parser.
//   - Frames are read in order
//   - Chunk seq is strictly monotonic per message id (1, 2, 3...)
//   - Invalid framing is fatal (no resync)
//   - A final chunk flushes the policy and completes the message
//   - Reset frames drop parser state without touching other messages' seq
type IngestionEngine struct {
	decoder   *ipc.FrameDecoder
	parser    *parser.Parser
	emitter   *Emitter
	policy    policy.Policy
	adapter   adapter.Adapter
	logger    *log.Logger
	meta      *types.SessionMeta
	collector *metrics.Collector
	now       func() time.Time

	seqs      map[string]int64
	completed int64
}

// NewIngestionEngine creates a new ingestion engine. The parser must have
// been created with emitter as its callbacks. adapter may be nil.
func NewIngestionEngine(
	reader io.Reader,
	p *parser.Parser,
	emitter *Emitter,
	pol policy.Policy,
	adp adapter.Adapter,
	logger *log.Logger,
	meta *types.SessionMeta,
	collector *metrics.Collector,
) *IngestionEngine {
	return &IngestionEngine{
		decoder:   ipc.NewFrameDecoder(reader),
		parser:    p,
		emitter:   emitter,
		policy:    pol,
		adapter:   adp,
		logger:    logger,
		meta:      meta,
		collector: collector,
		now:       time.Now,
		seqs:      make(map[string]int64),
	}
}

// Run runs the ingestion loop until EOF or fatal error.
// Returns:
//   - nil: stream ended cleanly (EOF)
//   - *IngestionError with Kind=IngestionErrorStream: frame/stream error
//   - *IngestionError with Kind=IngestionErrorPolicy: policy failure
//   - *IngestionError with Kind=IngestionErrorCanceled: context canceled
//
// Frames are read on a separate goroutine, so cancellation is observed
// even while the input blocks. That goroutine stays parked in Read until
// the input yields or is closed.
func (e *IngestionEngine) Run(ctx context.Context) error {
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()
	reads := make(chan frameRead)
	go e.readFrames(readCtx, reads)

	for {
		// Cancellation wins over frames that are already available.
		if err := ctx.Err(); err != nil {
			return &IngestionError{Kind: IngestionErrorCanceled, Err: err}
		}

		var read frameRead
		select {
		case <-ctx.Done():
			return &IngestionError{Kind: IngestionErrorCanceled, Err: ctx.Err()}
		case read = <-reads:
		}

		if read.err != nil {
			if errors.Is(read.err, io.EOF) {
				return nil
			}
			e.logger.Error("frame error", map[string]any{
				"error": read.err.Error(),
			})
			e.collector.IncFrameDecodeErrors()
			return &IngestionError{
				Kind: IngestionErrorStream,
				Err:  fmt.Errorf("frame error: %w", read.err),
			}
		}

		if err := e.processFrame(ctx, read.payload); err != nil {
			return err
		}
	}
}

// frameRead is one ReadFrame result handed from the reader goroutine.
type frameRead struct {
	payload []byte
	err     error
}

// readFrames reads frames until an error or until ctx is done. The channel
// is unbuffered, so at most one frame is read ahead of processing.
func (e *IngestionEngine) readFrames(ctx context.Context, out chan<- frameRead) {
	for {
		payload, err := e.decoder.ReadFrame()
		select {
		case out <- frameRead{payload: payload, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// processFrame decodes and processes a single frame.
func (e *IngestionEngine) processFrame(ctx context.Context, payload []byte) error {
	decoded, err := ipc.DecodeFrame(payload)
	if err != nil {
		e.logger.Error("frame decode error", map[string]any{
			"error": err.Error(),
		})
		e.collector.IncFrameDecodeErrors()
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("frame decode error: %w", err),
		}
	}

	switch frame := decoded.(type) {
	case *types.ChunkFrame:
		return e.processChunk(ctx, frame)
	case *types.ResetFrame:
		e.processReset(frame)
		return nil
	default:
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  fmt.Errorf("unexpected frame type: %T", decoded),
		}
	}
}

// processChunk validates ordering and feeds one chunk to the parser.
func (e *IngestionEngine) processChunk(ctx context.Context, frame *types.ChunkFrame) error {
	if frame.MessageID == "" {
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err:  errors.New("chunk frame missing message_id"),
		}
	}

	expectedSeq := e.seqs[frame.MessageID] + 1
	if frame.Seq != expectedSeq {
		e.logger.Error("sequence violation", map[string]any{
			"message_id": frame.MessageID,
			"expected":   expectedSeq,
			"got":        frame.Seq,
		})
		return &IngestionError{
			Kind: IngestionErrorStream,
			Err: fmt.Errorf("sequence violation for %s: expected %d, got %d",
				frame.MessageID, expectedSeq, frame.Seq),
		}
	}
	e.seqs[frame.MessageID] = frame.Seq

	e.collector.AddChunk(len(frame.Data))
	e.parser.Parse(frame.MessageID, frame.Data)

	if err := e.emitter.Err(); err != nil {
		return &IngestionError{
			Kind: IngestionErrorPolicy,
			Err:  fmt.Errorf("policy failure: %w", err),
		}
	}

	if frame.Final {
		return e.completeMessage(ctx, frame.MessageID)
	}
	return nil
}

// completeMessage flushes the policy, forgets the message and publishes
// its completion notice.
func (e *IngestionEngine) completeMessage(ctx context.Context, messageID string) error {
	if err := e.policy.Flush(ctx); err != nil {
		e.logger.Error("policy flush failed", map[string]any{
			"message_id": messageID,
			"error":      err.Error(),
		})
		return &IngestionError{
			Kind: IngestionErrorPolicy,
			Err:  fmt.Errorf("policy flush failure: %w", err),
		}
	}

	if e.parser.Pending(messageID) {
		e.logger.Warn("message completed with open constructs", map[string]any{
			"message_id": messageID,
		})
	}

	summary := e.emitter.Complete(messageID)
	e.parser.Reset(messageID)
	delete(e.seqs, messageID)
	e.completed++
	e.collector.IncStreamCompleted()

	e.logger.Info("message completed", map[string]any{
		"message_id": messageID,
		"events":     summary.Events,
	})

	e.publish(ctx, messageID, summary)
	return nil
}

// publish notifies the adapter. Failures are logged and counted, never fatal.
func (e *IngestionEngine) publish(ctx context.Context, messageID string, summary MessageSummary) {
	if e.adapter == nil {
		return
	}
	event := &adapter.MessageCompletedEvent{
		ContractVersion: types.ContractVersion,
		EventType:       adapter.EventTypeMessageCompleted,
		SessionID:       e.meta.SessionID,
		MessageID:       messageID,
		Source:          e.meta.Source,
		Timestamp:       e.now().UTC().Format(time.RFC3339),
		EventCount:      summary.Events,
		Artifacts:       summary.Artifacts,
		Actions:         summary.Actions,
		ImageRequests:   summary.ImageRequests,
		ParseErrors:     summary.ParseErrors,
	}
	if err := e.adapter.Publish(ctx, event); err != nil {
		e.logger.Warn("adapter publish failed", map[string]any{
			"message_id": messageID,
			"error":      err.Error(),
		})
		e.collector.IncAdapterPublishFailure()
		return
	}
	e.collector.IncAdapterPublishSuccess()
}

// processReset drops parser state for one message or for all of them.
// Chunk seq tracking is cleared with it, so a reset message restarts at 1.
func (e *IngestionEngine) processReset(frame *types.ResetFrame) {
	if frame.MessageID == "" {
		e.parser.ResetAll()
		e.emitter.Forget("")
		clear(e.seqs)
	} else {
		e.parser.Reset(frame.MessageID)
		e.emitter.Forget(frame.MessageID)
		delete(e.seqs, frame.MessageID)
	}
	e.collector.IncStreamReset()
	e.logger.Debug("stream reset", map[string]any{
		"message_id": frame.MessageID,
	})
}

// MessagesCompleted returns the number of messages that received a final chunk.
func (e *IngestionEngine) MessagesCompleted() int64 {
	return e.completed
}

// OpenStreams returns the number of messages with chunks but no final chunk.
func (e *IngestionEngine) OpenStreams() int {
	return len(e.seqs)
}
