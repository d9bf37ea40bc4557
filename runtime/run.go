package runtime

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/boltstream/adapter"
	"github.com/pithecene-io/boltstream/log"
	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/parser"
	"github.com/pithecene-io/boltstream/policy"
	"github.com/pithecene-io/boltstream/types"
)

// shutdownFlushTimeout bounds the best-effort flush at session end.
const shutdownFlushTimeout = 30 * time.Second

// RunConfig configures a single ingestion session.
type RunConfig struct {
	// Input carries length-prefixed chunk and reset frames.
	Input io.Reader
	// Meta is the session identity.
	Meta *types.SessionMeta
	// Policy is the ingestion policy. Closed when the session ends.
	Policy policy.Policy
	// Adapter receives a notice per completed message. Optional.
	Adapter adapter.Adapter
	// Collector is the metrics collector for this session.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Logger overrides the default stderr logger.
	Logger *log.Logger
	// ParserOptions are passed to parser.New after the logger option.
	ParserOptions []parser.Option
}

// RunResult represents the result of a session.
type RunResult struct {
	// Meta is the session identity.
	Meta *types.SessionMeta
	// Outcome is the session outcome.
	Outcome *types.Outcome
	// Duration is the total session duration.
	Duration time.Duration
	// PolicyStats is the policy statistics.
	PolicyStats policy.Stats
	// FlushTriggers counts flushes by trigger for streaming policies.
	FlushTriggers map[string]int64
	// ParserStats is the parser statistics.
	ParserStats parser.Stats
	// MessagesCompleted is the number of messages that received a final chunk.
	MessagesCompleted int64
	// EventCount is the total number of events emitted.
	EventCount int64
}

// RunOrchestrator orchestrates a single session.
type RunOrchestrator struct {
	config    *RunConfig
	logger    *log.Logger
	startTime time.Time
}

// NewRunOrchestrator creates a new orchestrator.
// Returns error if session metadata or required components are missing.
func NewRunOrchestrator(config *RunConfig) (*RunOrchestrator, error) {
	if err := config.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session metadata: %w", err)
	}
	if config.Input == nil {
		return nil, fmt.Errorf("input reader is required")
	}
	if config.Policy == nil {
		return nil, fmt.Errorf("policy is required")
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.Meta)
	}

	return &RunOrchestrator{
		config: config,
		logger: logger,
	}, nil
}

// Run validates config and executes a session end-to-end.
func Run(ctx context.Context, config *RunConfig) (*RunResult, error) {
	r, err := NewRunOrchestrator(config)
	if err != nil {
		return nil, err
	}
	return r.Execute(ctx)
}

// Execute executes the session end-to-end.
//
// Execution flow:
//  1. Build emitter, parser and ingestion engine
//  2. Ingest frames until EOF or a fatal error
//  3. Flush and close the policy (best effort)
//  4. Absorb stats into the collector
//  5. Determine outcome
func (r *RunOrchestrator) Execute(ctx context.Context) (*RunResult, error) {
	r.startTime = time.Now()
	collector := r.config.Collector
	collector.IncSessionStarted()

	r.logger.Info("starting session", nil)

	emitter := NewEmitter(ctx, r.config.Policy, r.config.Meta, r.logger)
	opts := append([]parser.Option{parser.WithLogger(r.logger)}, r.config.ParserOptions...)
	p := parser.New(emitter, opts...)

	ingestion := NewIngestionEngine(
		r.config.Input,
		p,
		emitter,
		r.config.Policy,
		r.config.Adapter,
		r.logger,
		r.config.Meta,
		collector,
	)
	ingErr := ingestion.Run(ctx)

	if open := ingestion.OpenStreams(); open > 0 {
		r.logger.Warn("input ended with incomplete messages", map[string]any{
			"open_streams": open,
		})
	}

	// Use WithoutCancel so a canceled session still persists what it buffered.
	flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	flushErr := r.config.Policy.Flush(flushCtx)
	flushCancel()
	if flushErr != nil {
		r.logger.Warn("policy flush failed (best effort)", map[string]any{
			"error": flushErr.Error(),
		})
	}

	closeErr := r.config.Policy.Close()
	if closeErr != nil {
		r.logger.Warn("policy close failed", map[string]any{
			"error": closeErr.Error(),
		})
	}

	var outcome *types.Outcome
	switch {
	case ingErr != nil:
		r.logger.Error("ingestion failed", map[string]any{
			"error": ingErr.Error(),
		})
		outcome = classifyIngestionError(ingErr)
	case flushErr != nil:
		outcome = &types.Outcome{
			Status:  types.OutcomePolicyFailure,
			Message: fmt.Sprintf("policy flush failed: %v", flushErr),
		}
	case closeErr != nil:
		outcome = &types.Outcome{
			Status:  types.OutcomePolicyFailure,
			Message: fmt.Sprintf("policy close failed: %v", closeErr),
		}
	default:
		outcome = &types.Outcome{
			Status:  types.OutcomeSuccess,
			Message: "input ended cleanly",
		}
	}

	result := r.buildResult(outcome, p, emitter, ingestion)

	collector.AbsorbParserStats(parserCounters(result.ParserStats))
	collector.AbsorbPolicyStats(
		result.PolicyStats.TotalEvents,
		result.PolicyStats.EventsPersisted,
		result.PolicyStats.EventsDropped,
		droppedByType(result.PolicyStats.DroppedByType),
		result.FlushTriggers,
	)
	if outcome.Status == types.OutcomeSuccess {
		collector.IncSessionCompleted()
	} else {
		collector.IncSessionFailed()
	}

	r.logger.Info("session completed", map[string]any{
		"outcome":  outcome.Status,
		"messages": result.MessagesCompleted,
		"events":   result.EventCount,
		"duration": result.Duration.String(),
	})

	return result, nil
}

// classifyIngestionError maps an ingestion error to an outcome.
func classifyIngestionError(err error) *types.Outcome {
	switch {
	case IsPolicyError(err):
		return &types.Outcome{
			Status:  types.OutcomePolicyFailure,
			Message: err.Error(),
		}
	case IsCanceledError(err):
		return &types.Outcome{
			Status:  types.OutcomeCanceled,
			Message: fmt.Sprintf("session canceled: %v", err),
		}
	default:
		return &types.Outcome{
			Status:  types.OutcomeStreamError,
			Message: fmt.Sprintf("stream error: %v", err),
		}
	}
}

// buildResult constructs the final session result.
func (r *RunOrchestrator) buildResult(
	outcome *types.Outcome,
	p *parser.Parser,
	emitter *Emitter,
	ingestion *IngestionEngine,
) *RunResult {
	result := &RunResult{
		Meta:              r.config.Meta,
		Outcome:           outcome,
		Duration:          time.Since(r.startTime),
		PolicyStats:       r.config.Policy.Stats(),
		ParserStats:       p.Stats(),
		MessagesCompleted: ingestion.MessagesCompleted(),
		EventCount:        emitter.Total(),
	}
	if sp, ok := r.config.Policy.(interface {
		FlushTriggerStats() map[policy.FlushTrigger]int64
	}); ok {
		triggers := sp.FlushTriggerStats()
		result.FlushTriggers = make(map[string]int64, len(triggers))
		for k, v := range triggers {
			result.FlushTriggers[string(k)] = v
		}
	}
	return result
}

func parserCounters(s parser.Stats) metrics.ParserCounters {
	return metrics.ParserCounters{
		TagsRecognized: s.TagsRecognized,
		TagsLiteral:    s.TagsLiteral,
		ContentUpdates: s.ContentUpdates,
		ImageBlocks:    s.ImageBlocks,
		ImageFailures:  s.ImageFailures,
		TagOverflows:   s.TagOverflows,
		ImageOverflows: s.ImageOverflows,
	}
}

func droppedByType(m map[types.EventType]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}
