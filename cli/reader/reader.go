package reader

import (
	"context"
	"errors"
	"fmt"

	lodeapi "github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/boltstream/lode"
)

// ErrNotFound is returned when no stored data matches the request.
var ErrNotFound = errors.New("not found")

// Reader abstracts read-only data access for CLI commands.
type Reader interface {
	// InspectMessage returns the stored events of one message, ordered by seq.
	InspectMessage(ctx context.Context, messageID string) (*InspectMessageResponse, error)
	// StatsSession returns the latest metrics record, optionally for one session.
	StatsSession(ctx context.Context, sessionID string) (*SessionStats, error)
}

// LodeReader reads from a lode dataset written by the lode sink.
type LodeReader struct {
	ds lodeapi.Dataset
}

// NewLodeReader creates a reader over ds.
func NewLodeReader(ds lodeapi.Dataset) *LodeReader {
	return &LodeReader{ds: ds}
}

// InspectMessage implements Reader.
func (r *LodeReader) InspectMessage(ctx context.Context, messageID string) (*InspectMessageResponse, error) {
	events, err := lode.QueryMessageEvents(ctx, r.ds, messageID)
	if err != nil {
		if errors.Is(err, lode.ErrNoEventsFound) {
			return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
		}
		return nil, err
	}

	resp := &InspectMessageResponse{
		MessageID:    messageID,
		SessionID:    events[0].SessionID,
		EventCount:   len(events),
		FirstTs:      events[0].Ts,
		LastTs:       events[len(events)-1].Ts,
		CountsByType: make(map[string]int64),
		Events:       make([]EventRow, 0, len(events)),
	}
	for _, e := range events {
		resp.CountsByType[string(e.Type)]++
		resp.Events = append(resp.Events, EventRow{
			Seq:     e.Seq,
			Type:    string(e.Type),
			EventID: e.EventID,
			Ts:      e.Ts,
			Summary: SummarizePayload(e.Type, e.Payload),
		})
	}
	return resp, nil
}

// StatsSession implements Reader.
func (r *LodeReader) StatsSession(ctx context.Context, sessionID string) (*SessionStats, error) {
	record, err := lode.QueryLatestMetrics(ctx, r.ds, sessionID)
	if err != nil {
		if errors.Is(err, lode.ErrNoMetricsFound) {
			return nil, fmt.Errorf("metrics: %w", ErrNotFound)
		}
		return nil, err
	}
	return ParseMetricsRecord(record)
}

// Verify LodeReader implements Reader.
var _ Reader = (*LodeReader)(nil)
