package lode

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/boltstream/types"
)

// ErrNoEventsFound is returned when no event records exist for a message.
var ErrNoEventsFound = errors.New("no event records found")

// ErrNoMetricsFound is returned when no metrics records exist in the dataset.
var ErrNoMetricsFound = errors.New("no metrics records found")

// QueryMessageEvents reads every stored event for messageID, ordered by seq.
// Records seen in more than one snapshot are returned once.
func QueryMessageEvents(ctx context.Context, ds lode.Dataset, messageID string) ([]*types.EventEnvelope, error) {
	if messageID == "" {
		return nil, errors.New("message id is required")
	}

	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "boltstream/snapshots")
	}

	seen := make(map[string]struct{})
	var events []*types.EventEnvelope
	for _, snap := range snapshots {
		if !snapshotMatchesFilter(snap, "message_id", messageID) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("boltstream/snapshot/%s", snap.ID))
		}

		// Manifest path filtering is a coarse pre-filter; record fields
		// are authoritative.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			e, ok := fromEventRecordMap(record)
			if !ok || e.MessageID != messageID {
				continue
			}
			if _, dup := seen[e.EventID]; dup {
				continue
			}
			seen[e.EventID] = struct{}{}
			events = append(events, e)
		}
	}

	if len(events) == 0 {
		return nil, ErrNoEventsFound
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Seq < events[j].Seq
	})
	return events, nil
}

// QueryLatestMetrics finds and reads the most recent session metrics record.
// Filters by sessionID if non-empty.
// Returns the raw record map or ErrNoMetricsFound if none exist.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, sessionID string) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, WrapReadError(err, "boltstream/snapshots")
	}

	// Iterate in reverse (latest first); snapshots are ordered by creation time
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatchesFilter(snap, "event_type", metricsEventType) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, WrapReadError(err, fmt.Sprintf("boltstream/snapshot/%s", snap.ID))
		}

		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindMetrics {
				continue
			}
			if sessionID != "" && toString(record["session_id"]) != sessionID {
				continue
			}
			return record, nil
		}
	}

	return nil, ErrNoMetricsFound
}
