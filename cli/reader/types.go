// Package reader provides the read-side data access layer for the boltstream CLI.
//
// This package isolates read operations from runtime internals. inspect and
// stats use it exclusively; it never writes to the dataset.
package reader

import "github.com/pithecene-io/boltstream/metrics"

// InspectMessageResponse describes every stored event of one message.
type InspectMessageResponse struct {
	MessageID    string           `json:"message_id"`
	SessionID    string           `json:"session_id"`
	EventCount   int              `json:"event_count"`
	FirstTs      string           `json:"first_ts"`
	LastTs       string           `json:"last_ts"`
	CountsByType map[string]int64 `json:"counts_by_type"`
	Events       []EventRow       `json:"events"`
}

// EventRow is one event flattened for table and TUI display.
type EventRow struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	Ts      string `json:"ts"`
	Summary string `json:"summary"`
}

// SessionStats is a stored session metrics record.
type SessionStats struct {
	Ts string `json:"ts"`
	metrics.Snapshot
}
