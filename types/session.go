//nolint:revive // types is a common Go package naming convention
package types

import "errors"

// SessionMeta identifies one ingestion session.
type SessionMeta struct {
	// SessionID is the canonical session identifier. Must be non-empty.
	SessionID string
	// Source labels the upstream producer (model, provider, tenant).
	Source string
}

// Validate checks the session identity.
func (m *SessionMeta) Validate() error {
	if m == nil {
		return errors.New("session metadata is required")
	}
	if m.SessionID == "" {
		return errors.New("session_id must be non-empty")
	}
	return nil
}

// OutcomeStatus is the final status of a session.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the input ended cleanly.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeStreamError indicates invalid framing or chunk ordering.
	OutcomeStreamError OutcomeStatus = "stream_error"
	// OutcomePolicyFailure indicates the ingestion policy or its sink failed.
	OutcomePolicyFailure OutcomeStatus = "policy_failure"
	// OutcomeCanceled indicates the session context was canceled.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// Outcome is the final outcome of a session.
type Outcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus `json:"status"`
	// Message is a human-readable description.
	Message string `json:"message"`
}
