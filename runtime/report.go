package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/boltstream/metrics"
	"github.com/pithecene-io/boltstream/parser"
	"github.com/pithecene-io/boltstream/types"
)

// SessionReport is the structured JSON report written by --report.
type SessionReport struct {
	SessionID  string              `json:"session_id"`
	Source     string              `json:"source,omitempty"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`
	Messages   int64               `json:"messages_completed"`
	EventCount int64               `json:"event_count"`

	Policy  *ReportPolicy     `json:"policy"`
	Parser  *parser.Stats     `json:"parser"`
	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

// ReportPolicy holds policy stats in the report.
type ReportPolicy struct {
	Name            string           `json:"name"`
	EventsReceived  int64            `json:"events_received"`
	EventsPersisted int64            `json:"events_persisted"`
	EventsDropped   int64            `json:"events_dropped"`
	DroppedByType   map[string]int64 `json:"dropped_by_type,omitempty"`
	FlushTriggers   map[string]int64 `json:"flush_triggers,omitempty"`
}

// BuildSessionReport composes a SessionReport from a RunResult and metrics
// snapshot. exitCode is the process exit code returned to the caller.
func BuildSessionReport(result *RunResult, snap *metrics.Snapshot, policyName string, exitCode int) *SessionReport {
	ps := result.ParserStats
	report := &SessionReport{
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		Messages:   result.MessagesCompleted,
		EventCount: result.EventCount,
		Policy: &ReportPolicy{
			Name:            policyName,
			EventsReceived:  result.PolicyStats.TotalEvents,
			EventsPersisted: result.PolicyStats.EventsPersisted,
			EventsDropped:   result.PolicyStats.EventsDropped,
			FlushTriggers:   result.FlushTriggers,
		},
		Parser:  &ps,
		Metrics: snap,
	}
	if len(result.PolicyStats.DroppedByType) > 0 {
		report.Policy.DroppedByType = droppedByType(result.PolicyStats.DroppedByType)
	}
	if result.Meta != nil {
		report.SessionID = result.Meta.SessionID
		report.Source = result.Meta.Source
	}
	return report
}

// WriteSessionReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteSessionReport(report *SessionReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeSessionReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if err := writeSessionReportTo(report, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return f.Close()
}

func writeSessionReportTo(report *SessionReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
