// Package tui provides the Bubble Tea views behind --tui.
//
// Views are read-only (inspect, stats), opt-in, and render exactly the
// payload the json/yaml/table output would; there is no TUI-only data.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive colors keep text readable on light and dark terminals.
var (
	accent  = lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"}
	good    = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}
	caution = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	bad     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	dim     = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	focus   = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	text    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginBottom(1)
	LabelStyle = lipgloss.NewStyle().Foreground(dim).Width(16)
	ValueStyle = lipgloss.NewStyle().Foreground(text)
	HelpStyle  = lipgloss.NewStyle().Foreground(dim).MarginTop(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(good)
	WarningStyle = lipgloss.NewStyle().Foreground(caution)
	ErrorStyle   = lipgloss.NewStyle().Foreground(bad)

	// CursorStyle marks the selected event row.
	CursorStyle = lipgloss.NewStyle().Bold(true).Foreground(focus)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dim).
			Padding(1, 2)

	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(focus).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)
	StatLabelStyle = lipgloss.NewStyle().Foreground(dim).Align(lipgloss.Center)
	StatValueStyle = lipgloss.NewStyle().Bold(true).Foreground(text).Align(lipgloss.Center)
)

// typeStyles colors the event type column by event family.
var typeStyles = map[string]lipgloss.Style{
	"artifact_open":            SuccessStyle,
	"artifact_close":           SuccessStyle,
	"action_open":              WarningStyle,
	"action_close":             WarningStyle,
	"action_content_update":    WarningStyle,
	"image_generation_request": CursorStyle,
	"parse_error":              ErrorStyle,
}

// TypeStyle returns the style for an event type; text and unknown types
// use ValueStyle.
func TypeStyle(eventType string) lipgloss.Style {
	if s, ok := typeStyles[eventType]; ok {
		return s
	}
	return ValueStyle
}
