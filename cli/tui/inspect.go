package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/boltstream/cli/reader"
)

// defaultPageSize is the event window height before a WindowSizeMsg arrives.
const defaultPageSize = 15

// InspectModel is a Bubble Tea model for the inspect_message view: a
// header box followed by a scrollable event list.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	cursor   int
	offset   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clamp()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			m.cursor--
		case key.Matches(msg, keys.Down):
			m.cursor++
		case key.Matches(msg, keys.Top):
			m.cursor = 0
		case key.Matches(msg, keys.Bottom):
			m.cursor = m.rowCount() - 1
		}
		m.clamp()
	}

	return m, nil
}

// Cursor returns the index of the selected event row.
func (m InspectModel) Cursor() int {
	return m.cursor
}

func (m InspectModel) rowCount() int {
	if data, ok := m.data.(*reader.InspectMessageResponse); ok {
		return len(data.Events)
	}
	return 0
}

func (m InspectModel) pageSize() int {
	// Header box and help take roughly 14 lines.
	if m.height > 20 {
		return m.height - 14
	}
	return defaultPageSize
}

// clamp keeps the cursor in range and the window around it.
func (m *InspectModel) clamp() {
	n := m.rowCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_message":
		content = m.renderInspectMessage()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ scroll • g/G top/bottom • q quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectMessage() string {
	data, ok := m.data.(*reader.InspectMessageResponse)
	if !ok {
		return "Invalid data type for inspect_message"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Message Details"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Message ID", data.MessageID},
		{"Session ID", data.SessionID},
		{"Events", fmt.Sprintf("%d", data.EventCount)},
		{"First", data.FirstTs},
		{"Last", data.LastTs},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1]))
	}
	header := BoxStyle.Render(b.String())

	var list strings.Builder
	end := min(m.offset+m.pageSize(), len(data.Events))
	for i := m.offset; i < end; i++ {
		ev := data.Events[i]
		marker := "  "
		if i == m.cursor {
			marker = CursorStyle.Render("▸ ")
		}
		fmt.Fprintf(&list, "%s%4d  %s  %s\n",
			marker,
			ev.Seq,
			TypeStyle(ev.Type).Width(26).Render(ev.Type),
			ev.Summary)
	}
	if len(data.Events) > 0 {
		fmt.Fprintf(&list, "\n%s", HelpStyle.Render(fmt.Sprintf("event %d of %d", m.cursor+1, len(data.Events))))
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, list.String())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit   key.Binding
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
