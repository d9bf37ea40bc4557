package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/boltstream/cli/reader"
)

// StatsModel shows a stored metrics record. Content is rendered once; on
// terminals shorter than the content it scrolls in a viewport.
type StatsModel struct {
	viewType string
	data     any
	content  string
	vp       viewport.Model
	sized    bool
	quitting bool
}

// helpLines is the height reserved below the viewport.
const helpLines = 2

func NewStatsModel(viewType string, data any) StatsModel {
	m := StatsModel{viewType: viewType, data: data}
	m.content = m.render()
	return m
}

func (m StatsModel) Init() tea.Cmd { return nil }

func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h := max(msg.Height-helpLines, 1)
		if !m.sized {
			m.vp = viewport.New(msg.Width, h)
			m.vp.SetContent(m.content)
			m.sized = true
		} else {
			m.vp.Width, m.vp.Height = msg.Width, h
		}
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	if !m.sized {
		return m, nil
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}
	body := m.content
	help := "q quit"
	if m.sized {
		body = m.vp.View()
		if !m.vp.AtTop() || !m.vp.AtBottom() {
			help = fmt.Sprintf("↑/↓ scroll (%3.f%%)  q quit", m.vp.ScrollPercent()*100)
		}
	}
	return body + "\n" + HelpStyle.Render(help)
}

func (m StatsModel) render() string {
	if m.viewType != "stats_session" {
		return fmt.Sprintf("Unknown view type: %s", m.viewType)
	}
	return m.renderStatsSession()
}

func (m StatsModel) renderStatsSession() string {
	data, ok := m.data.(*reader.SessionStats)
	if !ok {
		return "Invalid data type for stats_session"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Session Statistics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Session:"), ValueStyle.Render(data.SessionID))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Policy:"), ValueStyle.Render(data.Policy))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Storage:"), ValueStyle.Render(data.StorageBackend))
	fmt.Fprintf(&b, "%s %s\n\n", LabelStyle.Render("Recorded:"), ValueStyle.Render(data.Ts))

	rows := [][]statBox{
		{
			{"Chunks", data.ChunksReceived, focus},
			{"Bytes", data.BytesReceived, focus},
			{"Messages", data.StreamsCompleted, good},
			{"Resets", data.StreamsReset, caution},
		},
		{
			{"Tags", data.TagsRecognized, focus},
			{"Literal", data.TagsLiteral, dim},
			{"Images", data.ImageBlocks, good},
			{"Overflows", data.TagOverflows + data.ImageOverflows, bad},
		},
		{
			{"Received", data.EventsReceived, focus},
			{"Persisted", data.EventsPersisted, good},
			{"Dropped", data.EventsDropped, caution},
			{"Sink Errors", data.SinkWriteFailure, bad},
		},
	}
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		boxes := make([]string, len(row))
		for j, sb := range row {
			boxes[j] = sb.render()
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}

	if len(data.DroppedByType) > 0 {
		b.WriteString("\n\n")
		b.WriteString(TitleStyle.Render("Dropped by Type"))
		b.WriteString("\n")
		for _, k := range sortedKeys(data.DroppedByType) {
			fmt.Fprintf(&b, "  %s %d\n", TypeStyle(k).Width(26).Render(k), data.DroppedByType[k])
		}
	}

	return b.String()
}

// statBox is one counter tile; color tints both the border and the value.
type statBox struct {
	label string
	value int64
	color lipgloss.TerminalColor
}

func (sb statBox) render() string {
	value := StatValueStyle.Foreground(sb.color).Render(fmt.Sprintf("%d", sb.value))
	return StatBoxStyle.BorderForeground(sb.color).
		Render(lipgloss.JoinVertical(lipgloss.Center, value, StatLabelStyle.Render(sb.label)))
}

func sortedKeys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders the view once, without a program or viewport.
func RenderStatsStatic(viewType string, data any) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(NewStatsModel(viewType, data).View())
}
