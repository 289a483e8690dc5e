// Package dashboard is the interactive status view for a running stockwatch
// daemon, fed by the daemon's SSE state stream.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mossline/stockwatch/internal/engine"
	"github.com/mossline/stockwatch/internal/server"
	"github.com/mossline/stockwatch/tui/theme"
)

const maxActivityLines = 8

type streamStartedMsg struct {
	updates <-chan engine.Update
}

type updateMsg engine.Update

type streamClosedMsg struct{}

type connectErrMsg struct {
	err error
}

type tickMsg time.Time

// Model is the dashboard's bubbletea model.
type Model struct {
	client  *server.Client
	ctx     context.Context
	cancel  context.CancelFunc
	spinner spinner.Model
	updates <-chan engine.Update

	state     engine.State
	haveState bool
	activity  []string
	err       error

	width  int
	height int
}

// New creates a dashboard model for the given daemon socket.
func New(socketPath string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.DefaultTheme.Accent

	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		client:  server.NewClient(socketPath),
		ctx:     ctx,
		cancel:  cancel,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.connect(), tick())
}

func (m Model) connect() tea.Cmd {
	return func() tea.Msg {
		updates, err := m.client.StreamState(m.ctx)
		if err != nil {
			return connectErrMsg{err: err}
		}
		return streamStartedMsg{updates: updates}
	}
}

func waitForUpdate(updates <-chan engine.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return streamClosedMsg{}
		}
		return updateMsg(u)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			m.client.Close()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case streamStartedMsg:
		m.updates = msg.updates
		return m, waitForUpdate(m.updates)

	case updateMsg:
		m.state = msg.State
		m.haveState = true
		m.err = nil
		if msg.Type != "initial" {
			m.pushActivity(string(msg.Type))
		}
		return m, waitForUpdate(m.updates)

	case streamClosedMsg:
		m.err = fmt.Errorf("daemon connection lost")
		return m, nil

	case connectErrMsg:
		m.err = msg.err
		return m, nil

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) pushActivity(event string) {
	line := fmt.Sprintf("%s  %s", time.Now().Format("15:04:05"), event)
	m.activity = append(m.activity, line)
	if len(m.activity) > maxActivityLines {
		m.activity = m.activity[len(m.activity)-maxActivityLines:]
	}
}

// View implements tea.Model.
func (m Model) View() string {
	t := theme.DefaultTheme

	if m.err != nil {
		return t.Border.Render(fmt.Sprintf("%s %v\n\n%s",
			t.Error.Render("✗"), m.err,
			t.Muted.Render("Is the daemon running? Start it with 'stockwatch watch'. Press q to quit.")))
	}

	if !m.haveState {
		return fmt.Sprintf("\n %s Connecting to daemon...\n", m.spinner.View())
	}

	var b strings.Builder

	b.WriteString(t.Title.Render("stockwatch"))
	b.WriteString("  ")
	if m.state.Connection == "connected" {
		b.WriteString(t.Success.Render("● stream connected"))
	} else {
		b.WriteString(t.Warning.Render("○ " + m.state.Connection))
		if m.state.ReconnectAttempt > 0 {
			b.WriteString(t.Muted.Render(fmt.Sprintf(" (attempt %d)", m.state.ReconnectAttempt)))
		}
	}
	b.WriteString("\n\n")

	uptime := time.Since(m.state.StartedAt).Round(time.Second)
	b.WriteString(fmt.Sprintf("  Uptime       %s\n", uptime))
	b.WriteString(fmt.Sprintf("  Snapshots    %d  %s\n", m.state.SnapshotsSeen,
		t.Muted.Render(fmt.Sprintf("(polls: %d)", m.state.PollsRun))))
	b.WriteString(fmt.Sprintf("  Alerts       %d  %s\n", m.state.AlertsSent,
		t.Muted.Render(fmt.Sprintf("(failed: %d)", m.state.DeliveriesFailed))))
	b.WriteString(fmt.Sprintf("  Subscribers  %d\n", m.state.Subscribers))

	if len(m.state.Categories) > 0 {
		b.WriteString("\n")
		b.WriteString(t.Accent.Render("  Categories") + "\n")

		names := make([]string, 0, len(m.state.Categories))
		for name := range m.state.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			cat := m.state.Categories[name]
			line := fmt.Sprintf("    %-12s %3d items", name, cat.Items)
			if !cat.LastNotify.IsZero() {
				line += t.Muted.Render(
					fmt.Sprintf("   last alert %s ago", time.Since(cat.LastNotify).Round(time.Second)))
			}
			b.WriteString(line + "\n")
		}
	}

	if len(m.activity) > 0 {
		b.WriteString("\n")
		b.WriteString(t.Accent.Render("  Activity") + "\n")
		for _, line := range m.activity {
			b.WriteString("    " + t.Muted.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + t.Muted.Render("  q: quit"))

	content := b.String()
	if m.width > 0 {
		content = lipgloss.NewStyle().MaxWidth(m.width).Render(content)
	}
	return content
}

// Run starts the dashboard and blocks until the user quits.
func Run(socketPath string) error {
	p := tea.NewProgram(New(socketPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
