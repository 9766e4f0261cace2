// Package app is the full-screen terminal renderer for the station log.
package app

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/jig/internal/logbus"
	"github.com/buckleypaul/jig/internal/ui"
)

// HistoryMsg carries a snapshot of the visible history.
type HistoryMsg struct {
	Events []logbus.Event
}

// ClosedMsg tells the model the bus has shut down.
type ClosedMsg struct{}

// Sender is the part of tea.Program the renderer needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Renderer forwards history snapshots into a running program.
type Renderer struct {
	p Sender
}

// NewRenderer returns a logbus.Renderer that drives p.
func NewRenderer(p Sender) *Renderer {
	return &Renderer{p: p}
}

// Render implements logbus.Renderer.
func (r *Renderer) Render(events []logbus.Event) {
	r.p.Send(HistoryMsg{Events: events})
}

// Info is the static header content.
type Info struct {
	Variant string
	Tester  string
}

type Model struct {
	info     Info
	events   []logbus.Event
	spinner  spinner.Model
	width    int
	height   int
	showHelp bool
	passed   int
	failed   int
	closed   bool
}

func New(info Info) Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = ui.InProgressLineStyle
	return Model{info: info, spinner: s}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case HistoryMsg:
		m.events = msg.Events
		if c, ok := logbus.FillColor(m.events); ok {
			if c == logbus.Green {
				m.passed++
			} else {
				m.failed++
			}
		}
		return m, nil

	case ClosedMsg:
		m.closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, GlobalKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, GlobalKeys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := renderHeader(m.info, m.passed, m.failed, m.width)
	statusBar := renderStatusBar(m.showHelp, m.width)
	bodyHeight := m.height - 2 // header + status bar

	var body string
	if c, ok := logbus.FillColor(m.events); ok {
		body = renderWash(m.events, c, m.width, bodyHeight)
	} else {
		body = renderLog(m.events, m.spinner.View(), m.width, bodyHeight)
	}
	return renderLayout(header, body, statusBar)
}
