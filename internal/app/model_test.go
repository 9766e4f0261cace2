package app

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/jig/internal/logbus"
)

type fakeSender struct{ msgs []tea.Msg }

func (f *fakeSender) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	return next.(Model)
}

func apply(m Model, events ...logbus.Event) Model {
	next, _ := m.Update(HistoryMsg{Events: events})
	return next.(Model)
}

func TestRendererSendsHistory(t *testing.T) {
	s := &fakeSender{}
	r := NewRenderer(s)
	r.Render([]logbus.Event{{Kind: logbus.KindSuccess, Text: "✓ ok"}})

	if len(s.msgs) != 1 {
		t.Fatalf("sent %d messages", len(s.msgs))
	}
	msg, ok := s.msgs[0].(HistoryMsg)
	if !ok || len(msg.Events) != 1 {
		t.Fatalf("unexpected message %#v", s.msgs[0])
	}
}

func TestViewShowsLog(t *testing.T) {
	m := sized(New(Info{Variant: "mainboard", Tester: "bench-1"}))
	m = apply(m,
		logbus.Event{Kind: logbus.KindSuccess, Text: "✓ Device connected"},
		logbus.Event{Kind: logbus.KindInProgress, Text: "Measuring B+..."},
	)
	view := m.View()
	for _, want := range []string{"mainboard", "bench-1", "✓ Device connected", "Measuring B+...", ":quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewLoadingBeforeSize(t *testing.T) {
	if got := New(Info{}).View(); got != "Loading..." {
		t.Errorf("View() = %q", got)
	}
}

func TestFillCountsVerdicts(t *testing.T) {
	m := sized(New(Info{}))
	m = apply(m, logbus.Event{Kind: logbus.KindSuccess, Text: "✓ Board passed"}, logbus.Event{Kind: logbus.KindFill, Color: logbus.Green})
	m = apply(m, logbus.Event{Kind: logbus.KindError, Text: "╳ Board failed"}, logbus.Event{Kind: logbus.KindFill, Color: logbus.Red})
	m = apply(m, logbus.Event{Kind: logbus.KindAction, Text: "[ Please connect the device ]"})

	if m.passed != 1 || m.failed != 1 {
		t.Errorf("passed=%d failed=%d", m.passed, m.failed)
	}
	if !strings.Contains(m.View(), "1 passed") {
		t.Error("header missing pass count")
	}
}

func TestWashKeepsReason(t *testing.T) {
	m := sized(New(Info{}))
	m = apply(m,
		logbus.Event{Kind: logbus.KindError, Text: "╳ -> Faulty power circuit"},
		logbus.Event{Kind: logbus.KindFill, Color: logbus.Red},
	)
	if !strings.Contains(m.View(), "Faulty power circuit") {
		t.Error("wash hides the failure reason")
	}
}

func TestQuitAndHelpKeys(t *testing.T) {
	m := sized(New(Info{}))
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	if !next.(Model).showHelp {
		t.Error("help not toggled")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestClosedQuits(t *testing.T) {
	next, cmd := New(Info{}).Update(ClosedMsg{})
	if !next.(Model).closed || cmd == nil {
		t.Error("closed bus should quit the program")
	}
}
