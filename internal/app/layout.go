package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wrap"

	"github.com/buckleypaul/jig/internal/logbus"
	"github.com/buckleypaul/jig/internal/ui"
)

func renderHeader(info Info, passed, failed, width int) string {
	title := ui.TitleStyle.Render("jig")
	content := fmt.Sprintf("%s  Variant: %s  Tester: %s", title, info.Variant, info.Tester)
	counts := ui.SuccessBadge(fmt.Sprintf("%d passed", passed)) + " " + ui.ErrorBadge(fmt.Sprintf("%d failed", failed))

	gap := width - lipgloss.Width(content) - lipgloss.Width(counts) - 2
	if gap < 1 {
		gap = 1
	}
	return ui.StatusBarStyle.Width(width).Render(content + strings.Repeat(" ", gap) + counts)
}

// logLines renders the history, wrapping long lines and putting the spinner
// in front of a trailing in-progress line.
func logLines(events []logbus.Event, spin string, width int) []string {
	var lines []string
	for i, ev := range events {
		style, ok := ui.LineStyle(ev.Kind)
		if !ok {
			continue
		}
		text := ev.Text
		if ev.Kind == logbus.KindInProgress && i == len(events)-1 {
			text = spin + " " + text
		}
		if width > 0 {
			text = wrap.String(text, width)
		}
		lines = append(lines, style.Render(text))
	}
	return lines
}

func renderLog(events []logbus.Event, spin string, width, height int) string {
	inner := width - 4
	lines := logLines(events, spin, inner)

	// Keep the newest lines on screen.
	content := strings.Join(lines, "\n")
	if rows := height - 2; rows > 0 {
		all := strings.Split(content, "\n")
		if len(all) > rows {
			content = strings.Join(all[len(all)-rows:], "\n")
		}
	}
	return ui.Panel("log", content, width, height, ui.Subtle)
}

func renderWash(events []logbus.Event, c logbus.Color, width, height int) string {
	lines := logLines(events, "", width-2)
	text := strings.Join(lines, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.NewStyle().Foreground(ui.WashInk).Background(ui.WashColor(c)).Bold(true).Padding(1, 2).Render(text),
		lipgloss.WithWhitespaceBackground(ui.WashColor(c)),
	)
}

func renderStatusBar(showHelp bool, width int) string {
	parts := []string{
		ui.StatusKey("?", "help"),
		ui.StatusKey("q", "quit"),
	}
	if showHelp {
		parts = append(parts, ui.DimStyle.Render("connect a board to start its test; the screen turns green or red with the verdict"))
	}
	return ui.StatusBarStyle.Width(width).Render(strings.Join(parts, "  "))
}

func renderLayout(header, body, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, body, statusBar)
}
