package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/jig/internal/logbus"
)

// Panel renders a rounded-border box with title embedded in the top border.
// width is the total outer width. height=0 means auto-height.
func Panel(title, content string, width, height int, border lipgloss.Color) string {
	colorStyle := lipgloss.NewStyle().Foreground(border)

	// ╭─ TITLE ─...─╮  total = width
	dashCount := width - lipgloss.Width(title) - 5
	if dashCount < 0 {
		dashCount = 0
	}

	topBorder := colorStyle.Render("╭─ ") + title + colorStyle.Render(" "+strings.Repeat("─", dashCount)+"╮")

	// Inner content width: width minus 2 border chars and 2 padding chars
	innerWidth := width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}

	bodyStyle := lipgloss.NewStyle().
		Width(innerWidth).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderLeft(true).
		BorderRight(true).
		BorderBottom(true).
		BorderTop(false).
		BorderForeground(border).
		PaddingLeft(1).
		PaddingRight(1)

	if height > 0 {
		// height total = 1 (top border line) + inner content + 1 (bottom border)
		bodyStyle = bodyStyle.Height(height - 2)
	}

	return topBorder + "\n" + bodyStyle.Render(content)
}

// StatusKey renders a key hint for the status bar.
func StatusKey(k, desc string) string {
	return StatusBarKeyStyle.Render(k) + StatusBarStyle.Render(":"+desc)
}

// Badge renders a small colored badge.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("230")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// SuccessBadge renders a green badge.
func SuccessBadge(text string) string {
	return Badge(text, Success)
}

// ErrorBadge renders a red badge.
func ErrorBadge(text string) string {
	return Badge(text, Error)
}

// LineStyle returns the style for an event line; ok is false for events
// that have no text line.
func LineStyle(k logbus.Kind) (lipgloss.Style, bool) {
	switch k {
	case logbus.KindSuccess:
		return SuccessLineStyle, true
	case logbus.KindError:
		return ErrorLineStyle, true
	case logbus.KindInProgress:
		return InProgressLineStyle, true
	case logbus.KindAction:
		return ActionLineStyle, true
	}
	return lipgloss.Style{}, false
}

// Lines styles every text event, skipping Fill and Reset.
func Lines(events []logbus.Event) []string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		if style, ok := LineStyle(ev.Kind); ok {
			lines = append(lines, style.Render(ev.Text))
		}
	}
	return lines
}

// WashColor maps a fill color to its background.
func WashColor(c logbus.Color) lipgloss.Color {
	if c == logbus.Red {
		return WashRed
	}
	return WashGreen
}

// Wash fills a width x height block with the fill color.
func Wash(c logbus.Color, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	row := lipgloss.NewStyle().Background(WashColor(c)).Render(strings.Repeat(" ", width))
	rows := make([]string, height)
	for i := range rows {
		rows[i] = row
	}
	return strings.Join(rows, "\n")
}
