package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary    = lipgloss.Color("63")  // Purple/blue
	Action     = lipgloss.Color("75")  // Bright blue
	Success    = lipgloss.Color("78")  // Green
	Warning    = lipgloss.Color("214") // Orange
	Error      = lipgloss.Color("196") // Red
	Subtle     = lipgloss.Color("241") // Gray
	Surface    = lipgloss.Color("236") // Dark gray
	Text       = lipgloss.Color("252") // Light gray
	TextDim    = lipgloss.Color("245") // Dimmer text
	WashGreen  = lipgloss.Color("28")
	WashRed    = lipgloss.Color("124")
	WashInk    = lipgloss.Color("231") // text drawn on a wash

	// Event lines
	SuccessLineStyle    = lipgloss.NewStyle().Foreground(Success)
	ErrorLineStyle      = lipgloss.NewStyle().Foreground(Error)
	InProgressLineStyle = lipgloss.NewStyle().Foreground(Text)
	ActionLineStyle     = lipgloss.NewStyle().Foreground(Action).Bold(true)

	// Content area
	ContentStyle = lipgloss.NewStyle().
			Padding(0, 1)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextDim).
			Background(Surface).
			Padding(0, 1)

	StatusBarKeyStyle = lipgloss.NewStyle().
				Foreground(Text).
				Background(Surface).
				Bold(true)

	// Header title
	TitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	// General
	BoldStyle = lipgloss.NewStyle().Bold(true)
	DimStyle  = lipgloss.NewStyle().Foreground(TextDim)
)
