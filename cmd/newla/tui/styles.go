package tui

import "github.com/charmbracelet/lipgloss"

// Color palette — calm, terminal-friendly.
var (
	colorAccent  = lipgloss.Color("#7B68EE") // medium slate blue
	colorSuccess = lipgloss.Color("#50C878") // emerald
	colorWarning = lipgloss.Color("#FFB347") // pastel orange
	colorError   = lipgloss.Color("#FF6961") // pastel red
	colorMuted   = lipgloss.Color("#808080") // gray
	colorBorder  = lipgloss.Color("#3A3A5C") // subtle border
	colorTitle   = lipgloss.Color("#C4B5FD") // light purple for titles
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorTitle).MarginBottom(1)

	stylePanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			MarginBottom(1)

	styleOK   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarn = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	styleErr  = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleDim  = lipgloss.NewStyle().Foreground(colorMuted)

	styleStage = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	styleStatusBar = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)
)

func statusIcon(status string) string {
	switch status {
	case "success":
		return styleOK.Render("✓")
	case "completed_with_errors":
		return styleWarn.Render("!")
	case "error":
		return styleErr.Render("✗")
	default:
		return styleDim.Render("•")
	}
}
