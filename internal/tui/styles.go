package tui

import "github.com/charmbracelet/lipgloss"

// Styles
var (
	baseFg    = lipgloss.Color("#E6E6E6")
	baseDimFg = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#6B7280"}
	accentFg  = lipgloss.Color("#7C3AED")
	groundFg  = lipgloss.Color("#A3E635")
	sampleFg  = lipgloss.Color("#F59E0B")
	warnFg    = lipgloss.Color("#F87171")
	borderCol = lipgloss.Color("#243141")

	appStyle    = lipgloss.NewStyle().Foreground(baseFg)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(borderCol).Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(baseDimFg)
	groundStyle = lipgloss.NewStyle().Foreground(groundFg)
	sampleStyle = lipgloss.NewStyle().Foreground(sampleFg).Bold(true)
	hoverStyle  = lipgloss.NewStyle().Foreground(accentFg).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(warnFg)
)
