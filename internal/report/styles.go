package report

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette shared with the banner.
var (
	ColorPrimary   = lipgloss.Color("#7D56F4") // Indigo/Purple
	ColorSecondary = lipgloss.Color("#04B575") // Green
	ColorError     = lipgloss.Color("#FF5F87") // Pink/Red
	ColorWarning   = lipgloss.Color("#FFAF00") // Gold
	ColorSubtle    = lipgloss.Color("#767676") // Gray
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(ColorSubtle)
	valueStyle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)

	passStyle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)
