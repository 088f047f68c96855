package util

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	OKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	WarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	ErrStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	MutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	BoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Badge renders an operation status (completed, skipped, informational,
// failed) in its colour.
func Badge(status string) string {
	switch status {
	case "completed":
		return OKStyle.Render("✔ " + status)
	case "skipped":
		return WarnStyle.Render("⚠ " + status)
	case "failed":
		return ErrStyle.Render("✖ " + status)
	default:
		return MutedStyle.Render("ℹ " + status)
	}
}
