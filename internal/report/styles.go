package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	backendName = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899")).
		Width(10)

	value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00ccff"))

	subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))
)

func separator(width int) string {
	mid := width / 2
	if mid < 3 {
		return ""
	}
	return subtle.Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}
