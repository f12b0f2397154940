package components

import (
	"strings"

	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar: key hints on the left, the
// dataset description in the middle-right and the load age on the right.
func RenderStatusBar(width int, dataset, dataAge string) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	left := " [?]help  [/]filtros  [r]eload  [q]uit"
	right := ""
	if dataset != "" {
		right = dataset
	}
	if dataAge != "" {
		if right != "" {
			right += "  │  "
		}
		right += "Data: " + dataAge
	}
	if right != "" {
		right += " "
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return style.Render(left + strings.Repeat(" ", padding) + right)
}
