package components

import (
	"strings"

	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // position of the shortcut letter in the name (-1 if not in name)
}

// Tabs defines all available tabs.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Forecast", Key: 'f', KeyPos: 0},
	{Name: "Table", Key: 't', KeyPos: 0},
	{Name: "Settings", Key: 'x', KeyPos: -1},
}

// TabVisualWidth is the rendered width of tab: one column of padding each
// side, plus "[k]" when an inactive tab's shortcut is not a letter of its name.
func TabVisualWidth(tab Tab, active bool) int {
	w := lipgloss.Width(tab.Name) + 2
	if !active && (tab.KeyPos < 0 || tab.KeyPos >= len(tab.Name)) {
		w += 3
	}
	return w
}

// RenderTabBar renders the tab bar with the given active index, separated by
// one column.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimKeyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	sepStyle := lipgloss.NewStyle().Background(t.Surface)

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		switch {
		case i == activeIdx:
			parts[i] = activeStyle.Render(" " + tab.Name + " ")
		case tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name):
			before := tab.Name[:tab.KeyPos]
			key := string(tab.Name[tab.KeyPos])
			after := tab.Name[tab.KeyPos+1:]
			parts[i] = inactiveStyle.Render(" "+before) +
				keyStyle.Underline(true).Render(key) +
				inactiveStyle.Render(after+" ")
		default:
			parts[i] = inactiveStyle.Render(" "+tab.Name) +
				dimKeyStyle.Render("[") + keyStyle.Render(string(tab.Key)) + dimKeyStyle.Render("]") +
				inactiveStyle.Render(" ")
		}
	}

	row := strings.Join(parts, sepStyle.Render(" "))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(row)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
