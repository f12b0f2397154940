package components

import (
	"fmt"

	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a fixed-width bar followed by the percentage. pct is
// clamped to [0, 1].
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	pct = min(max(pct, 0), 1)

	barColor := t.Cyan
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	}

	bar := progress.New(
		progress.WithSolidFill(string(barColor)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return bar.ViewAs(pct) + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

// IntervalBar places value inside [lower, upper] on a bar of the given width,
// marking the point estimate. Used for forecast intervals.
func IntervalBar(lower, value, upper float64, width int) string {
	t := theme.Active
	width = max(width, 3)
	rangeStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	markStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface).Bold(true)

	if upper <= lower {
		return markStyle.Render("●")
	}
	pos := int((value - lower) / (upper - lower) * float64(width-1))
	pos = min(max(pos, 0), width-1)

	left := ""
	for range pos {
		left += "─"
	}
	right := ""
	for range width - 1 - pos {
		right += "─"
	}
	return rangeStyle.Render("├"+left) + markStyle.Render("●") + rangeStyle.Render(right+"┤")
}
