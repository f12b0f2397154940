package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Bar is one column of a chart. An empty Color falls back to the accent.
type Bar struct {
	Label string
	Value float64
	Color lipgloss.Color
}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		peak = max(peak, v)
	}
	if peak <= 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}
	return style.Render(buf.String())
}

// BarChart renders vertical bars with a y axis. Each bar keeps its own color,
// so history and projection can share one chart.
func BarChart(bars []Bar, width, height int) string {
	if len(bars) == 0 {
		return ""
	}
	t := theme.Active
	if width < 15 || height < 3 {
		values := make([]float64, len(bars))
		for i, b := range bars {
			values[i] = b.Value
		}
		return Sparkline(values, t.Accent)
	}

	maxVal := 0.0
	for _, b := range bars {
		maxVal = max(maxVal, b.Value)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	// Y axis: widen the tick step until the intervals fit the height.
	tickStep := chartTickStep(maxVal)
	maxIntervals := max(height/2, 2)
	for int(math.Ceil(maxVal/tickStep)) > maxIntervals {
		tickStep *= 2
	}
	ceiling := math.Ceil(maxVal/tickStep) * tickStep
	numIntervals := max(int(math.Round(ceiling/tickStep)), 1)

	rowsPerTick := max(height/numIntervals, 2)
	chartH := rowsPerTick * numIntervals

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	tickLabels := make(map[int]string, numIntervals)
	for i := 1; i <= numIntervals; i++ {
		tickLabels[i*rowsPerTick] = formatChartLabel(tickStep * float64(i))
	}

	chartW := max(width-yLabelW-1, 5)

	bars = fitBars(bars, chartW)
	n := len(bars)
	gap := 1
	if n <= 1 {
		gap = 0
	}
	barW := chartW
	if n > 1 {
		barW = (chartW - (n - 1)) / n
	}
	barW = min(max(barW, 1), 6)
	axisLen := n*barW + max(0, n-1)*gap

	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	styles := make([]lipgloss.Style, n)
	for i, b := range bars {
		c := b.Color
		if c == "" {
			c = t.Accent
		}
		styles[i] = lipgloss.NewStyle().Foreground(c).Background(t.Surface)
	}

	var sb strings.Builder
	for row := chartH; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(chartH)
		rowBottom := ceiling * float64(row-1) / float64(chartH)

		sb.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, tickLabels[row])))
		sb.WriteString(axisStyle.Render("│"))

		for i, b := range bars {
			if i > 0 && gap > 0 {
				sb.WriteString(blank.Render(strings.Repeat(" ", gap)))
			}
			switch {
			case b.Value >= rowTop:
				sb.WriteString(styles[i].Render(strings.Repeat("█", barW)))
			case b.Value > rowBottom:
				frac := (b.Value - rowBottom) / (rowTop - rowBottom)
				idx := min(max(int(frac*8), 1), 8)
				sb.WriteString(styles[i].Render(strings.Repeat(string(blocks[idx]), barW)))
			default:
				sb.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	sb.WriteString(axisStyle.Render("└"))
	sb.WriteString(axisStyle.Render(strings.Repeat("─", axisLen)))

	if labels := axisLabels(bars, barW, gap, axisLen); labels != "" {
		labelStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
		sb.WriteString("\n")
		sb.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
		sb.WriteString(labelStyle.Render(labels))
	}
	return sb.String()
}

// fitBars keeps the most recent bars when there are more than the width can
// show at one column each plus a gap.
func fitBars(bars []Bar, chartW int) []Bar {
	maxN := max((chartW+1)/2, 2)
	if len(bars) <= maxN {
		return bars
	}
	return bars[len(bars)-maxN:]
}

// axisLabels lays out x labels under their bars, skipping any that would
// overlap the previous one. The last label is always placed when it fits.
func axisLabels(bars []Bar, barW, gap, axisLen int) string {
	buf := []rune(strings.Repeat(" ", axisLen))
	placed := false
	lastEnd := -1
	place := func(i int, force bool) {
		lbl := []rune(bars[i].Label)
		if len(lbl) == 0 {
			return
		}
		pos := i * (barW + gap)
		if force && pos+len(lbl) > axisLen {
			pos = axisLen - len(lbl)
		}
		if pos < 0 || pos <= lastEnd {
			return
		}
		end := min(pos+len(lbl), axisLen)
		if end-pos < len(lbl) && end-pos < 3 {
			return
		}
		copy(buf[pos:end], lbl[:end-pos])
		lastEnd = end
		placed = true
	}
	for i := 0; i < len(bars)-1; i++ {
		place(i, false)
	}
	place(len(bars)-1, true)
	if !placed {
		return ""
	}
	return strings.TrimRight(string(buf), " ")
}

// HorizontalBars renders one labeled row per bar, scaled to the largest value.
func HorizontalBars(bars []Bar, width int) string {
	if len(bars) == 0 {
		return ""
	}
	t := theme.Active

	labelW := 0
	valueW := 0
	maxVal := 0.0
	for _, b := range bars {
		labelW = max(labelW, lipgloss.Width(b.Label))
		valueW = max(valueW, len(cli.FormatCount(b.Value)))
		maxVal = max(maxVal, b.Value)
	}
	barW := max(width-labelW-valueW-2, 4)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	lines := make([]string, len(bars))
	for i, b := range bars {
		filled := 0
		if maxVal > 0 {
			filled = int(math.Round(b.Value / maxVal * float64(barW)))
		}
		if b.Value > 0 && filled == 0 {
			filled = 1
		}
		c := b.Color
		if c == "" {
			c = t.Accent
		}
		barStyle := lipgloss.NewStyle().Foreground(c).Background(t.Surface)

		pad := labelW - lipgloss.Width(b.Label)
		lines[i] = labelStyle.Render(b.Label+strings.Repeat(" ", pad)) +
			blank.Render(" ") +
			barStyle.Render(strings.Repeat("█", filled)) +
			blank.Render(strings.Repeat(" ", barW-filled+1)) +
			valueStyle.Render(fmt.Sprintf("%*s", valueW, cli.FormatCount(b.Value)))
	}
	return strings.Join(lines, "\n")
}

// Legend renders colored swatches with their names on one line.
func Legend(entries []Bar) string {
	t := theme.Active
	textStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	parts := make([]string, len(entries))
	for i, e := range entries {
		swatch := lipgloss.NewStyle().Foreground(e.Color).Background(t.Surface).Render("■")
		parts[i] = swatch + textStyle.Render(" "+e.Label)
	}
	return strings.Join(parts, textStyle.Render("   "))
}

// chartTickStep computes a nice tick interval targeting ~5 ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	exp := math.Floor(math.Log10(rough))
	base := math.Pow(10, exp)
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	if v < 1 {
		return fmt.Sprintf("%.2f", v)
	}
	return cli.FormatCompact(v)
}
