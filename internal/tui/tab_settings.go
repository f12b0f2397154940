package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/tui/components"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := a.cfg

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	inner := components.CardInnerWidth(cw)
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-22s", label)) + valueStyle.Render(truncStr(value, inner-22))
	}

	settings := []string{
		row("Dataset", cfg.General.DataPath),
		row("Encoding", cfg.General.Encoding),
		row("Default categories", strings.Join(cfg.Dashboard.DefaultCategories, ", ")),
		row("Before first month", beforeRangeLabel(cfg.Forecast.BeforeRange)),
		row("Theme", cfg.Appearance.Theme),
		row("Config file", config.Path()),
	}

	var b strings.Builder
	b.WriteString(strings.Join(settings, "\n"))
	b.WriteString("\n\n")
	switch {
	case a.setupErr != nil:
		b.WriteString(warnStyle.Render("Could not save config: " + a.setupErr.Error()))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("Settings apply to this session only."))
	case a.saved:
		b.WriteString(greenStyle.Render("Saved."))
	default:
		b.WriteString(accentStyle.Render("Press Enter to edit"))
	}

	fc := cfg.Forecast
	modelRows := []string{
		row("Order (p, q)", fmt.Sprintf("%d, %d", fc.Order[0], fc.Order[1])),
		row("Seasonal (P, Q)", fmt.Sprintf("%d, %d [%d]", fc.SeasonalOrder[0], fc.SeasonalOrder[1], fc.Period)),
		row("Confidence", cli.FormatPercent(fc.Confidence)),
		row("Max steps", fmt.Sprint(fc.MaxSteps)),
	}

	data := []string{
		row("Records", cli.FormatNumber(int64(a.table.Len()))),
		row("Files", fmt.Sprint(a.files)),
		row("Years", strings.Join(a.table.Years(), ", ")),
		row("Loaded", a.loadedAt.Format(time.DateTime)+fmt.Sprintf(" (%.1fs)", a.loadTime.Seconds())),
	}
	if a.coerced > 0 {
		data = append(data, warnStyle.Render(fmt.Sprintf("%d non-numeric count cells were read as numbers", a.coerced)))
	}

	return components.ContentCard("Settings", b.String(), cw) + "\n" +
		components.ContentCard("Forecast model", strings.Join(modelRows, "\n"), cw) + "\n" +
		components.ContentCard("Dataset", strings.Join(data, "\n"), cw)
}

func beforeRangeLabel(policy string) string {
	if policy == config.BeforeRangeClamp {
		return "project the first month"
	}
	return "show N/A"
}
