package tui

import (
	"strings"

	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"
	"github.com/theirongolddev/aforos/internal/tui/components"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderOverviewTab(cw int) string {
	var b strings.Builder

	// Row 1: headline metrics
	b.WriteString(components.MetricCardRow(a.overviewMetrics(), cw))
	b.WriteString("\n")

	// Row 2: distribution and statistics
	if a.isCompactLayout() {
		b.WriteString(a.renderDistributionCard(cw))
		b.WriteString("\n")
		b.WriteString(a.renderStatsCard(cw))
	} else {
		widths := components.LayoutRow(cw, 3)
		b.WriteString(components.CardRow([]string{
			a.renderDistributionCard(widths[0] + widths[1]),
			a.renderStatsCard(widths[2]),
		}))
	}
	b.WriteString("\n")

	// Row 3: monthly series of the forecast category
	b.WriteString(a.renderSeriesCard(cw))
	return b.String()
}

func (a App) overviewMetrics() []components.Metric {
	d := a.dash
	return []components.Metric{
		{Label: "Total Autos", Value: d.TotalAutos, Note: "año " + a.sel.DistributionYear},
		{Label: "Frecuencia", Value: d.Frequency, Note: "serie mensual"},
		{
			Label: "Pronóstico",
			Value: d.ForecastText,
			Note:  a.sel.Category.Label() + " · " + cli.FormatMonth(a.sel.Target().Date()),
			Warn:  !d.Forecast.Available(),
		},
	}
}

func (a App) renderDistributionCard(w int) string {
	title := "Distribución por tipo de vehículo " + a.sel.DistributionYear
	d := a.dash.Distribution
	if d == nil || len(d.Bars) == 0 {
		return components.NoticeCard(title, "Sin categorías seleccionadas", w)
	}
	return components.ContentCard(title,
		components.HorizontalBars(distributionBars(*d), components.CardInnerWidth(w)), w)
}

func (a App) renderStatsCard(w int) string {
	t := theme.Active
	d := a.dash
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	inner := components.CardInnerWidth(w)
	body := textStyle.Render(truncStr(d.MaxText, inner)) + "\n" +
		textStyle.Render(truncStr(d.MinText, inner))
	if d.Extremes != nil {
		total := 0.0
		if d.Distribution != nil {
			for _, bar := range d.Distribution.Bars {
				total += bar.Value
			}
		}
		body += "\n\n" + dimStyle.Render("Total "+d.Extremes.Year+": ") +
			textStyle.Render(cli.FormatCount(pipeline.TotalsByYear(a.table, d.Extremes.Year).Sum()))
		if total > 0 {
			body += "\n" + dimStyle.Render("Seleccionadas: ") + textStyle.Render(cli.FormatCount(total))
		}
	}
	return components.ContentCard("Estadísticas", body, w)
}

func (a App) renderSeriesCard(cw int) string {
	t := theme.Active
	d := a.dash
	title := "Serie mensual: " + a.sel.Category.Label()
	if d.History == nil {
		return components.NoticeCard(title, d.Errors[model.ViewHistory], cw)
	}

	inner := components.CardInnerWidth(cw)
	values := d.History.Values()
	if len(values) > inner {
		values = values[len(values)-inner:]
	}
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	span := cli.FormatMonth(d.History.First()) + " .. " + cli.FormatMonth(d.History.Last())
	return components.ContentCard(title,
		components.Sparkline(values, t.Blue)+"\n"+dimStyle.Render(span), cw)
}

// distributionBars colors each category by its catalog position, so a
// category keeps its color whatever the selection.
func distributionBars(dist model.Distribution) []components.Bar {
	t := theme.Active
	bars := make([]components.Bar, len(dist.Bars))
	for i, bar := range dist.Bars {
		bars[i] = components.Bar{
			Label: bar.Label,
			Value: bar.Value,
			Color: t.SeriesColor(int(bar.Category)),
		}
	}
	return bars
}

// seriesLabel marks January with the year and leaves other months blank.
func seriesLabel(p model.Point) string {
	if p.Date.Month() == 1 {
		return p.Date.Format("2006")
	}
	return ""
}
