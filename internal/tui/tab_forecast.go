package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"
	"github.com/theirongolddev/aforos/internal/tui/components"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderForecastTab(cw int) string {
	f := a.dash.Forecast
	title := "Pronóstico para " + a.sel.Category.Label()

	var b strings.Builder
	if !f.Available() {
		b.WriteString(components.NoticeCard(title,
			cli.FormatMonth(f.Target.Date())+": "+pipeline.Unavailable+" ("+f.Reason+")", cw))
	} else {
		b.WriteString(components.ContentCard(title, a.forecastDetails(components.CardInnerWidth(cw)), cw))
	}
	b.WriteString("\n")
	b.WriteString(a.renderForecastChart(cw))
	return b.String()
}

func (a App) forecastDetails(inner int) string {
	t := theme.Active
	f := a.dash.Forecast
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	noteStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)

	line := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-10s", label)) + valueStyle.Render(value)
	}

	lines := []string{
		line("Objetivo", cli.FormatMonth(f.Target.Date())),
		line("Resultado", a.dash.ForecastText),
	}
	if f.Kind == model.ForecastProjected {
		lines = append(lines,
			line("Pasos", strconv.Itoa(f.Steps)),
			line("Intervalo", cli.FormatCount(f.Lower)+" a "+cli.FormatCount(f.Upper)),
			labelStyle.Render(strings.Repeat(" ", 10))+
				components.IntervalBar(f.Lower, f.Value, f.Upper, min(inner-12, 40)),
		)
		if f.Clamped {
			lines = append(lines, noteStyle.Render("El objetivo precede la serie; se muestra el primer mes proyectado."))
		}
	}
	return strings.Join(lines, "\n")
}

// renderForecastChart draws the recent history and, for projections, the
// projected path in a second color.
func (a App) renderForecastChart(cw int) string {
	t := theme.Active
	d := a.dash
	title := "Serie y pronóstico"
	if d.History == nil {
		return components.NoticeCard(title, d.Errors[model.ViewHistory], cw)
	}

	var bars []components.Bar
	for _, p := range d.History.Points {
		bars = append(bars, components.Bar{Label: seriesLabel(p), Value: p.Value, Color: t.Blue})
	}
	legend := []components.Bar{{Label: "Historia", Color: t.Blue}}
	if d.Forecast.Kind == model.ForecastProjected {
		for _, p := range d.Forecast.Path {
			bars = append(bars, components.Bar{
				Label: seriesLabel(model.Point{Date: p.Date}),
				Value: p.Value,
				Color: t.Orange,
			})
		}
		legend = append(legend, components.Bar{Label: "Pronóstico", Color: t.Orange})
	}

	height := 10
	if a.height > 40 {
		height = 14
	}
	inner := components.CardInnerWidth(cw)
	body := components.BarChart(bars, inner, height) + "\n" + components.Legend(legend)
	return components.ContentCard(title, body, cw)
}
