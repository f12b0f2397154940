package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"
)

// Frequency is the sampling interval shown on the dashboard.
const Frequency = "1 mes"

// Unavailable is shown in place of a value that could not be computed.
const Unavailable = "N/A"

// Forecaster produces a forecast for a target over a table. Implementations
// never panic and report failure as an unavailable result.
type Forecaster interface {
	Forecast(t *Table, target model.ForecastTarget) model.Forecast
}

// Selection is the filter state driving the dashboard.
type Selection struct {
	Category         catalog.Category   `json:"category"`
	Year             int                `json:"year"`
	Month            time.Month         `json:"month"`
	DistributionYear string             `json:"distribution_year"`
	Categories       []catalog.Category `json:"categories"`
}

// DefaultSelection picks the first entry of every list, the way the selectors
// start out: first category, first year, January, the first five categories.
func DefaultSelection(t *Table) Selection {
	sel := Selection{
		Category:   catalog.Autos,
		Month:      time.January,
		Categories: catalog.Defaults(),
	}
	if years := t.Years(); len(years) > 0 {
		sel.DistributionYear = years[0]
		sel.Year, _ = strconv.Atoi(years[0])
	}
	return sel
}

// Target returns the forecast target of the selection.
func (s Selection) Target() model.ForecastTarget {
	return model.ForecastTarget{Category: s.Category, Year: s.Year, Month: s.Month}
}

// BuildDashboard computes every view for sel. f may be nil, in which case the
// forecast view is unavailable.
func BuildDashboard(t *Table, sel Selection, f Forecaster) model.Dashboard {
	d := model.Dashboard{Frequency: Frequency}
	fail := func(view string, err error) {
		if d.Errors == nil {
			d.Errors = make(map[string]string)
		}
		d.Errors[view] = err.Error()
	}

	d.TotalAutosValue = TotalFor(t, sel.DistributionYear, catalog.Autos)
	d.TotalAutos = model.FormatCount(d.TotalAutosValue)

	if f != nil {
		d.Forecast = f.Forecast(t, sel.Target())
	} else {
		d.Forecast = model.Forecast{Target: sel.Target(), Kind: model.ForecastUnavailable, Reason: "no forecaster"}
	}
	d.ForecastText = ForecastText(d.Forecast)
	if !d.Forecast.Available() {
		fail(model.ViewForecast, errors.New(d.Forecast.Reason))
	}

	if s, err := SeriesFor(t, sel.Category); err != nil {
		fail(model.ViewHistory, err)
	} else {
		d.History = &s
	}

	dist := Distribution(t, sel.DistributionYear, sel.Categories)
	d.Distribution = &dist

	view := TableView(t, sel.DistributionYear, sel.Categories)
	d.Table = &view

	if ex, err := Extremes(t, sel.DistributionYear); err != nil {
		fail(model.ViewExtremes, err)
		d.MaxText = "Mayor movimiento: " + Unavailable
		d.MinText = "Menor movimiento: " + Unavailable
	} else {
		d.Extremes = &ex
		d.MaxText, d.MinText = ExtremesText(ex)
	}
	return d
}

// ForecastText renders a forecast the way the dashboard card shows it.
func ForecastText(f model.Forecast) string {
	switch f.Kind {
	case model.ForecastActual:
		return "Valor real: " + model.FormatCount(f.Value)
	case model.ForecastProjected:
		return "Pronóstico: " + model.FormatCount(f.Value)
	default:
		return Unavailable
	}
}

// ExtremesText renders the max and min lines of the statistics card.
func ExtremesText(e model.Extremes) (maxText, minText string) {
	maxText = fmt.Sprintf("Mayor movimiento: %s (%s)", e.Max.Label, model.FormatCount(e.Max.Value))
	minText = fmt.Sprintf("Menor movimiento: %s (%s)", e.Min.Label, model.FormatCount(e.Min.Value))
	return maxText, minText
}
