package tui

import (
	"strconv"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/charmbracelet/huh"
)

// projectionYears is how many years past the data the forecast year
// selector offers.
const projectionYears = 2

// filterValues backs the filter form. huh writes through the pointers, so the
// values live outside the form.
type filterValues struct {
	Category   catalog.Category
	Year       int
	Month      time.Month
	DistYear   string
	Categories []catalog.Category
}

func filterValuesFrom(sel pipeline.Selection) filterValues {
	return filterValues{
		Category:   sel.Category,
		Year:       sel.Year,
		Month:      sel.Month,
		DistYear:   sel.DistributionYear,
		Categories: append([]catalog.Category(nil), sel.Categories...),
	}
}

func (v filterValues) selection() pipeline.Selection {
	return pipeline.Selection{
		Category:         v.Category,
		Year:             v.Year,
		Month:            v.Month,
		DistributionYear: v.DistYear,
		Categories:       append([]catalog.Category(nil), v.Categories...),
	}
}

// forecastYears lists the dataset years followed by the years a projection
// can reach.
func forecastYears(t *pipeline.Table) []int {
	var out []int
	for _, y := range t.Years() {
		if n, err := strconv.Atoi(y); err == nil {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return out
	}
	last := out[len(out)-1]
	for i := 1; i <= projectionYears; i++ {
		out = append(out, last+i)
	}
	return out
}

func newFilterForm(t *pipeline.Table, v *filterValues) *huh.Form {
	categoryOpts := make([]huh.Option[catalog.Category], 0, catalog.Count)
	for _, c := range catalog.All() {
		categoryOpts = append(categoryOpts, huh.NewOption(c.Label(), c))
	}

	var yearOpts []huh.Option[int]
	for _, y := range forecastYears(t) {
		yearOpts = append(yearOpts, huh.NewOption(strconv.Itoa(y), y))
	}

	monthOpts := make([]huh.Option[time.Month], 12)
	for m := time.January; m <= time.December; m++ {
		monthOpts[m-1] = huh.NewOption(catalog.MonthDisplayName(m), m)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[catalog.Category]().
				Title("Tipo de vehículo").
				Description("Category of the forecast chart").
				Options(categoryOpts...).
				Value(&v.Category),
			huh.NewSelect[int]().
				Title("Año").
				Options(yearOpts...).
				Value(&v.Year),
			huh.NewSelect[time.Month]().
				Title("Mes").
				Options(monthOpts...).
				Height(8).
				Value(&v.Month),
		).Title("Pronóstico"),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Año").
				Description("Year of the distribution chart and the table").
				Options(huh.NewOptions(t.Years()...)...).
				Value(&v.DistYear),
			huh.NewMultiSelect[catalog.Category]().
				Title("Tipos de vehículo").
				Options(categoryOpts...).
				Height(10).
				Value(&v.Categories),
		).Title("Distribución"),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(true)
}
