package pipeline

import (
	"fmt"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"
)

// Extremes returns the busiest and quietest categories of a year. Ties go to
// the category that comes first in catalog order.
func Extremes(t *Table, year string) (model.Extremes, error) {
	if !t.HasYear(year) {
		return model.Extremes{}, fmt.Errorf("%w: %q", ErrUnknownYear, year)
	}
	totals := TotalsByYear(t, year)

	maxIdx, minIdx := 0, 0
	for i, ct := range totals.Totals {
		if ct.Value > totals.Totals[maxIdx].Value {
			maxIdx = i
		}
		if ct.Value < totals.Totals[minIdx].Value {
			minIdx = i
		}
	}
	return model.Extremes{
		Year: year,
		Max:  totals.Totals[maxIdx],
		Min:  totals.Totals[minIdx],
	}, nil
}

// TableView returns the rows of one year restricted to the given categories.
// Rows run chronologically; rows sharing a month keep their input order.
func TableView(t *Table, year string, categories []catalog.Category) model.TableView {
	view := model.TableView{
		Year:       year,
		Categories: append([]catalog.Category(nil), categories...),
		Headers:    TableHeaders(categories),
	}
	for _, c := range categories {
		mustValid(c)
	}

	t.Each(func(r *model.Record) {
		if r.Year != year {
			return
		}
		row := model.TableRow{
			Year:      r.Year,
			Month:     r.Month,
			MonthName: catalog.MonthDisplayName(r.Month),
			Station:   r.Station,
			Values:    make([]float64, len(categories)),
		}
		for i, c := range categories {
			row.Values[i] = r.Counts[c]
		}
		view.Rows = append(view.Rows, row)
	})
	return view
}

// TableHeaders returns the display headers for a table view: year, month, then
// one label per category.
func TableHeaders(categories []catalog.Category) []string {
	headers := []string{"AÑO", "MES"}
	for _, c := range categories {
		headers = append(headers, c.Label())
	}
	return headers
}
