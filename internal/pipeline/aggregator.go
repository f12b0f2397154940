package pipeline

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"
)

// Aggregation errors.
var (
	ErrEmptySeries = errors.New("no observations")
	ErrSeriesGap   = errors.New("series is not monthly contiguous")
	ErrUnknownYear = errors.New("year not present in dataset")
)

// TotalsByYear sums every category over the rows of one year, in catalog order.
// An absent year yields all-zero totals.
func TotalsByYear(t *Table, year string) model.CategoryTotals {
	var sums [catalog.Count]float64
	t.Each(func(r *model.Record) {
		if r.Year != year {
			return
		}
		for i, v := range r.Counts {
			sums[i] += v
		}
	})

	out := model.CategoryTotals{Year: year, Totals: make([]model.CategoryTotal, catalog.Count)}
	for _, c := range catalog.All() {
		out.Totals[c] = model.CategoryTotal{Category: c, Label: c.Label(), Value: sums[c]}
	}
	return out
}

// TotalFor sums one category over the rows of one year.
func TotalFor(t *Table, year string, c catalog.Category) float64 {
	mustValid(c)
	var sum float64
	t.Each(func(r *model.Record) {
		if r.Year == year {
			sum += r.Counts[c]
		}
	})
	return sum
}

// SeriesFor sums one category per date across the whole dataset. Rows from
// different stations on the same date are added together. The result is
// ascending and exactly one month apart; a missing month is ErrSeriesGap.
func SeriesFor(t *Table, c catalog.Category) (model.Series, error) {
	mustValid(c)
	series := model.Series{Category: c}
	if t.Len() == 0 {
		return series, fmt.Errorf("%s: %w", c.Code(), ErrEmptySeries)
	}

	// Records are date ordered, so equal dates are adjacent.
	t.Each(func(r *model.Record) {
		n := len(series.Points)
		if n > 0 && series.Points[n-1].Date.Equal(r.Date) {
			series.Points[n-1].Value += r.Counts[c]
			return
		}
		series.Points = append(series.Points, model.Point{Date: r.Date, Value: r.Counts[c]})
	})

	if err := checkMonthly(series.Points); err != nil {
		return series, fmt.Errorf("%s: %w", c.Code(), err)
	}
	return series, nil
}

func checkMonthly(points []model.Point) error {
	for i := 1; i < len(points); i++ {
		if d := model.MonthsBetween(points[i-1].Date, points[i].Date); d != 1 {
			return fmt.Errorf("%w: %s to %s", ErrSeriesGap,
				points[i-1].Date.Format("2006-01"), points[i].Date.Format("2006-01"))
		}
	}
	return nil
}

// Distribution returns one bar per requested category for a year, in the
// order requested.
func Distribution(t *Table, year string, categories []catalog.Category) model.Distribution {
	totals := TotalsByYear(t, year)
	d := model.Distribution{Year: year, Bars: make([]model.Bar, 0, len(categories))}
	for _, c := range categories {
		mustValid(c)
		d.Bars = append(d.Bars, model.Bar{Category: c, Label: c.Label(), Value: totals.Get(c)})
	}
	return d
}

// MonthlyTotals sums one category per month within a year. Months without
// rows are omitted.
func MonthlyTotals(t *Table, year string, c catalog.Category) []model.Point {
	mustValid(c)
	var out []model.Point
	t.Each(func(r *model.Record) {
		if r.Year != year {
			return
		}
		if n := len(out); n > 0 && out[n-1].Date.Equal(r.Date) {
			out[n-1].Value += r.Counts[c]
			return
		}
		out = append(out, model.Point{Date: r.Date, Value: r.Counts[c]})
	})
	return out
}

// mustValid panics on a category outside the catalog. Categories from user
// input are validated with catalog.Parse before reaching here.
func mustValid(c catalog.Category) {
	if !c.Valid() {
		panic(fmt.Sprintf("pipeline: category %d outside catalog", int(c)))
	}
}
