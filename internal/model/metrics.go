package model

import (
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
)

// CategoryTotal is one category's summed count.
type CategoryTotal struct {
	Category catalog.Category `json:"category"`
	Label    string           `json:"label"`
	Value    float64          `json:"value"`
}

// CategoryTotals holds per-category sums in catalog order.
type CategoryTotals struct {
	Year   string          `json:"year"`
	Totals []CategoryTotal `json:"totals"`
}

// Get returns the total for c, or 0 when c is not present.
func (ct CategoryTotals) Get(c catalog.Category) float64 {
	for _, t := range ct.Totals {
		if t.Category == c {
			return t.Value
		}
	}
	return 0
}

// Sum returns the grand total across all categories.
func (ct CategoryTotals) Sum() float64 {
	var s float64
	for _, t := range ct.Totals {
		s += t.Value
	}
	return s
}

// Point is one monthly observation.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a gap-free monthly sequence for one category.
type Series struct {
	Category catalog.Category `json:"category"`
	Points   []Point          `json:"points"`
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Points) }

// Values returns the observation values in date order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// First returns the earliest observation date.
func (s Series) First() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Date
}

// Last returns the latest observation date.
func (s Series) Last() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// Lookup returns the value stored for date, if any. Monthly spacing lets this
// index directly instead of scanning.
func (s Series) Lookup(date time.Time) (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	idx := MonthsBetween(s.First(), date)
	if idx < 0 || idx >= len(s.Points) {
		return 0, false
	}
	p := s.Points[idx]
	if !p.Date.Equal(date) {
		return 0, false
	}
	return p.Value, true
}

// Extremes names the busiest and quietest categories for a year.
type Extremes struct {
	Year string        `json:"year"`
	Max  CategoryTotal `json:"max"`
	Min  CategoryTotal `json:"min"`
}

// TableRow is one displayed row of the filtered table.
type TableRow struct {
	Year      string     `json:"year"`
	Month     time.Month `json:"month"`
	MonthName string     `json:"month_name"`
	Station   string     `json:"station,omitempty"`
	Values    []float64  `json:"values"`
}

// TableView is the filtered table for one year and a category subset.
type TableView struct {
	Year       string             `json:"year"`
	Categories []catalog.Category `json:"categories"`
	Headers    []string           `json:"headers"`
	Rows       []TableRow         `json:"rows"`
}

// Bar is one bar of the distribution chart.
type Bar struct {
	Category catalog.Category `json:"category"`
	Label    string           `json:"label"`
	Value    float64          `json:"value"`
}

// Distribution is the per-category breakdown for one year.
type Distribution struct {
	Year string `json:"year"`
	Bars []Bar  `json:"bars"`
}

// Max returns the tallest bar value.
func (d Distribution) Max() float64 {
	var m float64
	for _, b := range d.Bars {
		if b.Value > m {
			m = b.Value
		}
	}
	return m
}
