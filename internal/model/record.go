// Package model defines domain types for traffic counts and derived views.
package model

import (
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
)

// Record is one cleaned input row: one station's counts for one month.
type Record struct {
	Station string
	Kind    string
	Year    string // normalized year token, e.g. "2021"
	Month   time.Month
	Date    time.Time // first day of (Year, Month), UTC
	Counts  [catalog.Count]float64
	Source  string // file the row came from
}

// Count returns the record's value for c.
func (r Record) Count(c catalog.Category) float64 {
	return r.Counts[c]
}

// FirstOfMonth returns midnight UTC on the first day of the given month.
func FirstOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the number of whole calendar months from a to b.
// It is negative when b precedes a.
func MonthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
