// Package pipeline loads traffic-count files into an immutable table and
// derives the dashboard views from it.
package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/aforos/internal/model"
)

// Table is the cleaned dataset. It is never mutated after construction;
// loading a new input builds a new Table.
type Table struct {
	records []model.Record
	years   []string
	sources []string
	first   time.Time
	last    time.Time
}

// NewTable copies records and orders them by date. Rows sharing a date keep
// their input order.
func NewTable(records []model.Record) *Table {
	rs := make([]model.Record, len(records))
	copy(rs, records)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Date.Before(rs[j].Date) })

	t := &Table{records: rs}
	yearSet := make(map[string]struct{})
	srcSet := make(map[string]struct{})
	for _, r := range rs {
		if _, ok := yearSet[r.Year]; !ok {
			yearSet[r.Year] = struct{}{}
			t.years = append(t.years, r.Year)
		}
		if _, ok := srcSet[r.Source]; !ok && r.Source != "" {
			srcSet[r.Source] = struct{}{}
			t.sources = append(t.sources, r.Source)
		}
	}
	sort.Strings(t.years)
	sort.Strings(t.sources)
	if len(rs) > 0 {
		t.first = rs[0].Date
		t.last = rs[len(rs)-1].Date
	}
	return t
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Records returns a copy of the records in date order.
func (t *Table) Records() []model.Record {
	out := make([]model.Record, len(t.records))
	copy(out, t.records)
	return out
}

// Each calls fn for every record in date order. fn must not retain the pointer.
func (t *Table) Each(fn func(r *model.Record)) {
	for i := range t.records {
		fn(&t.records[i])
	}
}

// Years returns the distinct year tokens in ascending order.
func (t *Table) Years() []string {
	out := make([]string, len(t.years))
	copy(out, t.years)
	return out
}

// HasYear reports whether any record carries the year token.
func (t *Table) HasYear(year string) bool {
	i := sort.SearchStrings(t.years, year)
	return i < len(t.years) && t.years[i] == year
}

// LatestYear returns the last year token, or "" for an empty table.
func (t *Table) LatestYear() string {
	if len(t.years) == 0 {
		return ""
	}
	return t.years[len(t.years)-1]
}

// Span returns the first and last record dates.
func (t *Table) Span() (first, last time.Time) {
	return t.first, t.last
}

// Sources returns the distinct input files the records came from.
func (t *Table) Sources() []string {
	out := make([]string, len(t.sources))
	copy(out, t.sources)
	return out
}
