package model

import (
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
)

// ForecastKind tags a forecast result.
type ForecastKind string

const (
	ForecastActual      ForecastKind = "actual"
	ForecastProjected   ForecastKind = "projected"
	ForecastUnavailable ForecastKind = "unavailable"
)

// ForecastTarget identifies the requested point.
type ForecastTarget struct {
	Category catalog.Category `json:"category"`
	Year     int              `json:"year"`
	Month    time.Month       `json:"month"`
}

// Date returns the target's first-of-month date.
func (t ForecastTarget) Date() time.Time {
	return FirstOfMonth(t.Year, t.Month)
}

// ForecastPoint is one projected month with its interval.
type ForecastPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// Forecast is the outcome of a forecast request. Value and Lower are never negative.
type Forecast struct {
	Target  ForecastTarget  `json:"target"`
	Kind    ForecastKind    `json:"kind"`
	Value   float64         `json:"value"`
	Steps   int             `json:"steps"`
	Lower   float64         `json:"lower,omitempty"`
	Upper   float64         `json:"upper,omitempty"`
	Clamped bool            `json:"clamped,omitempty"`
	Path    []ForecastPoint `json:"path,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// Available reports whether the result carries a value.
func (f Forecast) Available() bool {
	return f.Kind == ForecastActual || f.Kind == ForecastProjected
}
