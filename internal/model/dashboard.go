package model

// Dashboard holds every derived view for one filter selection. A view that
// failed carries its message in Errors under the view's name and leaves its
// value empty; the other views are unaffected.
type Dashboard struct {
	TotalAutos      string  `json:"total_autos"`
	TotalAutosValue float64 `json:"total_autos_value"`
	Frequency       string  `json:"frequency"`

	Forecast     Forecast `json:"forecast"`
	ForecastText string   `json:"forecast_text"`
	History      *Series  `json:"history,omitempty"`

	Distribution *Distribution `json:"distribution,omitempty"`
	Table        *TableView    `json:"table,omitempty"`

	Extremes *Extremes `json:"extremes,omitempty"`
	MaxText  string    `json:"max_text"`
	MinText  string    `json:"min_text"`

	Errors map[string]string `json:"errors,omitempty"`
}

// View names used as keys in Dashboard.Errors.
const (
	ViewForecast     = "forecast"
	ViewHistory      = "history"
	ViewDistribution = "distribution"
	ViewTable        = "table"
	ViewExtremes     = "extremes"
)

// Failed reports whether the named view failed.
func (d Dashboard) Failed(view string) bool {
	_, ok := d.Errors[view]
	return ok
}
