package forecast

import (
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"
)

// Request errors. They end up as the Reason of an unavailable result.
var (
	ErrTargetBeforeSeries = errors.New("target precedes the first observation")
	ErrHorizon            = errors.New("target beyond forecast horizon")
	ErrInvalidTarget      = errors.New("invalid forecast target")
)

// Settings tunes the forecaster.
type Settings struct {
	Order           Order
	Confidence      float64
	MaxSteps        int
	MinObservations int
	BeforeRange     string // config.BeforeRangeReject or config.BeforeRangeClamp
}

// DefaultSettings returns SARIMA(1,0,1)(1,0,1)[12] with a 95% interval.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.DefaultConfig().Forecast)
}

// SettingsFromConfig converts the [forecast] config section.
func SettingsFromConfig(fc config.ForecastConfig) Settings {
	return Settings{
		Order: Order{
			P:  fc.Order[0],
			Q:  fc.Order[1],
			SP: fc.SeasonalOrder[0],
			SQ: fc.SeasonalOrder[1],
			S:  fc.Period,
		},
		Confidence:      fc.Confidence,
		MaxSteps:        fc.MaxSteps,
		MinObservations: fc.MinObservations,
		BeforeRange:     fc.BeforeRange,
	}
}

// Observer is told about every result. fit is zero unless a model was fitted.
type Observer func(result model.Forecast, fit time.Duration)

// Forecaster answers forecast requests against a table. It is safe for
// concurrent use.
type Forecaster struct {
	settings Settings
	log      logging.Logger
	observer Observer
}

// New creates a Forecaster. A nil logger discards output.
func New(settings Settings, log logging.Logger) *Forecaster {
	if log == nil {
		log = logging.Nop()
	}
	return &Forecaster{settings: settings, log: log}
}

// WithObserver returns a copy of f that reports results to obs.
func (f *Forecaster) WithObserver(obs Observer) *Forecaster {
	cp := *f
	cp.observer = obs
	return &cp
}

// Settings returns the forecaster's settings.
func (f *Forecaster) Settings() Settings { return f.settings }

// Forecast builds the category series from t and forecasts the target.
func (f *Forecaster) Forecast(t *pipeline.Table, target model.ForecastTarget) model.Forecast {
	if !target.Category.Valid() {
		return f.finish(unavailable(target, fmt.Errorf("%w: category %d", ErrInvalidTarget, int(target.Category))), 0)
	}
	series, err := pipeline.SeriesFor(t, target.Category)
	if err != nil {
		return f.finish(unavailable(target, err), 0)
	}
	return f.ForecastSeries(series, target)
}

// ForecastSeries returns the stored value when the target month is in the
// series, and a projection from a freshly fitted model otherwise. Failures,
// panics included, produce an unavailable result.
func (f *Forecaster) ForecastSeries(series model.Series, target model.ForecastTarget) (result model.Forecast) {
	var fitTime time.Duration
	defer func() {
		if r := recover(); r != nil {
			result = unavailable(target, fmt.Errorf("%w: panic: %v", ErrFit, r))
		}
		result = f.finish(result, fitTime)
	}()

	if target.Year < 1 || target.Year > 9999 || target.Month < time.January || target.Month > time.December {
		return unavailable(target, fmt.Errorf("%w: %04d-%02d", ErrInvalidTarget, target.Year, int(target.Month)))
	}
	date := target.Date()

	if v, ok := series.Lookup(date); ok {
		return model.Forecast{Target: target, Kind: model.ForecastActual, Value: v}
	}

	if series.Len() < max(f.settings.MinObservations, 2) {
		return unavailable(target, fmt.Errorf("%w: %d observations", ErrTooShort, series.Len()))
	}

	steps := model.MonthsBetween(series.Last(), date)
	clamped := false
	if steps < 1 {
		if f.settings.BeforeRange != config.BeforeRangeClamp {
			return unavailable(target, fmt.Errorf("%w: %s before %s", ErrTargetBeforeSeries,
				date.Format("2006-01"), series.First().Format("2006-01")))
		}
		steps, clamped = 1, true
	}
	if f.settings.MaxSteps > 0 && steps > f.settings.MaxSteps {
		return unavailable(target, fmt.Errorf("%w: %d steps, limit %d", ErrHorizon, steps, f.settings.MaxSteps))
	}

	start := time.Now()
	m, err := Fit(series.Values(), f.settings.Order)
	if err != nil {
		fitTime = time.Since(start)
		return unavailable(target, err)
	}
	proj, err := m.Forecast(steps, f.settings.Confidence)
	fitTime = time.Since(start)
	if err != nil {
		return unavailable(target, err)
	}

	path := make([]model.ForecastPoint, steps)
	last := series.Last()
	for h := 0; h < steps; h++ {
		path[h] = model.ForecastPoint{
			Date:  last.AddDate(0, h+1, 0),
			Value: clipZero(proj.Mean[h]),
			Lower: clipZero(proj.Lower[h]),
			Upper: clipZero(proj.Upper[h]),
		}
	}
	end := path[steps-1]
	return model.Forecast{
		Target:  target,
		Kind:    model.ForecastProjected,
		Value:   end.Value,
		Steps:   steps,
		Lower:   end.Lower,
		Upper:   end.Upper,
		Clamped: clamped,
		Path:    path,
	}
}

func (f *Forecaster) finish(result model.Forecast, fit time.Duration) model.Forecast {
	fields := []logging.Field{
		logging.F(logging.FieldCategory, result.Target.Category.String()),
		logging.F(logging.FieldTarget, fmt.Sprintf("%04d-%02d", result.Target.Year, int(result.Target.Month))),
	}
	switch result.Kind {
	case model.ForecastUnavailable:
		f.log.Error("forecast unavailable", append(fields, logging.F("reason", result.Reason))...)
	case model.ForecastProjected:
		f.log.Debug("forecast projected", append(fields,
			logging.F(logging.FieldSteps, result.Steps),
			logging.F(logging.FieldDuration, fit.String()))...)
	}
	if f.observer != nil {
		f.observer(result, fit)
	}
	return result
}

func unavailable(target model.ForecastTarget, err error) model.Forecast {
	return model.Forecast{Target: target, Kind: model.ForecastUnavailable, Reason: err.Error()}
}

func clipZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
