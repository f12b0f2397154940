package forecast

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioValues is one year of AUTOS counts, January to December 2021.
var scenarioValues = []float64{100, 120, 130, 125, 140, 150, 160, 155, 145, 130, 110, 90}

func tableOf(year int, month time.Month, c catalog.Category, values ...float64) *pipeline.Table {
	var rs []model.Record
	d := model.FirstOfMonth(year, month)
	for _, v := range values {
		r := model.Record{Station: "A", Year: strconv.Itoa(d.Year()), Month: d.Month(), Date: d}
		r.Counts[c] = v
		rs = append(rs, r)
		d = d.AddDate(0, 1, 0)
	}
	return pipeline.NewTable(rs)
}

func target(year int, month time.Month) model.ForecastTarget {
	return model.ForecastTarget{Category: catalog.Autos, Year: year, Month: month}
}

func TestForecastScenario(t *testing.T) {
	tbl := tableOf(2021, time.January, catalog.Autos, scenarioValues...)
	f := New(DefaultSettings(), nil)

	actual := f.Forecast(tbl, target(2021, time.June))
	assert.Equal(t, model.ForecastActual, actual.Kind)
	assert.Equal(t, 150.0, actual.Value)
	assert.Equal(t, 0, actual.Steps)
	assert.Equal(t, actual, f.Forecast(tbl, target(2021, time.June)), "idempotent")

	proj := f.Forecast(tbl, target(2022, time.March))
	require.Equal(t, model.ForecastProjected, proj.Kind, proj.Reason)
	assert.Equal(t, 3, proj.Steps)
	assert.GreaterOrEqual(t, proj.Value, 0.0)
	assert.GreaterOrEqual(t, proj.Lower, 0.0)
	assert.GreaterOrEqual(t, proj.Upper, proj.Value)
	require.Len(t, proj.Path, 3)
	assert.Equal(t, model.FirstOfMonth(2022, time.January), proj.Path[0].Date)
	assert.Equal(t, model.FirstOfMonth(2022, time.March), proj.Path[2].Date)
	assert.Equal(t, proj.Path[2].Value, proj.Value)
	assert.False(t, proj.Clamped)
}

func TestForecastNeverNegative(t *testing.T) {
	// A collapsing series drives an unclipped projection below zero.
	tbl := tableOf(2020, time.January, catalog.Motos,
		900, 800, 700, 600, 500, 400, 300, 200, 100, 50, 20, 5,
		4, 3, 2, 1, 0, 0, 0, 0, 0, 0, 0, 0)
	f := New(DefaultSettings(), nil)

	for months := 1; months <= 36; months += 5 {
		d := model.FirstOfMonth(2021, time.December).AddDate(0, months, 0)
		res := f.Forecast(tbl, model.ForecastTarget{Category: catalog.Motos, Year: d.Year(), Month: d.Month()})
		if !res.Available() {
			continue
		}
		assert.GreaterOrEqual(t, res.Value, 0.0)
		assert.GreaterOrEqual(t, res.Lower, 0.0)
		for _, p := range res.Path {
			assert.GreaterOrEqual(t, p.Value, 0.0)
			assert.GreaterOrEqual(t, p.Lower, 0.0)
		}
	}
}

func TestForecastBeforeRange(t *testing.T) {
	tbl := tableOf(2021, time.January, catalog.Autos, scenarioValues...)

	reject := New(DefaultSettings(), nil).Forecast(tbl, target(2020, time.June))
	assert.Equal(t, model.ForecastUnavailable, reject.Kind)
	assert.Contains(t, reject.Reason, ErrTargetBeforeSeries.Error())

	s := DefaultSettings()
	s.BeforeRange = config.BeforeRangeClamp
	clamped := New(s, nil).Forecast(tbl, target(2020, time.June))
	require.Equal(t, model.ForecastProjected, clamped.Kind, clamped.Reason)
	assert.True(t, clamped.Clamped)
	assert.Equal(t, 1, clamped.Steps)
	assert.Equal(t, model.FirstOfMonth(2022, time.January), clamped.Path[0].Date)
}

func TestForecastHorizon(t *testing.T) {
	tbl := tableOf(2021, time.January, catalog.Autos, scenarioValues...)
	s := DefaultSettings()
	s.MaxSteps = 6

	res := New(s, nil).Forecast(tbl, target(2022, time.July))
	assert.Equal(t, model.ForecastUnavailable, res.Kind)
	assert.Contains(t, res.Reason, ErrHorizon.Error())

	res = New(s, nil).Forecast(tbl, target(2022, time.June))
	assert.Equal(t, model.ForecastProjected, res.Kind)
}

func TestForecastUnavailableCases(t *testing.T) {
	f := New(DefaultSettings(), nil)
	full := tableOf(2021, time.January, catalog.Autos, scenarioValues...)

	tests := []struct {
		name   string
		table  *pipeline.Table
		target model.ForecastTarget
		reason string
	}{
		{"empty table", pipeline.NewTable(nil), target(2022, 1), pipeline.ErrEmptySeries.Error()},
		{"too short", tableOf(2021, time.January, catalog.Autos, 5, 6), target(2022, 1), ErrTooShort.Error()},
		{"month out of range", full, target(2022, 13), ErrInvalidTarget.Error()},
		{"year out of range", full, target(0, 1), ErrInvalidTarget.Error()},
		{"bad category", full, model.ForecastTarget{Category: catalog.Category(77), Year: 2022, Month: 1}, ErrInvalidTarget.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Forecast(tt.table, tt.target)
			assert.Equal(t, model.ForecastUnavailable, res.Kind)
			assert.False(t, res.Available())
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
}

func TestForecastGapIsUnavailable(t *testing.T) {
	rs := []model.Record{
		{Year: "2021", Month: time.January, Date: model.FirstOfMonth(2021, time.January)},
		{Year: "2021", Month: time.March, Date: model.FirstOfMonth(2021, time.March)},
	}
	res := New(DefaultSettings(), nil).Forecast(pipeline.NewTable(rs), target(2021, time.June))
	assert.Equal(t, model.ForecastUnavailable, res.Kind)
	assert.Contains(t, res.Reason, pipeline.ErrSeriesGap.Error())
}

func TestForecastConstantSeries(t *testing.T) {
	tbl := tableOf(2021, time.January, catalog.Autos, 500, 500, 500, 500, 500, 500)
	res := New(DefaultSettings(), nil).Forecast(tbl, target(2021, time.October))
	require.Equal(t, model.ForecastProjected, res.Kind)
	assert.Equal(t, 500.0, res.Value)
	assert.Equal(t, res.Lower, res.Upper)
}

func TestForecastLogsAndObserves(t *testing.T) {
	log := logging.NewMockLogger()
	var mu sync.Mutex
	var seen []model.ForecastKind
	f := New(DefaultSettings(), log).WithObserver(func(r model.Forecast, _ time.Duration) {
		mu.Lock()
		seen = append(seen, r.Kind)
		mu.Unlock()
	})
	tbl := tableOf(2021, time.January, catalog.Autos, scenarioValues...)

	f.Forecast(tbl, target(2021, time.March))
	f.Forecast(tbl, target(2022, time.February))
	f.Forecast(tbl, target(2019, time.February))

	assert.Equal(t, []model.ForecastKind{model.ForecastActual, model.ForecastProjected, model.ForecastUnavailable}, seen)
	assert.True(t, log.HasEntry("ERROR", "forecast unavailable"))
	assert.True(t, log.HasEntry("DEBUG", "forecast projected"))
}

func TestForecastConcurrentUse(t *testing.T) {
	tbl := tableOf(2021, time.January, catalog.Autos, scenarioValues...)
	f := New(DefaultSettings(), nil)
	want := f.Forecast(tbl, target(2022, time.May))

	var wg sync.WaitGroup
	results := make([]model.Forecast, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.Forecast(tbl, target(2022, time.May))
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestSettingsFromConfig(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, DefaultOrder(), s.Order)
	assert.Equal(t, 0.95, s.Confidence)
	assert.Equal(t, 120, s.MaxSteps)
	assert.Equal(t, 3, s.MinObservations)
	assert.Equal(t, config.BeforeRangeReject, s.BeforeRange)
}
