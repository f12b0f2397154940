package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sampleTable() *pipeline.Table {
	var rs []model.Record
	for m := time.January; m <= time.December; m++ {
		r := model.Record{
			Station: "Peñón",
			Year:    "2021",
			Month:   m,
			Date:    model.FirstOfMonth(2021, m),
		}
		for _, c := range catalog.All() {
			r.Counts[c] = float64(1000*(int(c)+1) + int(m))
		}
		rs = append(rs, r)
	}
	return pipeline.NewTable(rs)
}

type fixedForecaster struct{ result model.Forecast }

func (f fixedForecaster) Forecast(_ *pipeline.Table, target model.ForecastTarget) model.Forecast {
	r := f.result
	r.Target = target
	return r
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic), "%s is not a PNG", path)
}

func TestWriteXLSX(t *testing.T) {
	tbl := sampleTable()
	cats := []catalog.Category{catalog.Autos, catalog.Autobus2}
	view := pipeline.TableView(tbl, "2021", cats)
	totals := pipeline.TotalsByYear(tbl, "2021")
	ex, err := pipeline.Extremes(tbl, "2021")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, WriteXLSX(path, view, totals, &ex))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTable, SheetTotals}, f.GetSheetList())

	rows, err := f.GetRows(SheetTable)
	require.NoError(t, err)
	require.Len(t, rows, 13)
	assert.Equal(t, []string{"AÑO", "MES", "Autos", "Autobús (2 ejes)"}, rows[0])
	assert.Equal(t, "ENERO", rows[1][1])

	raw, err := f.GetCellValue(SheetTable, "D2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "3001", raw)

	label, err := f.GetCellValue(SheetTotals, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Autos", label)

	total, err := f.GetCellValue(SheetTotals, "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(12*1000+78), total)

	maxLabel, err := f.GetCellValue(SheetTotals, "B18")
	require.NoError(t, err)
	assert.Equal(t, catalog.Triciclos.Label(), maxLabel)
}

func TestWriteXLSXWithoutExtremes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	view := pipeline.TableView(pipeline.NewTable(nil), "2030", catalog.Defaults())
	require.NoError(t, WriteXLSX(path, view, model.CategoryTotals{Year: "2030"}, nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestDistributionPNG(t *testing.T) {
	tbl := sampleTable()
	path := filepath.Join(t.TempDir(), "dist.png")
	require.NoError(t, DistributionPNG(path, pipeline.Distribution(tbl, "2021", catalog.All())))
	assertPNG(t, path)

	err := DistributionPNG(filepath.Join(t.TempDir(), "none.png"), model.Distribution{Year: "2021"})
	assert.True(t, errors.Is(err, ErrNothingToPlot))
}

func TestForecastPNG(t *testing.T) {
	tbl := sampleTable()
	series, err := pipeline.SeriesFor(tbl, catalog.Autos)
	require.NoError(t, err)
	dir := t.TempDir()

	projected := model.Forecast{
		Target: model.ForecastTarget{Category: catalog.Autos, Year: 2022, Month: time.February},
		Kind:   model.ForecastProjected,
		Value:  1010,
		Steps:  2,
		Path: []model.ForecastPoint{
			{Date: model.FirstOfMonth(2022, time.January), Value: 1008, Lower: 990, Upper: 1030},
			{Date: model.FirstOfMonth(2022, time.February), Value: 1010, Lower: 980, Upper: 1040},
		},
	}
	require.NoError(t, ForecastPNG(filepath.Join(dir, "proj.png"), series, projected))
	assertPNG(t, filepath.Join(dir, "proj.png"))

	actual := model.Forecast{
		Target: model.ForecastTarget{Category: catalog.Autos, Year: 2021, Month: time.June},
		Kind:   model.ForecastActual,
		Value:  1006,
	}
	require.NoError(t, ForecastPNG(filepath.Join(dir, "actual.png"), series, actual))

	unavailable := model.Forecast{Kind: model.ForecastUnavailable}
	require.NoError(t, ForecastPNG(filepath.Join(dir, "na.png"), series, unavailable))

	err = ForecastPNG(filepath.Join(dir, "empty.png"), model.Series{}, actual)
	assert.True(t, errors.Is(err, ErrNothingToPlot))
}

func TestRun(t *testing.T) {
	tbl := sampleTable()
	dir := filepath.Join(t.TempDir(), "out")
	sel := pipeline.DefaultSelection(tbl)
	sel.Year, sel.Month = 2021, time.March

	paths, err := Run(context.Background(), Request{
		Dir:        dir,
		Table:      tbl,
		Selection:  sel,
		Forecaster: fixedForecaster{model.Forecast{Kind: model.ForecastActual, Value: 1003}},
		XLSX:       true,
		PNG:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "aforos-2021.xlsx"),
		filepath.Join(dir, "distribucion-2021.png"),
		filepath.Join(dir, "pronostico-Autos.png"),
	}, paths)
	for _, p := range paths[1:] {
		assertPNG(t, p)
	}
}

func TestRunGappedSeriesWritesPlaceholder(t *testing.T) {
	var rs []model.Record
	for _, m := range []time.Month{time.January, time.March} {
		r := model.Record{Year: "2021", Month: m, Date: model.FirstOfMonth(2021, m)}
		r.Counts[catalog.Autos] = 100
		rs = append(rs, r)
	}
	tbl := pipeline.NewTable(rs)
	dir := t.TempDir()
	log := logging.NewMockLogger()

	paths, err := Run(context.Background(), Request{
		Dir:        dir,
		Table:      tbl,
		Selection:  pipeline.DefaultSelection(tbl),
		Forecaster: fixedForecaster{model.Forecast{Kind: model.ForecastActual, Value: 100}},
		XLSX:       true,
		PNG:        true,
		Logger:     log,
	})
	require.NoError(t, err, "a failed chart degrades only that chart")
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "aforos-2021.xlsx"), paths[0])
	for _, p := range paths[1:] {
		assertPNG(t, p)
	}
	require.NotEmpty(t, log.Entries())
	assert.ErrorIs(t, log.Entries()[0].Error, pipeline.ErrSeriesGap)
}

func TestRunEmptyDistributionWritesPlaceholder(t *testing.T) {
	tbl := sampleTable()
	sel := pipeline.DefaultSelection(tbl)
	sel.Categories = nil

	paths, err := Run(context.Background(), Request{Dir: t.TempDir(), Table: tbl, Selection: sel, PNG: true})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assertPNG(t, paths[0])
}

func TestErrorPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "err.png")
	require.NoError(t, ErrorPNG(path, "Pronóstico para Autos", errors.New("series is not monthly contiguous")))
	assertPNG(t, path)
}

func TestRunNothingRequested(t *testing.T) {
	paths, err := Run(context.Background(), Request{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Request{
		Dir:       t.TempDir(),
		Table:     sampleTable(),
		Selection: pipeline.DefaultSelection(sampleTable()),
		XLSX:      true,
	})
	assert.ErrorIs(t, err, context.Canceled)
}
