package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/config"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"
	"github.com/theirongolddev/aforos/internal/source"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func init() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

// testRecords returns 2020 and 2021 for one station. AUTOS is 1000+10*m in
// 2020 and 100 more in 2021; MOTOS is the month number.
func testRecords() []model.Record {
	var out []model.Record
	for _, year := range []int{2020, 2021} {
		for m := time.January; m <= time.December; m++ {
			r := model.Record{
				Station: "Caseta Peñón",
				Kind:    "PLAZA",
				Year:    strconv.Itoa(year),
				Month:   m,
				Date:    model.FirstOfMonth(year, m),
			}
			r.Counts[catalog.Autos] = float64(1000 + 10*int(m) + 100*(year-2020))
			r.Counts[catalog.Motos] = float64(m)
			out = append(out, r)
		}
	}
	return out
}

func loadedApp(t *testing.T) App {
	t.Helper()
	a := NewApp(Options{Config: config.DefaultConfig()})
	a.width, a.height = 140, 45
	m, _ := a.Update(DataLoadedMsg{
		Result: &pipeline.LoadResult{Table: pipeline.NewTable(testRecords()), TotalFiles: 1, Rows: 24},
	})
	a = m.(App)
	require.True(t, a.loaded)
	return a
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func TestLoadedAppStartsWithConfiguredSelection(t *testing.T) {
	a := loadedApp(t)

	assert.Equal(t, "2020", a.sel.DistributionYear)
	assert.Equal(t, 2020, a.sel.Year)
	assert.Equal(t, time.January, a.sel.Month)
	assert.Equal(t, catalog.Autos, a.sel.Category)
	assert.Len(t, a.sel.Categories, 5)

	assert.Equal(t, "12,780", a.dash.TotalAutos)
	assert.Equal(t, "Valor real: 1,010", a.dash.ForecastText)
	require.NotNil(t, a.dash.Table)
	assert.Len(t, a.dash.Table.Rows, 12)
}

func TestOverviewView(t *testing.T) {
	a := loadedApp(t)
	out := ansi.Strip(a.View())

	assert.Contains(t, out, "Total Autos")
	assert.Contains(t, out, "12,780")
	assert.Contains(t, out, "1 mes")
	assert.Contains(t, out, "Valor real: 1,010")
	assert.Contains(t, out, "Mayor movimiento: Autos (12,780)")
	assert.Contains(t, out, "Distribución por tipo de vehículo 2020")

	lines := strings.Split(a.View(), "\n")
	assert.Len(t, lines, a.height)
}

func TestTabNavigation(t *testing.T) {
	a := loadedApp(t)

	a = press(t, a, "f")
	assert.Equal(t, tabForecast, a.activeTab)
	a = press(t, a, "right")
	assert.Equal(t, tabTable, a.activeTab)
	a = press(t, a, "x")
	assert.Equal(t, tabSettings, a.activeTab)
	a = press(t, a, "right")
	assert.Equal(t, tabOverview, a.activeTab)
	a = press(t, a, "left")
	assert.Equal(t, tabSettings, a.activeTab)
}

func TestHelpOverlayClosesOnAnyKey(t *testing.T) {
	a := press(t, loadedApp(t), "?")
	require.True(t, a.showHelp)
	assert.Contains(t, ansi.Strip(a.View()), "Keyboard Shortcuts")

	a = press(t, a, "f")
	assert.False(t, a.showHelp)
	assert.Equal(t, tabOverview, a.activeTab, "closing key does not switch tabs")
}

func TestMouseClickSelectsTab(t *testing.T) {
	a := loadedApp(t)
	x := tabWidthForTest(0, 0) + 1 + tabWidthForTest(1, 0)/2

	m, _ := a.Update(tea.MouseMsg{X: x, Y: 0, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Equal(t, tabForecast, m.(App).activeTab)
}

func TestForecastTabShowsProjection(t *testing.T) {
	a := loadedApp(t)
	a.sel.Year = 2022
	a.sel.Month = time.March
	a.recompute()

	f := a.dash.Forecast
	require.Equal(t, model.ForecastProjected, f.Kind, f.Reason)
	assert.Equal(t, 3, f.Steps)

	a = press(t, a, "f")
	out := ansi.Strip(a.View())
	assert.Contains(t, out, "Pronóstico para Autos")
	assert.Contains(t, out, "Pasos")
	assert.Contains(t, out, "Historia")
	assert.Contains(t, out, "2022")
}

func TestForecastTabShowsUnavailableReason(t *testing.T) {
	a := loadedApp(t)
	a.sel.Year = 2019
	a.recompute()
	require.False(t, a.dash.Forecast.Available())

	a = press(t, a, "f")
	out := ansi.Strip(a.View())
	assert.Contains(t, out, "N/A")
	assert.Contains(t, a.renderOverviewTab(a.contentWidth()), "N/A")
}

func TestTableTabScrolls(t *testing.T) {
	a := press(t, loadedApp(t), "t")
	assert.Contains(t, ansi.Strip(a.View()), "ENERO")
	assert.Equal(t, 0, a.dataTable.Cursor())

	a = press(t, a, "down", "down")
	assert.Equal(t, 2, a.dataTable.Cursor())
}

func TestReloadFailureKeepsPreviousData(t *testing.T) {
	a := loadedApp(t)
	before := a.table

	m, _ := a.Update(DataLoadedMsg{Err: errors.New("disk on fire")})
	a = m.(App)

	assert.True(t, a.loaded)
	assert.Same(t, before, a.table)
	require.Error(t, a.loadErr)
	assert.Contains(t, ansi.Strip(a.View()), "reload failed")
}

func TestInitialLoadFailureShowsError(t *testing.T) {
	a := NewApp(Options{Config: config.DefaultConfig()})
	a.width, a.height = 100, 30

	m, _ := a.Update(DataLoadedMsg{Err: source.ErrNoInput})
	a = m.(App)
	assert.False(t, a.loaded)
	assert.Contains(t, ansi.Strip(a.View()), source.ErrNoInput.Error())

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
}

func TestNarrowTerminal(t *testing.T) {
	a := loadedApp(t)
	a.width = 60
	assert.Contains(t, a.View(), "Terminal too narrow")
}

func TestFilterValuesRoundTrip(t *testing.T) {
	sel := pipeline.Selection{
		Category:         catalog.Motos,
		Year:             2021,
		Month:            time.June,
		DistributionYear: "2021",
		Categories:       []catalog.Category{catalog.Autos, catalog.Triciclos},
	}
	v := filterValuesFrom(sel)
	v.Categories[0] = catalog.Camion2
	assert.Equal(t, catalog.Autos, sel.Categories[0], "form edits do not leak into the selection")
	v.Categories[0] = catalog.Autos
	assert.Equal(t, sel, v.selection())
}

func TestForecastYearsExtendPastData(t *testing.T) {
	tbl := pipeline.NewTable(testRecords())
	assert.Equal(t, []int{2020, 2021, 2022, 2023}, forecastYears(tbl))
	assert.Empty(t, forecastYears(pipeline.NewTable(nil)))
}

func TestFilterFormOpensAndCancels(t *testing.T) {
	a := press(t, loadedApp(t), "/")
	require.NotNil(t, a.filterForm)
	assert.Contains(t, ansi.Strip(a.View()), "Filtros")

	m, _ := a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = m.(App)
	assert.Nil(t, a.filterForm)
}

func TestSetupValuesApply(t *testing.T) {
	cfg := config.DefaultConfig()
	v := SetupValuesFrom(cfg)
	v.DataPath = "  /data/aforos  "
	v.Encoding = "utf-8"
	v.Categories = []string{"MOTOS"}
	v.BeforeRange = config.BeforeRangeClamp
	v.Theme = "tokyo-night"
	v.Apply(&cfg)

	assert.Equal(t, "/data/aforos", cfg.General.DataPath)
	assert.Equal(t, "utf-8", cfg.General.Encoding)
	assert.Equal(t, []string{"MOTOS"}, cfg.Dashboard.DefaultCategories)
	assert.Equal(t, config.BeforeRangeClamp, cfg.Forecast.BeforeRange)
	assert.Equal(t, "tokyo-night", cfg.Appearance.Theme)
	require.NoError(t, cfg.Validate())

	v.Categories = nil
	v.Apply(&cfg)
	assert.Equal(t, []string{"MOTOS"}, cfg.Dashboard.DefaultCategories, "empty answer keeps the previous list")
}

func TestLoadTableReadsLatin1(t *testing.T) {
	cols := append([]string{"NOMBRE", "TIPO", "AÑO", "MES"}, catalog.Codes(catalog.All())...)
	lines := []string{strings.Join(cols, ",")}
	for m := time.January; m <= time.March; m++ {
		cells := []string{"Caseta Peñón", "PLAZA", "2021", catalog.MonthName(m)}
		for range catalog.Count {
			cells = append(cells, "5")
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	body, err := charmap.ISO8859_1.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "aforos.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg := config.DefaultConfig()
	cfg.General.DataPath = path
	res, err := loadTable(Options{Config: cfg, Source: source.DefaultOptions()}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, []string{"2021"}, res.Table.Years())
}
