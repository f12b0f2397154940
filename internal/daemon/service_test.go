package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

// writeYear writes one station's twelve months for year. AUTOS holds
// 1000+10*month and MOTOS holds the month number.
func writeYear(t *testing.T, path string, years ...int) {
	t.Helper()
	cols := append([]string{"NOMBRE", "TIPO", "AÑO", "MES"}, catalog.Codes(catalog.All())...)
	lines := []string{strings.Join(cols, ",")}
	for _, year := range years {
		for m := time.January; m <= time.December; m++ {
			cells := []string{"Caseta Peñón", "PLAZA", strconv.Itoa(year), catalog.MonthName(m)}
			counts := make([]string, catalog.Count)
			for i := range counts {
				counts[i] = "0"
			}
			counts[catalog.Autos] = strconv.Itoa(1000 + 10*int(m))
			counts[catalog.Motos] = strconv.Itoa(int(m))
			lines = append(lines, strings.Join(append(cells, counts...), ","))
		}
	}
	body, err := charmap.ISO8859_1.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// touch moves the mtime forward so the poller sees a change even when the
// size is unchanged.
func touch(t *testing.T, path string, ahead time.Duration) {
	t.Helper()
	ts := time.Now().Add(ahead)
	require.NoError(t, os.Chtimes(path, ts, ts))
}

func newTestService(t *testing.T, path string, log logging.Logger) *Service {
	t.Helper()
	return New(Config{
		Source:   path,
		Options:  source.DefaultOptions(),
		Interval: 10 * time.Second,
		Logger:   log,
	})
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{
		Files:   1,
		Records: 12,
		Years:   []string{"2021"},
		First:   model.FirstOfMonth(2021, time.January),
		Last:    model.FirstOfMonth(2021, time.December),
	}
	curr := Snapshot{
		Files:   2,
		Records: 30,
		Years:   []string{"2021", "2022"},
		First:   model.FirstOfMonth(2021, time.January),
		Last:    model.FirstOfMonth(2022, time.June),
	}

	delta := diffSnapshots(prev, curr)
	if delta.Files != 1 {
		t.Fatalf("Files delta = %d, want 1", delta.Files)
	}
	if delta.Records != 18 {
		t.Fatalf("Records delta = %d, want 18", delta.Records)
	}
	if delta.Years != 1 {
		t.Fatalf("Years delta = %d, want 1", delta.Years)
	}
	if delta.Months != 6 {
		t.Fatalf("Months delta = %d, want 6", delta.Months)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a non-zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{
		Source:       ".",
		Interval:     10 * time.Second,
		EventsBuffer: 2,
	})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 2 || s.events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", s.events[0].ID, s.events[1].ID)
	}
}

func TestDataRoutesWaitForFirstLoad(t *testing.T) {
	s := newTestService(t, filepath.Join(t.TempDir(), "aforos.csv"), nil)
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/v1/categories").Code)

	rec := get(t, h, "/v1/years")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrNotLoaded.Error())

	var st Status
	decode(t, get(t, h, "/v1/status"), &st)
	assert.False(t, st.Loaded)
}

func TestPollLoadsDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aforos.csv")
	writeYear(t, path, 2021)
	s := newTestService(t, path, nil)
	s.pollOnce()

	require.NotNil(t, s.Table())
	assert.Equal(t, 12, s.Table().Len())

	var st Status
	decode(t, get(t, s.Handler(), "/v1/status"), &st)
	assert.True(t, st.Loaded)
	assert.Equal(t, int64(1), st.ReloadCount)
	assert.Equal(t, 12, st.Dataset.Records)
	assert.Equal(t, 1, st.Dataset.Files)
	assert.Equal(t, []string{"2021"}, st.Dataset.Years)
	assert.Equal(t, []string{path}, st.Dataset.Sources)
	assert.Empty(t, st.LastError)
	assert.Equal(t, 1, st.EventCount)
}

func TestDataRoutes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aforos.csv")
	writeYear(t, path, 2021)
	s := newTestService(t, path, nil)
	s.pollOnce()
	h := s.Handler()

	t.Run("years", func(t *testing.T) {
		var years []string
		decode(t, get(t, h, "/v1/years"), &years)
		assert.Equal(t, []string{"2021"}, years)
	})

	t.Run("categories", func(t *testing.T) {
		var cats []CategoryInfo
		decode(t, get(t, h, "/v1/categories"), &cats)
		require.Len(t, cats, catalog.Count)
		assert.Equal(t, "AUTOS", cats[0].Code)
	})

	t.Run("totals", func(t *testing.T) {
		var totals model.CategoryTotals
		decode(t, get(t, h, "/v1/totals?year=2021"), &totals)
		assert.Equal(t, 12780.0, totals.Get(catalog.Autos))
		assert.Equal(t, 78.0, totals.Get(catalog.Motos))

		assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/totals?year=1999").Code)
	})

	t.Run("series", func(t *testing.T) {
		var series model.Series
		decode(t, get(t, h, "/v1/series?category=motos"), &series)
		assert.Equal(t, catalog.Motos, series.Category)
		require.Equal(t, 12, series.Len())
		assert.Equal(t, 12.0, series.Points[11].Value)

		assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/series?category=TRACTORES").Code)
	})

	t.Run("monthly", func(t *testing.T) {
		var body struct {
			Category catalog.Category `json:"category"`
			Year     string           `json:"year"`
			Points   []model.Point    `json:"points"`
		}
		decode(t, get(t, h, "/v1/monthly?category=AUTOS&year=2021"), &body)
		assert.Equal(t, catalog.Autos, body.Category)
		assert.Equal(t, "2021", body.Year)
		require.Len(t, body.Points, 12)
		assert.Equal(t, 1120.0, body.Points[11].Value)

		assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/monthly?year=1999").Code)
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/monthly?category=TRACTORES").Code)
	})

	t.Run("forecast actual", func(t *testing.T) {
		var f model.Forecast
		decode(t, get(t, h, "/v1/forecast?category=AUTOS&year=2021&month=junio"), &f)
		assert.Equal(t, model.ForecastActual, f.Kind)
		assert.Equal(t, 1060.0, f.Value)
	})

	t.Run("forecast before range is a result", func(t *testing.T) {
		rec := get(t, h, "/v1/forecast?category=AUTOS&year=2019&month=1")
		require.Equal(t, http.StatusOK, rec.Code)
		var f model.Forecast
		decode(t, rec, &f)
		assert.Equal(t, model.ForecastUnavailable, f.Kind)
		assert.NotEmpty(t, f.Reason)
	})

	t.Run("forecast bad params", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/forecast?month=13").Code)
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/forecast?year=abc").Code)
	})

	t.Run("distribution", func(t *testing.T) {
		var d model.Distribution
		decode(t, get(t, h, "/v1/distribution?year=2021&categories=MOTOS,AUTOS"), &d)
		require.Len(t, d.Bars, 2)
		assert.Equal(t, catalog.Motos, d.Bars[0].Category)
		assert.Equal(t, 12780.0, d.Bars[1].Value)
	})

	t.Run("table", func(t *testing.T) {
		var v model.TableView
		decode(t, get(t, h, "/v1/table?year=2021&categories=AUTOS"), &v)
		assert.Equal(t, []string{"AÑO", "MES", catalog.Autos.Label()}, v.Headers)
		require.Len(t, v.Rows, 12)
		assert.Equal(t, "ENERO", v.Rows[0].MonthName)
	})

	t.Run("extremes", func(t *testing.T) {
		var ex model.Extremes
		decode(t, get(t, h, "/v1/extremes?year=2021"), &ex)
		assert.Equal(t, catalog.Autos, ex.Max.Category)
		assert.Equal(t, 0.0, ex.Min.Value)

		assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/extremes?year=2030").Code)
	})

	t.Run("dashboard", func(t *testing.T) {
		var d model.Dashboard
		decode(t, get(t, h, "/v1/dashboard?category=AUTOS&year=2021&month=3"), &d)
		assert.Equal(t, "12,780", d.TotalAutos)
		assert.Equal(t, model.ForecastActual, d.Forecast.Kind)
		assert.Equal(t, "Valor real: 1,030", d.ForecastText)
		assert.Empty(t, d.Errors)
	})
}

func TestPollReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aforos.csv")
	writeYear(t, path, 2021)
	s := newTestService(t, path, nil)

	s.pollOnce()
	s.pollOnce()
	st := s.snapshotStatus()
	assert.Equal(t, int64(2), st.PollCount)
	assert.Equal(t, int64(1), st.ReloadCount, "unchanged source must not reload")

	writeYear(t, path, 2021, 2022)
	touch(t, path, time.Minute)
	s.pollOnce()

	st = s.snapshotStatus()
	assert.Equal(t, int64(2), st.ReloadCount)
	assert.Equal(t, 24, s.Table().Len())

	var events []Event
	decode(t, get(t, s.Handler(), "/v1/events"), &events)
	require.Len(t, events, 2)
	assert.Equal(t, EventSnapshot, events[0].Type)
	assert.Equal(t, EventReloaded, events[1].Type)
	assert.Equal(t, 12, events[1].Delta.Records)
	assert.Equal(t, 1, events[1].Delta.Years)
	assert.Equal(t, 12, events[1].Delta.Months)
}

func TestFailedReloadKeepsServingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aforos.csv")
	writeYear(t, path, 2021)
	log := logging.NewMockLogger()
	s := newTestService(t, path, log)
	s.pollOnce()
	before := s.Table()

	bad := "NOMBRE,TIPO,AÑO,MES," + strings.Join(catalog.Codes(catalog.All()), ",") + "\n" +
		"X,PLAZA,2021,13mo" + strings.Repeat(",1", catalog.Count) + "\n"
	enc, err := charmap.ISO8859_1.NewEncoder().String(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(enc), 0o600))
	touch(t, path, time.Minute)
	s.pollOnce()

	st := s.snapshotStatus()
	assert.Contains(t, st.LastError, "unknown month")
	assert.Equal(t, int64(1), st.ReloadCount)
	assert.Same(t, before, s.Table())
	assert.True(t, log.HasEntry("ERROR", "dataset reload failed"))

	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/v1/years").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aforos.csv")
	writeYear(t, path, 2021)
	s := newTestService(t, path, nil)
	s.pollOnce()
	h := s.Handler()

	require.Equal(t, http.StatusOK, get(t, h, "/v1/forecast?category=AUTOS&year=2021&month=2").Code)
	get(t, h, "/v1/forecast?category=AUTOS&year=2019&month=1")

	body := get(t, h, "/metrics").Body.String()
	assert.Contains(t, body, `aforos_forecasts_total{kind="actual"} 1`)
	assert.Contains(t, body, `aforos_forecasts_total{kind="unavailable"} 1`)
	assert.Contains(t, body, `aforos_dataset_reloads_total{result="ok"} 1`)
	assert.Contains(t, body, `aforos_dataset_records 12`)
	assert.Contains(t, body, `aforos_http_requests_total{code="200",route="/v1/forecast"} 2`)
}

func TestStreamSendsCurrentSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aforos.csv")
	writeYear(t, path, 2021)
	s := newTestService(t, path, nil)
	s.pollOnce()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	sc := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event:") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data:") {
			dataLine = line
			break
		}
	}
	assert.Equal(t, "snapshot", strings.TrimSpace(strings.TrimPrefix(eventLine, "event:")))

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(dataLine, "data:")), &ev))
	assert.Equal(t, 12, ev.Snapshot.Records)
	cancel()
}
