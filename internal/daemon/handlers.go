package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CategoryInfo describes one catalog entry for API consumers.
type CategoryInfo struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Short string `json:"short"`
}

// Handler returns the HTTP API. Data routes answer 503 until the first load.
func (s *Service) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/events", s.handleEvents)
	v1.GET("/stream", s.handleStream)
	v1.GET("/categories", s.handleCategories)

	data := v1.Group("", s.requireTable)
	data.GET("/years", s.handleYears)
	data.GET("/totals", s.handleTotals)
	data.GET("/series", s.handleSeries)
	data.GET("/monthly", s.handleMonthly)
	data.GET("/forecast", s.handleForecast)
	data.GET("/distribution", s.handleDistribution)
	data.GET("/table", s.handleTable)
	data.GET("/extremes", s.handleExtremes)
	data.GET("/dashboard", s.handleDashboard)

	return r
}

// observe records request counts and latency per route.
func (s *Service) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		code := strconv.Itoa(c.Writer.Status())
		s.metrics.requests.WithLabelValues(route, code).Inc()
		s.metrics.requestLatency.WithLabelValues(route).Observe(elapsed.Seconds())
		s.log.Debug("http request",
			logging.F("method", c.Request.Method),
			logging.F(logging.FieldPath, c.Request.URL.Path),
			logging.F(logging.FieldStatus, c.Writer.Status()),
			logging.F(logging.FieldDuration, elapsed.String()))
	}
}

const tableKey = "table"

func (s *Service) requireTable(c *gin.Context) {
	t := s.table.Load()
	if t == nil {
		abort(c, http.StatusServiceUnavailable, ErrNotLoaded)
		return
	}
	c.Set(tableKey, t)
	c.Next()
}

func tableFrom(c *gin.Context) *pipeline.Table {
	return c.MustGet(tableKey).(*pipeline.Table)
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func (s *Service) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok\n")
}

func (s *Service) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleCategories(c *gin.Context) {
	out := make([]CategoryInfo, 0, catalog.Count)
	for _, cat := range catalog.All() {
		out = append(out, CategoryInfo{Code: cat.Code(), Label: cat.Label(), Short: cat.Short()})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Service) handleYears(c *gin.Context) {
	c.JSON(http.StatusOK, tableFrom(c).Years())
}

func (s *Service) handleTotals(c *gin.Context) {
	t := tableFrom(c)
	year, ok := yearParam(c, t, "year")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pipeline.TotalsByYear(t, year))
}

func (s *Service) handleSeries(c *gin.Context) {
	cat, err := categoryParam(c.Query("category"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	series, err := pipeline.SeriesFor(tableFrom(c), cat)
	switch {
	case errors.Is(err, pipeline.ErrEmptySeries):
		abort(c, http.StatusNotFound, err)
	case err != nil:
		abort(c, http.StatusUnprocessableEntity, err)
	default:
		c.JSON(http.StatusOK, series)
	}
}

// handleMonthly returns one category's per-month sums within a year, summed
// across stations.
func (s *Service) handleMonthly(c *gin.Context) {
	t := tableFrom(c)
	cat, err := categoryParam(c.Query("category"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	year, ok := yearParam(c, t, "year")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category": cat,
		"year":     year,
		"points":   pipeline.MonthlyTotals(t, year, cat),
	})
}

// handleForecast answers 200 even when the forecast is unavailable; the
// reason travels in the body.
func (s *Service) handleForecast(c *gin.Context) {
	t := tableFrom(c)
	sel, err := selectionFromQuery(c, t)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, s.forecaster.Forecast(t, sel.Target()))
}

func (s *Service) handleDistribution(c *gin.Context) {
	t := tableFrom(c)
	year, ok := yearParam(c, t, "year")
	if !ok {
		return
	}
	cats, err := categoriesParam(c.Query("categories"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, pipeline.Distribution(t, year, cats))
}

func (s *Service) handleTable(c *gin.Context) {
	t := tableFrom(c)
	year, ok := yearParam(c, t, "year")
	if !ok {
		return
	}
	cats, err := categoriesParam(c.Query("categories"))
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, pipeline.TableView(t, year, cats))
}

func (s *Service) handleExtremes(c *gin.Context) {
	t := tableFrom(c)
	year, ok := yearParam(c, t, "year")
	if !ok {
		return
	}
	ex, err := pipeline.Extremes(t, year)
	if err != nil {
		abort(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, ex)
}

func (s *Service) handleDashboard(c *gin.Context) {
	t := tableFrom(c)
	sel, err := selectionFromQuery(c, t)
	if err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, pipeline.BuildDashboard(t, sel, s.forecaster))
}

func (s *Service) handleEvents(c *gin.Context) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	c.JSON(http.StatusOK, events)
}

func (s *Service) handleStream(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Dataset,
	}
	c.SSEvent(current.Type, current)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-ch:
			c.SSEvent(ev.Type, ev)
			return true
		}
	})
}

// yearParam reads a year query parameter, defaulting to the first year of
// the dataset. Unknown years abort with 404.
func yearParam(c *gin.Context, t *pipeline.Table, key string) (string, bool) {
	year := strings.TrimSpace(c.Query(key))
	if year == "" {
		year = pipeline.DefaultSelection(t).DistributionYear
	}
	if !t.HasYear(year) {
		abort(c, http.StatusNotFound, fmt.Errorf("%w: %q", pipeline.ErrUnknownYear, year))
		return "", false
	}
	return year, true
}

// selectionFromQuery overrides the default selection with whichever of
// category, year, month, dist_year and categories are present.
func selectionFromQuery(c *gin.Context, t *pipeline.Table) (pipeline.Selection, error) {
	sel := pipeline.DefaultSelection(t)
	if v := c.Query("category"); v != "" {
		cat, err := catalog.Parse(v)
		if err != nil {
			return sel, err
		}
		sel.Category = cat
	}
	if v := strings.TrimSpace(c.Query("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return sel, fmt.Errorf("invalid year %q", v)
		}
		sel.Year = y
	}
	if v := c.Query("month"); v != "" {
		m, err := catalog.ParseMonth(v)
		if err != nil {
			return sel, err
		}
		sel.Month = m
	}
	if v := strings.TrimSpace(c.Query("dist_year")); v != "" {
		sel.DistributionYear = v
	}
	if v := c.Query("categories"); v != "" {
		cats, err := catalog.ParseList(v)
		if err != nil {
			return sel, err
		}
		sel.Categories = cats
	}
	return sel, nil
}

func categoryParam(v string) (catalog.Category, error) {
	if strings.TrimSpace(v) == "" {
		return catalog.Autos, nil
	}
	return catalog.Parse(v)
}

func categoriesParam(v string) ([]catalog.Category, error) {
	cats, err := catalog.ParseList(v)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return catalog.Defaults(), nil
	}
	return cats, nil
}
