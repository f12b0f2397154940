// Package daemon provides the long-running HTTP service that keeps a dataset
// loaded and reloads it when the source files change.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/aforos/internal/forecast"
	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/pipeline"
	"github.com/theirongolddev/aforos/internal/source"
	"github.com/theirongolddev/aforos/internal/store"
)

// ErrNotLoaded is returned by data endpoints before the first successful load.
var ErrNotLoaded = errors.New("dataset not loaded")

// Config controls the daemon runtime behavior.
type Config struct {
	Source       string
	Options      source.Options
	UseCache     bool
	CachePath    string
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Forecast     forecast.Settings
	Logger       logging.Logger
}

// Snapshot is a compact dataset state for status and event payloads.
type Snapshot struct {
	At      time.Time `json:"at"`
	Files   int       `json:"files"`
	Records int       `json:"records"`
	Years   []string  `json:"years"`
	Sources []string  `json:"sources"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// Delta captures snapshot changes between reloads.
type Delta struct {
	Files   int `json:"files"`
	Records int `json:"records"`
	Years   int `json:"years"`
	Months  int `json:"months"`
}

func (d Delta) isZero() bool {
	return d.Files == 0 &&
		d.Records == 0 &&
		d.Years == 0 &&
		d.Months == 0
}

// Event is emitted whenever the dataset is loaded or reloaded.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventReloaded = "dataset_reloaded"
)

// Status is served at /v1/status.
type Status struct {
	PID             int       `json:"pid"`
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	LastReloadAt    time.Time `json:"last_reload_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	ReloadCount     int64     `json:"reload_count"`
	Source          string    `json:"source"`
	Encoding        string    `json:"encoding"`
	Loaded          bool      `json:"loaded"`
	Dataset         Snapshot  `json:"dataset"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg        Config
	log        logging.Logger
	metrics    *metrics
	forecaster *forecast.Forecaster
	table      atomic.Pointer[pipeline.Table]

	mu           sync.RWMutex
	startedAt    time.Time
	lastPollAt   time.Time
	lastReloadAt time.Time
	pollCount    int64
	reloadCount  int64
	lastError    string
	fingerprint  string
	hasSnapshot  bool
	snapshot     Snapshot
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	if cfg.CachePath == "" {
		cfg.CachePath = pipeline.CachePath()
	}
	if cfg.Forecast == (forecast.Settings{}) {
		cfg.Forecast = forecast.DefaultSettings()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	s := &Service{
		cfg:       cfg,
		log:       log.WithField("component", "daemon"),
		metrics:   newMetrics(),
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
	s.forecaster = forecast.New(cfg.Forecast, log).WithObserver(s.metrics.observeForecast)
	return s
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("daemon listening", logging.F(logging.FieldAddr, s.cfg.Addr),
		logging.F(logging.FieldPath, s.cfg.Source))

	// Seed the first load so data endpoints are useful immediately.
	s.pollOnce()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// Table returns the current dataset, or nil before the first load.
func (s *Service) Table() *pipeline.Table {
	return s.table.Load()
}

// pollOnce reloads the dataset when the source fingerprint changed. A failed
// reload keeps serving the previous table.
func (s *Service) pollOnce() {
	fp, err := fingerprint(s.cfg.Source)
	if err == nil {
		s.mu.RLock()
		unchanged := s.hasSnapshot && fp == s.fingerprint
		s.mu.RUnlock()
		if unchanged {
			s.mu.Lock()
			s.lastPollAt = time.Now()
			s.pollCount++
			s.mu.Unlock()
			return
		}
	}

	start := time.Now()
	var (
		t     *pipeline.Table
		files int
	)
	if err == nil {
		t, files, err = s.loadTable()
	}
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = time.Now()
		s.pollCount++
		s.mu.Unlock()
		s.metrics.reloads.WithLabelValues("error").Inc()
		s.log.WithError(err).Error("dataset reload failed", logging.F(logging.FieldPath, s.cfg.Source))
		return
	}

	s.table.Store(t)
	s.metrics.reloads.WithLabelValues("ok").Inc()
	s.metrics.reloadDuration.Observe(time.Since(start).Seconds())
	s.metrics.records.Set(float64(t.Len()))

	now := time.Now()
	snap := snapshotFromTable(t, files, now)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.fingerprint = fp
	s.lastPollAt = now
	s.lastReloadAt = now
	s.pollCount++
	s.reloadCount++
	s.lastError = ""

	// Every reload is announced, even when the touched files left the
	// counts unchanged.
	s.nextEventID++
	ev := Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap}
	if prevExists {
		ev.Type = EventReloaded
		ev.Delta = diffSnapshots(prev, snap)
	}
	s.mu.Unlock()

	s.log.Info("dataset loaded",
		logging.F(logging.FieldRows, snap.Records),
		logging.F("files", snap.Files),
		logging.F(logging.FieldDuration, time.Since(start).String()))

	if prevExists && ev.Delta.isZero() {
		s.log.Debug("source touched, counts unchanged")
	}
	s.publishEvent(ev)
}

func (s *Service) loadTable() (*pipeline.Table, int, error) {
	if s.cfg.UseCache {
		cache, err := store.Open(s.cfg.CachePath)
		if err == nil {
			defer func() { _ = cache.Close() }()
			cr, loadErr := pipeline.LoadWithCache(s.cfg.Source, s.cfg.Options, cache, nil)
			if loadErr == nil {
				return cr.Table, cr.TotalFiles, nil
			}
			if !errors.Is(loadErr, pipeline.ErrCache) {
				return nil, 0, loadErr
			}
			s.log.WithError(loadErr).Warn("cached load failed, reparsing")
		}
	}

	result, err := pipeline.Load(s.cfg.Source, s.cfg.Options, nil)
	if err != nil {
		return nil, 0, err
	}
	return result.Table, result.TotalFiles, nil
}

// fingerprint summarizes the input files by path, mtime and size.
func fingerprint(path string) (string, error) {
	files, err := source.ScanPath(path)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s|%d|%d\n", f.Path, f.ModTime.UnixNano(), f.Size)
	}
	return b.String(), nil
}

func snapshotFromTable(t *pipeline.Table, files int, at time.Time) Snapshot {
	first, last := t.Span()
	return Snapshot{
		At:      at,
		Files:   files,
		Records: t.Len(),
		Years:   t.Years(),
		Sources: t.Sources(),
		First:   first,
		Last:    last,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Files:   curr.Files - prev.Files,
		Records: curr.Records - prev.Records,
		Years:   len(curr.Years) - len(prev.Years),
		Months:  monthSpan(curr) - monthSpan(prev),
	}
}

func monthSpan(s Snapshot) int {
	if s.First.IsZero() || s.Last.IsZero() {
		return 0
	}
	return (s.Last.Year()-s.First.Year())*12 + int(s.Last.Month()-s.First.Month()) + 1
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		PID:             os.Getpid(),
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		LastReloadAt:    s.lastReloadAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		ReloadCount:     s.reloadCount,
		Source:          s.cfg.Source,
		Encoding:        s.cfg.Options.Encoding,
		Loaded:          s.hasSnapshot,
		Dataset:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
