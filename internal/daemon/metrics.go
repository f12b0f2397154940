package daemon

import (
	"time"

	"github.com/theirongolddev/aforos/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics lives on its own registry so several services can coexist in one
// process (tests start many).
type metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	forecasts      *prometheus.CounterVec
	fitDuration    prometheus.Histogram
	reloads        *prometheus.CounterVec
	reloadDuration prometheus.Histogram
	records        prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aforos_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aforos_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5},
		}, []string{"route"}),
		forecasts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aforos_forecasts_total",
			Help: "Forecast results by kind (actual, projected, unavailable).",
		}, []string{"kind"}),
		fitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aforos_forecast_fit_duration_seconds",
			Help:    "Duration of seasonal model fits.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aforos_dataset_reloads_total",
			Help: "Dataset load attempts by result.",
		}, []string{"result"}),
		reloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aforos_dataset_reload_duration_seconds",
			Help:    "Duration of successful dataset loads.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),
		records: f.NewGauge(prometheus.GaugeOpts{
			Name: "aforos_dataset_records",
			Help: "Records in the currently served table.",
		}),
	}
}

func (m *metrics) observeForecast(result model.Forecast, fit time.Duration) {
	m.forecasts.WithLabelValues(string(result.Kind)).Inc()
	if fit > 0 {
		m.fitDuration.Observe(fit.Seconds())
	}
}
