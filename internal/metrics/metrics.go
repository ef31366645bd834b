// Package metrics exposes Prometheus collectors for the plugin service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal            *prometheus.CounterVec
	pollTicksTotal       prometheus.Counter
	stageDurationSeconds *prometheus.HistogramVec
	fieldWritesTotal     *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xhs_runs_total",
				Help: "Total number of crawl runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		pollTicksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "xhs_poll_ticks_total",
				Help: "Total number of completion poll ticks issued.",
			},
		)

		stageDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xhs_stage_duration_seconds",
				Help:    "Histogram of run stage latencies, labeled by stage.",
				Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 120},
			},
			[]string{"stage"},
		)

		fieldWritesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xhs_field_writes_total",
				Help: "Total number of table cell writes, labeled by field.",
			},
			[]string{"field"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun increments the run counter for the given outcome.
func ObserveRun(outcome string) {
	runsTotal.WithLabelValues(outcome).Inc()
}

// ObservePollTick increments the poll tick counter.
func ObservePollTick() {
	pollTicksTotal.Inc()
}

// ObserveStage records the duration of one run stage.
func ObserveStage(stage string, duration time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveFieldWrite increments the write counter for the given field.
func ObserveFieldWrite(field string) {
	fieldWritesTotal.WithLabelValues(field).Inc()
}
