package httpserver

import (
	"strconv"
	"time"

	"devblog/framework"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "devblog"

type metrics struct {
	navigationsTotal   *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	notFoundTotal      *prometheus.CounterVec
}

func newMetrics(registry prometheus.Registerer) *metrics {
	factory := promauto.With(registry)

	return &metrics{
		navigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "navigations_total",
			Help:      "Navigations served, by route kind, render mode and status",
		}, []string{"route", "mode", "status"}),

		navigationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "navigation_duration_seconds",
			Help:      "Time to select and render a page",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		notFoundTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "not_found_total",
			Help:      "Not-found fallbacks rendered, by source",
		}, []string{"source"}),
	}
}

func (m *metrics) observe(outcome framework.Outcome, elapsed time.Duration) {
	m.navigationsTotal.WithLabelValues(outcome.Route, string(outcome.Mode), strconv.Itoa(outcome.Status)).Inc()
	m.navigationDuration.WithLabelValues(outcome.Route).Observe(elapsed.Seconds())
}

func (m *metrics) notFound(source framework.NotFoundSource) {
	m.notFoundTotal.WithLabelValues(string(source)).Inc()
}
