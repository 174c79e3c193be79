// Package observability holds the Prometheus metrics for the view server.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the rendering
// pipeline.
type Metrics struct {
	Selections    *prometheus.CounterVec // labels: outcome={applied,stale,error}
	Repaints      prometheus.Counter
	RepaintTime   prometheus.Histogram
	HitTests      *prometheus.CounterVec // labels: result={hit,miss}
	ViewCache     *prometheus.CounterVec // labels: result={hit,miss}
	RangeOverride prometheus.Counter
}

// NewMetrics creates and registers all view-server metrics with the
// default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Selections,
		m.Repaints,
		m.RepaintTime,
		m.HitTests,
		m.ViewCache,
		m.RangeOverride,
	)
	return m
}

// NewUnregisteredMetrics creates metrics without touching the default
// registry, for tests that build multiple services.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csep_views",
			Name:      "selections_total",
			Help:      "Dataset selections by outcome.",
		}, []string{"outcome"}),
		Repaints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csep_views",
			Name:      "repaints_total",
			Help:      "Total viewport repaints.",
		}),
		RepaintTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "csep_views",
			Name:      "repaint_duration_seconds",
			Help:      "Duration of a full viewport repaint.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		HitTests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csep_views",
			Name:      "hit_tests_total",
			Help:      "Pointer hit-tests by result.",
		}, []string{"result"}),
		ViewCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csep_views",
			Name:      "view_cache_total",
			Help:      "Rendered-view cache lookups by result.",
		}, []string{"result"}),
		RangeOverride: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csep_views",
			Name:      "range_overrides_total",
			Help:      "User overrides of the color range.",
		}),
	}
}
