// Package metrics exposes prometheus collectors for the aggregation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "headlinehub"

// Metrics 持有独立的 registry，测试之间互不干扰
type Metrics struct {
	registry *prometheus.Registry

	runs           prometheus.Counter
	runDuration    prometheus.Histogram
	sourceArticles *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	cached         prometheus.Gauge
	cacheHits      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregation_runs_total",
			Help:      "Number of aggregation runs.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of aggregation runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		sourceArticles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_articles_total",
			Help:      "Articles extracted per source.",
		}, []string{"source"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Failed fetch or parse attempts per source.",
		}, []string{"source", "kind"}),
		cached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_articles",
			Help:      "Articles currently held in the cache.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Reads served from the cache without a run.",
		}),
	}
	m.registry.MustRegister(m.runs, m.runDuration, m.sourceArticles, m.sourceFailures, m.cached, m.cacheHits)
	return m
}

// 以下方法允许 nil 接收者，未启用指标时直接跳过

func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Metrics) AddArticles(source string, n int) {
	if m == nil {
		return
	}
	m.sourceArticles.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) SourceFailed(source, kind string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source, kind).Inc()
}

func (m *Metrics) SetCached(n int) {
	if m == nil {
		return
	}
	m.cached.Set(float64(n))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
