// Package metrics exposes gateway counters and histograms to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	translations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	batchSize    prometheus.Histogram
	cacheLookups *prometheus.CounterVec
}

// New registers the collectors on reg, or on a fresh registry with the
// process and Go collectors when reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: reg,
		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mt_translations_total",
			Help: "Total translations requested",
		}, []string{"provider", "src_lang", "tgt_lang"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "mt_translation_duration_seconds",
			Help: "Translation duration",
		}, []string{"provider"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mt_batch_size",
			Help:    "Batch translation sizes",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mt_cache_lookups_total",
			Help: "Translation cache lookups by result",
		}, []string{"result"}),
	}
	reg.MustRegister(m.translations, m.duration, m.batchSize, m.cacheLookups)
	return m
}

// ObserveTranslation records n translated texts and how long the provider took.
func (m *Metrics) ObserveTranslation(provider, src, tgt string, n int, took time.Duration) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(provider, src, tgt).Add(float64(n))
	m.duration.WithLabelValues(provider).Observe(took.Seconds())
}

func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
