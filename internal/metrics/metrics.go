// Package metrics exposes Prometheus collectors for the HTTP service,
// the ranking engine and the weather router.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ChicagoDave/sunnysips/pkg/ranking"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	rankDuration      prometheus.Histogram
	cafesRanked       prometheus.Counter
	lowSunCalls       prometheus.Counter
	shadowHits        prometheus.Counter
	shadowMisses      prometheus.Counter
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	providerResults   *prometheus.CounterVec
	providerFallbacks *prometheus.CounterVec
	datasetCafes      prometheus.Gauge
	datasetBuildings  prometheus.Gauge
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sunnysips_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sunnysips_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sunnysips_rank_duration_seconds",
			Help:    "Histogram of ranking call durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		cafesRanked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sunnysips_cafes_ranked_total",
			Help: "Total cafés scored by the ranking engine.",
		}),
		lowSunCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sunnysips_low_sun_rankings_total",
			Help: "Ranking calls answered without geometry because the sun was too low.",
		}),
		shadowHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sunnysips_shadow_cache_hits_total",
			Help: "Shadow lookups served from the per-call cache.",
		}),
		shadowMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sunnysips_shadow_cache_misses_total",
			Help: "Shadows projected by the ranking engine.",
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sunnysips_cache_hits_total",
			Help: "Total response cache hits by cache.",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sunnysips_cache_misses_total",
			Help: "Total response cache misses by cache.",
		}, []string{"cache"}),
		providerResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sunnysips_weather_provider_results_total",
			Help: "Weather provider outcomes by provider and data status.",
		}, []string{"provider", "status"}),
		providerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sunnysips_weather_fallbacks_total",
			Help: "Weather series served by a provider other than the first configured one.",
		}, []string{"provider"}),
		datasetCafes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sunnysips_dataset_cafes",
			Help: "Cafés in the loaded dataset.",
		}),
		datasetBuildings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sunnysips_dataset_buildings",
			Help: "Buildings in the loaded spatial index.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.rankDuration,
		m.cafesRanked,
		m.lowSunCalls,
		m.shadowHits,
		m.shadowMisses,
		m.cacheHits,
		m.cacheMisses,
		m.providerResults,
		m.providerFallbacks,
		m.datasetCafes,
		m.datasetBuildings,
	)
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests to next under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRank records the counters of one ranking call.
func (m *Metrics) ObserveRank(s ranking.Stats) {
	if m == nil {
		return
	}
	m.rankDuration.Observe(s.Duration.Seconds())
	m.cafesRanked.Add(float64(s.Cafes))
	m.shadowHits.Add(float64(s.CacheHits))
	m.shadowMisses.Add(float64(s.CacheMisses))
	if s.LowSun {
		m.lowSunCalls.Inc()
	}
}

func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// ProviderResult implements weather.Observer.
func (m *Metrics) ProviderResult(provider, status string) {
	if m == nil {
		return
	}
	m.providerResults.WithLabelValues(provider, status).Inc()
}

// Fallback implements weather.Observer.
func (m *Metrics) Fallback(provider string) {
	if m == nil {
		return
	}
	m.providerFallbacks.WithLabelValues(provider).Inc()
}

// SetDataset publishes the size of the loaded dataset.
func (m *Metrics) SetDataset(cafes, buildings int) {
	if m == nil {
		return
	}
	m.datasetCafes.Set(float64(cafes))
	m.datasetBuildings.Set(float64(buildings))
}
