// Package metrics exposes Prometheus collectors for the query cache and the
// upstream providers.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
	"github.com/i474232898/weather-dashboard/internal/weather/providers"
)

// Recorder records cache and upstream events into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	cacheRequests *prometheus.CounterVec
	cacheRetries  *prometheus.CounterVec
	cacheEvicted  *prometheus.CounterVec

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go and process collectors registered.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_cache_requests_total",
			Help: "Query cache lookups by operation and result.",
		}, []string{"op", "result"}), // result: hit, miss
		cacheRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_cache_retries_total",
			Help: "Retried loads by operation.",
		}, []string{"op"}),
		cacheEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_cache_evicted_total",
			Help: "Stale entries purged by operation.",
		}, []string{"op"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_upstream_requests_total",
			Help: "Upstream API requests by provider, operation and outcome.",
		}, []string{"provider", "op", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_upstream_request_duration_seconds",
			Help:    "Latency of upstream API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "op"}),
	}

	registry.MustRegister(r.cacheRequests)
	registry.MustRegister(r.cacheRetries)
	registry.MustRegister(r.cacheEvicted)
	registry.MustRegister(r.upstreamRequests)
	registry.MustRegister(r.upstreamDuration)

	return r
}

// Registry returns the Prometheus registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) CacheHit(op string) {
	r.cacheRequests.WithLabelValues(op, "hit").Inc()
}

func (r *Recorder) CacheMiss(op string) {
	r.cacheRequests.WithLabelValues(op, "miss").Inc()
}

func (r *Recorder) CacheRetry(op string) {
	r.cacheRetries.WithLabelValues(op).Inc()
}

func (r *Recorder) CacheEvicted(op string, n int) {
	r.cacheEvicted.WithLabelValues(op).Add(float64(n))
}

// UpstreamRequest records one upstream call.
func (r *Recorder) UpstreamRequest(provider, op string, status int, elapsed time.Duration, err error) {
	r.upstreamRequests.WithLabelValues(provider, op, outcome(status, err)).Inc()
	r.upstreamDuration.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

func outcome(status int, err error) string {
	if err == nil {
		return "ok"
	}
	var fe *weather.FetchError
	if errors.As(err, &fe) && fe.StatusCode != 0 {
		return strconv.Itoa(fe.StatusCode)
	}
	if status != 0 {
		return strconv.Itoa(status)
	}
	return "error"
}

var (
	_ store.Recorder     = (*Recorder)(nil)
	_ providers.Recorder = (*Recorder)(nil)
)
