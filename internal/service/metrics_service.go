package service

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transition outcomes reported by RecordTransition.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// MetricsService owns the Prometheus registry for the API.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	transitions     *prometheus.CounterVec
	attachmentBytes *prometheus.HistogramVec

	hitCount  atomic.Uint64
	missCount atomic.Uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mas_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route template",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mas_http_requests_total",
			Help: "HTTP requests by route template",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mas_cache_operation_seconds",
			Help:    "Latency of cache reads and writes",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"keyspace", "op"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mas_cache_hits_total",
			Help: "Cache hits by keyspace",
		}, []string{"keyspace"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mas_cache_misses_total",
			Help: "Cache misses by keyspace",
		}, []string{"keyspace"}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mas_cache_hit_ratio",
			Help: "Hits over lookups since start",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mas_transitions_total",
			Help: "MAS lifecycle operations by transition and outcome",
		}, []string{"transition", "outcome"}),
		attachmentBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mas_attachment_bytes",
			Help:    "Size of accepted attachments",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 9),
		}, []string{"mime"}),
	}

	m.registry.MustRegister(
		m.requestDuration,
		m.requestTotal,
		m.cacheLatency,
		m.cacheHits,
		m.cacheMisses,
		m.cacheHitRatio,
		m.transitions,
		m.attachmentBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, code).Inc()
}

// RecordCacheLookup counts a hit or miss and refreshes the hit ratio.
func (m *MetricsService) RecordCacheLookup(keyspace string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues(keyspace, "get").Observe(duration.Seconds())
	if hit {
		m.cacheHits.WithLabelValues(keyspace).Inc()
		m.hitCount.Add(1)
	} else {
		m.cacheMisses.WithLabelValues(keyspace).Inc()
		m.missCount.Add(1)
	}
	hits := m.hitCount.Load()
	if total := hits + m.missCount.Load(); total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache set latency.
func (m *MetricsService) ObserveCacheWrite(keyspace string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues(keyspace, "set").Observe(duration.Seconds())
}

// RecordTransition counts one lifecycle operation.
func (m *MetricsService) RecordTransition(transition, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, outcome).Inc()
}

// ObserveAttachment records the size of a stored attachment.
func (m *MetricsService) ObserveAttachment(mime string, size int64) {
	if m == nil {
		return
	}
	m.attachmentBytes.WithLabelValues(mime).Observe(float64(size))
}
