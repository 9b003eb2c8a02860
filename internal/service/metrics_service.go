package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a JSON-friendly summary of the service counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	AbsencesReported         uint64    `json:"absencesReported"`
	ResolvedSuccess          uint64    `json:"resolvedSuccess"`
	ResolvedFailure          uint64    `json:"resolvedFailure"`
	SelectorCalls            uint64    `json:"selectorCalls"`
	AverageSelectorMs        float64   `json:"averageSelectorMs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// MetricsService owns the Prometheus registry and a few atomic tallies for snapshots.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	absenceReported *prometheus.CounterVec
	absenceOutcome  *prometheus.CounterVec
	selectorLatency *prometheus.HistogramVec
	auditDuration   *prometheus.HistogramVec
	notifications   *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	reportedCount        uint64
	successCount         uint64
	failureCount         uint64
	selectorCount        uint64
	selectorDuration     uint64
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_cache_latency_seconds",
		Help:    "Latency for timetable cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_cache_write_seconds",
		Help:    "Latency for timetable cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	absenceReported := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "absence_requests_created_total",
		Help: "Absence requests created, by source",
	}, []string{"source"})

	absenceOutcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "absence_requests_resolved_total",
		Help: "Absence requests reaching a terminal state",
	}, []string{"status", "code"})

	selectorLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "substitute_selector_duration_seconds",
		Help:    "Time spent ranking substitute candidates",
		Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"strategy", "outcome"})

	auditDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_write_duration_seconds",
		Help:    "Duration of audit log writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_emitted_total",
		Help: "Notifications emitted, by type",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio,
		absenceReported, absenceOutcome, selectorLatency, auditDuration, notifications, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		absenceReported: absenceReported,
		absenceOutcome:  absenceOutcome,
		selectorLatency: selectorLatency,
		auditDuration:   auditDuration,
		notifications:   notifications,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordAbsenceReported counts newly created requests.
func (m *MetricsService) RecordAbsenceReported(source string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.absenceReported.WithLabelValues(source).Add(float64(count))
	atomic.AddUint64(&m.reportedCount, uint64(count))
}

// RecordAbsenceOutcome counts a terminal transition. code is empty on success.
func (m *MetricsService) RecordAbsenceOutcome(status, code string) {
	if m == nil {
		return
	}
	m.absenceOutcome.WithLabelValues(status, code).Inc()
	if code == "" {
		atomic.AddUint64(&m.successCount, 1)
	} else {
		atomic.AddUint64(&m.failureCount, 1)
	}
}

// ObserveSelection records one ranking attempt.
func (m *MetricsService) ObserveSelection(strategy, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.selectorLatency.WithLabelValues(strategy, outcome).Observe(duration.Seconds())
	atomic.AddUint64(&m.selectorCount, 1)
	atomic.AddUint64(&m.selectorDuration, uint64(duration.Nanoseconds()))
}

// ObserveAuditWrite records the duration of an audit insert.
func (m *MetricsService) ObserveAuditWrite(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.auditDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordNotification counts an emitted notification.
func (m *MetricsService) RecordNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	selections := atomic.LoadUint64(&m.selectorCount)
	selDuration := atomic.LoadUint64(&m.selectorDuration)

	snap := MetricsSnapshot{
		RequestsTotal:    requests,
		AbsencesReported: atomic.LoadUint64(&m.reportedCount),
		ResolvedSuccess:  atomic.LoadUint64(&m.successCount),
		ResolvedFailure:  atomic.LoadUint64(&m.failureCount),
		SelectorCalls:    selections,
		Goroutines:       runtime.NumGoroutine(),
		GeneratedAt:      time.Now().UTC(),
	}
	if ratio, ok := m.hitRatio(); ok {
		snap.CacheHitRatio = ratio
	}
	if requests > 0 {
		snap.AverageRequestDurationMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	if selections > 0 {
		snap.AverageSelectorMs = float64(selDuration) / float64(selections) / float64(time.Millisecond)
	}
	return snap
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}
