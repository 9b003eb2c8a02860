package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/timetable", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/timetable", http.StatusOK, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordAbsenceReported("single", 1)
	m.RecordAbsenceReported("tomorrow", 3)
	m.RecordAbsenceReported("tomorrow", 0)
	m.RecordAbsenceOutcome("RESOLVED_SUCCESS", "")
	m.RecordAbsenceOutcome("RESOLVED_FAILURE", "NO_CANDIDATES")
	m.ObserveSelection("deterministic", "ok", 4*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(4), snap.AbsencesReported)
	assert.Equal(t, uint64(1), snap.ResolvedSuccess)
	assert.Equal(t, uint64(1), snap.ResolvedFailure)
	assert.Equal(t, uint64(1), snap.SelectorCalls)
	assert.InDelta(t, 4.0, snap.AverageSelectorMs, 0.001)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.absenceReported.WithLabelValues("tomorrow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.absenceOutcome.WithLabelValues("RESOLVED_FAILURE", "NO_CANDIDATES")))
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordNotification("info")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordNotification("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `notifications_emitted_total{type="success"} 1`)
}
