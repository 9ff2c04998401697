package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/episodes", http.StatusOK, 15*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/episodes", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/episodes/{slug}", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/episodes", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/episodes/{slug}", "404")))
}

func TestFailureCounters(t *testing.T) {
	m := New()
	m.RenderFailed()
	m.LoadFailed()
	m.LoadFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loadErrors))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RenderFailed()
	m.LoadFailed()
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RenderFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "podread_render_failures_total 1"))
	assert.Contains(t, body, "go_goroutines")
}
