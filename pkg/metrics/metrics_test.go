package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest(OutcomeMocked, http.MethodGet, 20*time.Millisecond)
	m.ObserveRequest(OutcomeMocked, http.MethodGet, 30*time.Millisecond)
	m.ObserveRequest(OutcomeNoise, http.MethodGet, time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `pretender_requests_total{method="GET",outcome="mocked"} 2`)
	assert.Contains(t, out, `pretender_requests_total{method="GET",outcome="noise"} 1`)
	assert.Contains(t, out, `pretender_request_duration_seconds_count{outcome="mocked"} 2`)
}

func TestObserveUpstreamAndReload(t *testing.T) {
	m := New()
	m.ObserveUpstream(UpstreamOK, 10*time.Millisecond)
	m.ObserveUpstream(UpstreamTimeout, 30*time.Second)
	m.ObserveReload(4, nil)

	out := scrape(t, m)
	assert.Contains(t, out, `pretender_upstream_duration_seconds_count{result="ok"} 1`)
	assert.Contains(t, out, `pretender_upstream_duration_seconds_count{result="timeout"} 1`)
	assert.Contains(t, out, `pretender_rule_reloads_total{result="success"} 1`)
	assert.Contains(t, out, "pretender_rules_loaded 4")

	m.ObserveReload(0, errors.New("bad yaml"))
	out = scrape(t, m)
	assert.Contains(t, out, `pretender_rule_reloads_total{result="failure"} 1`)
	assert.Contains(t, out, "pretender_rules_loaded 0")
}

func TestWatchScheduler(t *testing.T) {
	m := New()
	queued, inFlight := 3, 7
	m.WatchScheduler(func() (int, int) { return queued, inFlight })

	out := scrape(t, m)
	assert.Contains(t, out, "pretender_scheduler_queue_depth 3")
	assert.Contains(t, out, "pretender_scheduler_in_flight 7")

	queued = 0
	assert.Contains(t, scrape(t, m), "pretender_scheduler_queue_depth 0")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(OutcomeForwarded, http.MethodPost, time.Second)
		m.ObserveUpstream(UpstreamError, time.Second)
		m.ObserveReload(1, nil)
		m.WatchScheduler(func() (int, int) { return 0, 0 })
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
