package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gehringer/solarboard/pkg/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveUpstream(t *testing.T) {
	m := New()
	start := time.Now()

	m.ObserveUpstream("webhook", start, nil)
	m.ObserveUpstream("webhook", start, nil)
	m.ObserveUpstream("webhook", start, fmt.Errorf("wrapped: %w", common.ErrTimeout))
	m.ObserveUpstream("apsystems", start, &common.HTTPError{StatusCode: 500})
	m.ObserveUpstream("apsystems", start, errors.New("dial failed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("webhook", resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("webhook", resultTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("apsystems", resultHTTP)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamRequests.WithLabelValues("apsystems", resultError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.upstreamLatency))
}

func TestObserveSnapshot(t *testing.T) {
	m := New()
	now := time.Unix(1718445600, 0)
	m.ObserveSnapshot(now, nil)
	m.ObserveSnapshot(now.Add(time.Hour), errors.New("storage down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotRuns.WithLabelValues(resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotRuns.WithLabelValues(resultError)))
	assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(m.snapshotLastRun))
}

func TestObserveChartLoad(t *testing.T) {
	m := New()
	m.ObserveChartLoad("production", false)
	m.ObserveChartLoad("production", true)
	m.ObserveChartLoad("production", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.chartLoads.WithLabelValues("production", "upstream")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.chartLoads.WithLabelValues("production", "cache")))
}

func TestInstrumentHandler(t *testing.T) {
	m := New()
	h := m.InstrumentHandler("solar-data", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.responses.WithLabelValues("solar-data", "400")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveUpstream("webhook", time.Now(), nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `solarboard_upstream_requests_total{result="success",upstream="webhook"} 1`)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpstream("webhook", time.Now(), nil)
		m.ObserveSnapshot(time.Now(), nil)
		m.ObserveChartLoad("solar", true)
	})
	h := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, m.InstrumentHandler("x", h))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
