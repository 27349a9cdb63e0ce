// Package metrics exposes Prometheus collectors for upstream calls, HTTP
// responses, snapshot runs and chart loads. A nil *Metrics is valid and
// records nothing.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/gehringer/solarboard/pkg/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "solarboard"

const (
	resultSuccess = "success"
	resultError   = "error"
	resultTimeout = "timeout"
	resultHTTP    = "http_error"
)

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	responses        *prometheus.CounterVec
	snapshotRuns     *prometheus.CounterVec
	snapshotLastRun  prometheus.Gauge
	chartLoads       *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream requests by upstream and result.",
		}, []string{"upstream", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_latency_seconds",
			Help:      "Upstream request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "HTTP responses by handler and status code.",
		}, []string{"handler", "code"}),
		snapshotRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_runs_total",
			Help:      "Snapshot collector runs by result.",
		}, []string{"result"}),
		snapshotLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful snapshot.",
		}),
		chartLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_loads_total",
			Help:      "Dashboard tab loads by tab and source (cache or upstream).",
		}, []string{"tab", "source"}),
	}

	registry.MustRegister(m.upstreamRequests)
	registry.MustRegister(m.upstreamLatency)
	registry.MustRegister(m.responses)
	registry.MustRegister(m.snapshotRuns)
	registry.MustRegister(m.snapshotLastRun)
	registry.MustRegister(m.chartLoads)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(err error) string {
	var herr *common.HTTPError
	switch {
	case err == nil:
		return resultSuccess
	case common.IsTimeout(err):
		return resultTimeout
	case errors.As(err, &herr):
		return resultHTTP
	default:
		return resultError
	}
}

// ObserveUpstream records one upstream call that started at start.
func (m *Metrics) ObserveUpstream(upstream string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(upstream, result(err)).Inc()
	m.upstreamLatency.WithLabelValues(upstream).Observe(time.Since(start).Seconds())
}

// ObserveSnapshot records a collector run finishing at now.
func (m *Metrics) ObserveSnapshot(now time.Time, err error) {
	if m == nil {
		return
	}
	m.snapshotRuns.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.snapshotLastRun.Set(float64(now.Unix()))
	}
}

// ObserveChartLoad records a tab load served from the cache or upstream.
func (m *Metrics) ObserveChartLoad(tab string, cached bool) {
	if m == nil {
		return
	}
	source := "upstream"
	if cached {
		source = "cache"
	}
	m.chartLoads.WithLabelValues(tab, source).Inc()
}

// InstrumentHandler counts the responses of h under the handler label name.
func (m *Metrics) InstrumentHandler(name string, h http.Handler) http.Handler {
	if m == nil {
		return h
	}
	return promhttp.InstrumentHandlerCounter(
		m.responses.MustCurryWith(prometheus.Labels{"handler": name}),
		h,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
