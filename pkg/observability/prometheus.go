package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusHooks implements EngineHooks, CacheHooks and HTTPHooks by
// updating Prometheus collectors.
type PrometheusHooks struct {
	cacheOps        *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	checks          *prometheus.CounterVec
	updates         prometheus.Counter
	conflicts       *prometheus.CounterVec
	graphNodes      prometheus.Gauge
}

// NewPrometheusHooks creates the collectors and registers them with reg.
func NewPrometheusHooks(reg prometheus.Registerer) (*PrometheusHooks, error) {
	h := &PrometheusHooks{
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerguard",
			Name:      "cache_operations_total",
			Help:      "Version cache lookups and writes by backend and outcome.",
		}, []string{"backend", "op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerguard",
			Name:      "registry_requests_total",
			Help:      "Registry responses by host and status code.",
		}, []string{"host", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "peerguard",
			Name:      "registry_request_duration_seconds",
			Help:      "Registry request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"host"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerguard",
			Name:      "registry_request_errors_total",
			Help:      "Registry requests that failed before a response arrived.",
		}, []string{"host"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerguard",
			Name:      "checks_total",
			Help:      "Update checks by policy.",
		}, []string{"policy"}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "peerguard",
			Name:      "updates_found_total",
			Help:      "Available updates reported by update checks.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerguard",
			Name:      "peer_conflicts_total",
			Help:      "Peer conflicts by severity.",
		}, []string{"severity"}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "peerguard",
			Name:      "peer_graph_nodes",
			Help:      "Node count of the most recently built peer graph.",
		}),
	}

	for _, c := range []prometheus.Collector{
		h.cacheOps, h.requests, h.requestDuration, h.requestErrors,
		h.checks, h.updates, h.conflicts, h.graphNodes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *PrometheusHooks) OnCheckComplete(_ context.Context, policy string, updates, _ int, _ time.Duration) {
	h.checks.WithLabelValues(policy).Inc()
	h.updates.Add(float64(updates))
}

func (h *PrometheusHooks) OnGraphBuilt(_ context.Context, nodes, _ int, _ time.Duration) {
	h.graphNodes.Set(float64(nodes))
}

func (h *PrometheusHooks) OnConflicts(_ context.Context, errors, warnings int) {
	h.conflicts.WithLabelValues("error").Add(float64(errors))
	h.conflicts.WithLabelValues("warning").Add(float64(warnings))
}

func (h *PrometheusHooks) OnCacheHit(_ context.Context, backend string) {
	h.cacheOps.WithLabelValues(backend, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, backend string) {
	h.cacheOps.WithLabelValues(backend, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheStale(_ context.Context, backend string) {
	h.cacheOps.WithLabelValues(backend, "stale").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, backend string) {
	h.cacheOps.WithLabelValues(backend, "set").Inc()
}

func (h *PrometheusHooks) OnRequest(context.Context, string, string, string) {}

func (h *PrometheusHooks) OnResponse(_ context.Context, _, host, _ string, statusCode int, d time.Duration) {
	h.requests.WithLabelValues(host, strconv.Itoa(statusCode)).Inc()
	h.requestDuration.WithLabelValues(host).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnError(_ context.Context, _, host, _ string, _ error) {
	h.requestErrors.WithLabelValues(host).Inc()
}

var (
	_ EngineHooks = (*PrometheusHooks)(nil)
	_ CacheHooks  = (*PrometheusHooks)(nil)
	_ HTTPHooks   = (*PrometheusHooks)(nil)
)
