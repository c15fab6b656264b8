package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pretender"

// Dispatch outcomes used as the outcome label.
const (
	OutcomeMocked    = "mocked"
	OutcomeRejected  = "rejected"
	OutcomeForwarded = "forwarded"
	OutcomeNoise     = "noise"
	OutcomeErrored   = "errored"
	OutcomeTunnelled = "tunnelled"
)

// Upstream results used as the result label.
const (
	UpstreamOK      = "ok"
	UpstreamTimeout = "timeout"
	UpstreamError   = "error"
)

// Metrics owns a private registry with pretender's collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	upstream *prometheus.HistogramVec
	reloads  *prometheus.CounterVec
	rules    prometheus.Gauge
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewBuildInfoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector(collectors.WithGoCollections(collectors.GoRuntimeMetricsCollection)))

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled by the proxy, by dispatch outcome.",
		}, []string{"outcome", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time spent answering a request, including artificial delays.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Latency of forwarded exchanges.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_reloads_total",
			Help:      "Rule file reload attempts.",
		}, []string{"result"}),
		rules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rules_loaded",
			Help:      "Rules in the current snapshot.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.upstream, m.reloads, m.rules)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRequest records one answered request.
func (m *Metrics) ObserveRequest(outcome, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome, method).Inc()
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveUpstream records one forwarded exchange.
func (m *Metrics) ObserveUpstream(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveReload records a rule reload. On failure the empty snapshot that
// replaced the rules is reflected as zero loaded rules.
func (m *Metrics) ObserveReload(rules int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.reloads.WithLabelValues("failure").Inc()
		m.rules.Set(0)
		return
	}
	m.reloads.WithLabelValues("success").Inc()
	m.rules.Set(float64(rules))
}

// QueueStats reports the delayed response backlog.
type QueueStats func() (queued, inFlight int)

// WatchScheduler exposes scheduler depth as gauges sampled on scrape.
func (m *Metrics) WatchScheduler(stats QueueStats) {
	if m == nil || stats == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_queue_depth",
			Help:      "Delayed responses waiting for a worker.",
		}, func() float64 {
			queued, _ := stats()
			return float64(queued)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_in_flight",
			Help:      "Delayed responses currently sleeping or rendering.",
		}, func() float64 {
			_, inFlight := stats()
			return float64(inFlight)
		}),
	)
}

type errLogger struct {
	log *slog.Logger
}

func (l errLogger) Println(v ...any) {
	l.log.Error("metrics handler error", "error", v)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler(log *slog.Logger) http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	opts := promhttp.HandlerOpts{Registry: m.registry}
	if log != nil {
		opts.ErrorLog = errLogger{log: log}
	}
	return promhttp.InstrumentMetricHandler(m.registry, promhttp.HandlerFor(m.registry, opts))
}
