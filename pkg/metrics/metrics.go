// Package metrics exposes Prometheus instrumentation for semcache. Every method
// is safe to call on a nil *Metrics so components can run uninstrumented.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace       = "semcache"
	SubsystemCache  = "cache"
	SubsystemHTTP   = "http"
	SubsystemLLM    = "llm"
	SubsystemSystem = "system"
)

// Lookup outcomes.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	startTime prometheus.Gauge

	lookups       *prometheus.CounterVec
	lookupLatency prometheus.Histogram
	inserts       prometheus.Counter
	errors        *prometheus.CounterVec
	rehydrations  prometheus.Counter
	indexSize     prometheus.Gauge

	apiTime      *prometheus.HistogramVec
	httpRequests prometheus.Counter
	httpErrors   prometheus.Counter

	llmRequests *prometheus.CounterVec
}

// New creates the collectors and registers them, along with the process and
// Go runtime collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: SubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the process started.",
	})
	m.startTime.SetToCurrentTime()

	m.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemCache,
		Name:      "lookups_total",
		Help:      "Cache lookups by result.",
	}, []string{"result"})

	m.lookupLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemCache,
		Name:      "lookup_duration_seconds",
		Help:      "Time to embed and search a query.",
		Buckets:   prometheus.DefBuckets,
	})

	m.inserts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemCache,
		Name:      "inserts_total",
		Help:      "Records appended to the cache.",
	})

	m.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemCache,
		Name:      "errors_total",
		Help:      "Cache operation failures by operation.",
	}, []string{"op"})

	m.rehydrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemCache,
		Name:      "rehydrations_total",
		Help:      "Times the in-memory index was rebuilt from the store.",
	})

	m.indexSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: SubsystemCache,
		Name:      "index_vectors",
		Help:      "Vectors currently held by the in-memory index.",
	})

	m.apiTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "time_seconds",
		Help:      "Time to execute the api handler.",
	}, []string{"handler", "method", "status_code"})

	m.httpRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "requests_total",
		Help:      "The total number of http API requests.",
	})

	m.httpErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemHTTP,
		Name:      "errors_total",
		Help:      "The total number of http API errors.",
	})

	m.llmRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: SubsystemLLM,
		Name:      "requests_total",
		Help:      "Upstream LLM requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	m.registry.MustRegister(
		m.startTime,
		m.lookups,
		m.lookupLatency,
		m.inserts,
		m.errors,
		m.rehydrations,
		m.indexSize,
		m.apiTime,
		m.httpRequests,
		m.httpErrors,
		m.llmRequests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveLookup(result string, seconds float64) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
	m.lookupLatency.Observe(seconds)
}

func (m *Metrics) IncrementInserts() {
	if m != nil {
		m.inserts.Inc()
	}
}

func (m *Metrics) IncrementErrors(op string) {
	if m != nil {
		m.errors.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) IncrementRehydrations() {
	if m != nil {
		m.rehydrations.Inc()
	}
}

func (m *Metrics) SetIndexSize(n int) {
	if m != nil {
		m.indexSize.Set(float64(n))
	}
}

func (m *Metrics) ObserveAPIEndpointDuration(handler, method, statusCode string, elapsed float64) {
	if m != nil {
		m.apiTime.With(prometheus.Labels{"handler": handler, "method": method, "status_code": statusCode}).Observe(elapsed)
	}
}

func (m *Metrics) IncrementHTTPRequests() {
	if m != nil {
		m.httpRequests.Inc()
	}
}

func (m *Metrics) IncrementHTTPErrors() {
	if m != nil {
		m.httpErrors.Inc()
	}
}

func (m *Metrics) IncrementLLMRequests(provider, outcome string) {
	if m != nil {
		m.llmRequests.WithLabelValues(provider, outcome).Inc()
	}
}
