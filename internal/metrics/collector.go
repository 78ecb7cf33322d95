// Package metrics exposes Prometheus counters and histograms for the
// generation pipeline. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry so tests and multiple servers in one process do
// not collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	pollTicksTotal       *prometheus.CounterVec
	jobTransitionsTotal  *prometheus.CounterVec
	recoveryTotal        *prometheus.CounterVec
	storageFallbackTotal *prometheus.CounterVec
	credentialSources    *prometheus.CounterVec

	dbQueryDuration *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	c := &Collector{registry: reg}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	c.generationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation requests by kind, service and outcome",
		},
		[]string{"kind", "service", "outcome"},
	)
	c.generationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "End-to-end generation latency including polling",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind", "service"},
	)

	c.pollTicksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_ticks_total",
			Help:      "Job poll ticks by service",
		},
		[]string{"service"},
	)
	c.jobTransitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_transitions_total",
			Help:      "Job state transitions",
		},
		[]string{"service", "from", "to"},
	)
	c.recoveryTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "structured_output_recoveries_total",
			Help:      "Structured output recoveries by strategy",
		},
		[]string{"strategy"},
	)
	c.storageFallbackTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_fallbacks_total",
			Help:      "Asset persistence failures that fell back to the original reference",
		},
		[]string{"family"},
	)
	c.credentialSources = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_resolutions_total",
			Help:      "Credential resolutions by service and origin",
		},
		[]string{"service", "origin"},
	)
	c.dbQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"query"},
	)
	return c
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGeneration counts one finished request. outcome is "success" or an
// error kind.
func (c *Collector) RecordGeneration(kind, service, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.generationsTotal.WithLabelValues(kind, service, outcome).Inc()
	c.generationDuration.WithLabelValues(kind, service).Observe(duration.Seconds())
}

func (c *Collector) RecordPollTick(service string) {
	if c == nil {
		return
	}
	c.pollTicksTotal.WithLabelValues(service).Inc()
}

func (c *Collector) RecordJobTransition(service, from, to string) {
	if c == nil {
		return
	}
	c.jobTransitionsTotal.WithLabelValues(service, from, to).Inc()
}

func (c *Collector) RecordRecovery(strategy string) {
	if c == nil {
		return
	}
	c.recoveryTotal.WithLabelValues(strategy).Inc()
}

func (c *Collector) RecordStorageFallback(family string) {
	if c == nil {
		return
	}
	c.storageFallbackTotal.WithLabelValues(family).Inc()
}

func (c *Collector) RecordCredential(service, origin string) {
	if c == nil {
		return
	}
	c.credentialSources.WithLabelValues(service, origin).Inc()
}

func (c *Collector) RecordDBQuery(query string, duration time.Duration) {
	if c == nil {
		return
	}
	c.dbQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}
