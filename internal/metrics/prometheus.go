// Package metrics provides a Prometheus metrics registry for the portfolio
// backend.
//
// All metrics are scoped to a private registry (not the global default) so
// they don't interfere with host-level metrics when embedded in other
// applications. The /metrics HTTP handler is exposed via Handler().
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120}

// Registry holds all exported metrics.
type Registry struct {
	reg *prometheus.Registry

	// portfolio_inflight_requests
	inFlight prometheus.Gauge

	// portfolio_http_requests_total{route,status}
	httpRequestsTotal *prometheus.CounterVec

	// portfolio_http_request_duration_seconds{route}
	httpDuration *prometheus.HistogramVec

	// portfolio_http_request_size_bytes{route}
	httpReqSize *prometheus.HistogramVec

	// portfolio_chat_requests_total{outcome}
	chatRequests *prometheus.CounterVec

	// portfolio_chat_errors_total{kind}
	chatErrors *prometheus.CounterVec

	// portfolio_chat_stream_duration_seconds{outcome}
	streamDuration *prometheus.HistogramVec

	// portfolio_chat_first_byte_seconds
	firstByte prometheus.Histogram

	// portfolio_chat_stream_events_total
	streamEvents prometheus.Counter

	// portfolio_chat_stream_parse_errors_total
	streamParseErrors prometheus.Counter

	// portfolio_upstream_requests_total{status}
	upstreamRequests *prometheus.CounterVec

	// portfolio_upstream_request_duration_seconds{status}
	upstreamDuration *prometheus.HistogramVec

	// portfolio_ratelimit_total{result}
	rateLimitTotal *prometheus.CounterVec

	// portfolio_ratelimit_store_errors_total
	rateLimitStoreErrors prometheus.Counter

	// portfolio_ratelimit_tracked_clients
	rateLimitTracked prometheus.Gauge

	// portfolio_circuit_breaker_state: 0=closed, 1=open, 2=half-open
	circuitBreakerState prometheus.Gauge

	// portfolio_circuit_breaker_transitions_total{to_state}
	cbTransitions *prometheus.CounterVec

	// portfolio_circuit_breaker_rejections_total
	cbRejections prometheus.Counter

	// portfolio_upstream_health: 1=ok, 0=degraded
	upstreamHealth prometheus.Gauge

	// portfolio_content_documents
	contentDocuments prometheus.Gauge

	// portfolio_content_reloads_total{result}
	contentReloads *prometheus.CounterVec

	// portfolio_cron_runs_total{job,result}
	cronRuns *prometheus.CounterVec

	// portfolio_build_info{version}
	buildInfo *prometheus.GaugeVec

	cbMu        sync.Mutex
	lastCBState int64
	cbSeen      bool

	metricsHandler fasthttp.RequestHandler
}

func New() *Registry {
	reg := prometheus.NewRegistry()

	// Baseline runtime metrics even with a private registry.
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	r := &Registry{
		reg: reg,

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"route", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_http_request_duration_seconds",
				Help:    "Time until the handler returned (streams continue afterwards)",
				Buckets: latencyBuckets,
			},
			[]string{"route"},
		),

		httpReqSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_http_request_size_bytes",
				Help:    "HTTP request body size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 2, 13), // 64B .. 256KB
			},
			[]string{"route"},
		),

		chatRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_chat_requests_total",
				Help: "Chat requests by final outcome",
			},
			[]string{"outcome"},
		),

		chatErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_chat_errors_total",
				Help: "Chat requests answered with an error, by kind",
			},
			[]string{"kind"},
		),

		streamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_chat_stream_duration_seconds",
				Help:    "Duration of streamed chat responses",
				Buckets: latencyBuckets,
			},
			[]string{"outcome"},
		),

		firstByte: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_chat_first_byte_seconds",
			Help:    "Time from request to the upstream response headers",
			Buckets: latencyBuckets,
		}),

		streamEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_chat_stream_events_total",
			Help: "Text events relayed to clients",
		}),

		streamParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_chat_stream_parse_errors_total",
			Help: "Upstream events that could not be parsed and were skipped",
		}),

		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_upstream_requests_total",
				Help: "Upstream completion calls by HTTP status (0 = transport failure)",
			},
			[]string{"status"},
		),

		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portfolio_upstream_request_duration_seconds",
				Help:    "Time until the upstream answered with headers",
				Buckets: latencyBuckets,
			},
			[]string{"status"},
		),

		rateLimitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_ratelimit_total",
				Help: "Rate limit decisions",
			},
			[]string{"result"},
		),

		rateLimitStoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_ratelimit_store_errors_total",
			Help: "Rate limit checks that failed open because the store was unavailable",
		}),

		rateLimitTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_ratelimit_tracked_clients",
			Help: "Clients with an in-memory rate limit window after the last sweep",
		}),

		circuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed,1=open,2=half-open)",
		}),

		cbTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_circuit_breaker_transitions_total",
				Help: "Circuit breaker transitions to a new state",
			},
			[]string{"to_state"},
		),

		cbRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_circuit_breaker_rejections_total",
			Help: "Chat requests rejected while the circuit breaker was open",
		}),

		upstreamHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_upstream_health",
			Help: "Upstream health status (1=ok, 0=degraded)",
		}),

		contentDocuments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portfolio_content_documents",
			Help: "Case-study documents currently indexed",
		}),

		contentReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_content_reloads_total",
				Help: "Content index reloads",
			},
			[]string{"result"},
		),

		cronRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolio_cron_runs_total",
				Help: "Scheduled job runs",
			},
			[]string{"job", "result"},
		),

		buildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "portfolio_build_info",
				Help: "Build information",
			},
			[]string{"version"},
		),
	}

	reg.MustRegister(
		r.inFlight,
		r.httpRequestsTotal,
		r.httpDuration,
		r.httpReqSize,
		r.chatRequests,
		r.chatErrors,
		r.streamDuration,
		r.firstByte,
		r.streamEvents,
		r.streamParseErrors,
		r.upstreamRequests,
		r.upstreamDuration,
		r.rateLimitTotal,
		r.rateLimitStoreErrors,
		r.rateLimitTracked,
		r.circuitBreakerState,
		r.cbTransitions,
		r.cbRejections,
		r.upstreamHealth,
		r.contentDocuments,
		r.contentReloads,
		r.cronRuns,
		r.buildInfo,
	)

	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	r.metricsHandler = fasthttpadaptor.NewFastHTTPHandler(h)

	return r
}

func (r *Registry) IncInFlight() { r.inFlight.Inc() }
func (r *Registry) DecInFlight() { r.inFlight.Dec() }

// ObserveHTTP records per-route HTTP metrics.
func (r *Registry) ObserveHTTP(route string, statusCode int, dur time.Duration, reqBytes int) {
	r.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(dur.Seconds())
	if reqBytes >= 0 {
		r.httpReqSize.WithLabelValues(route).Observe(float64(reqBytes))
	}
}

// RecordChat records the final outcome of a chat request. kind is the error
// kind, or "none".
func (r *Registry) RecordChat(outcome, kind string) {
	r.chatRequests.WithLabelValues(outcome).Inc()
	if kind != "" && kind != "none" {
		r.chatErrors.WithLabelValues(kind).Inc()
	}
}

// ObserveStream records a finished stream.
func (r *Registry) ObserveStream(outcome string, dur time.Duration, textEvents, parseErrors int) {
	r.streamDuration.WithLabelValues(outcome).Observe(dur.Seconds())
	r.streamEvents.Add(float64(textEvents))
	r.streamParseErrors.Add(float64(parseErrors))
}

// ObserveUpstream records one upstream call up to its response headers.
// status is 0 for transport failures.
func (r *Registry) ObserveUpstream(status int, dur time.Duration) {
	s := strconv.Itoa(status)
	r.upstreamRequests.WithLabelValues(s).Inc()
	r.upstreamDuration.WithLabelValues(s).Observe(dur.Seconds())
	if status >= 200 && status < 300 {
		r.firstByte.Observe(dur.Seconds())
	}
}

func (r *Registry) RecordRateLimit(result string) {
	r.rateLimitTotal.WithLabelValues(result).Inc()
}

func (r *Registry) RecordRateLimitStoreError() { r.rateLimitStoreErrors.Inc() }

func (r *Registry) SetRateLimitTracked(n int) { r.rateLimitTracked.Set(float64(n)) }

func (r *Registry) SetUpstreamHealth(ok bool) {
	if ok {
		r.upstreamHealth.Set(1)
		return
	}
	r.upstreamHealth.Set(0)
}

// RecordContentReload records a reload attempt and the resulting index size.
func (r *Registry) RecordContentReload(ok bool, documents int) {
	if !ok {
		r.contentReloads.WithLabelValues("error").Inc()
		return
	}
	r.contentReloads.WithLabelValues("ok").Inc()
	r.contentDocuments.Set(float64(documents))
}

func (r *Registry) RecordCronRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.cronRuns.WithLabelValues(job, result).Inc()
}

func (r *Registry) SetBuildInfo(version string) {
	// Gauge is used so the time series always exists.
	r.buildInfo.WithLabelValues(version).Set(1)
}

// SetCircuitBreaker sets the circuit breaker state gauge and increments a
// transition counter when the state changes.
func (r *Registry) SetCircuitBreaker(state int64) {
	r.circuitBreakerState.Set(float64(state))

	r.cbMu.Lock()
	if !r.cbSeen || r.lastCBState != state {
		r.cbSeen = true
		r.lastCBState = state
		r.cbTransitions.WithLabelValues(strconv.FormatInt(state, 10)).Inc()
	}
	r.cbMu.Unlock()
}

func (r *Registry) RecordCircuitBreakerRejection() { r.cbRejections.Inc() }

func (r *Registry) Handler() fasthttp.RequestHandler {
	return r.metricsHandler
}

func (r *Registry) PromRegistry() *prometheus.Registry { return r.reg }
