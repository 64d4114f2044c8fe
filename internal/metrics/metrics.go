package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pts"

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	runsTotal       *prometheus.CounterVec
	lastRunSuccess  prometheus.Gauge
	fetchAttempts   *prometheus.CounterVec
	enrichmentGaps  *prometheus.CounterVec
	messagesTotal   *prometheus.CounterVec
	llmRequests     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	signalsReported prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Pipeline metrics
	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"status"},
	)
	r.lastRunSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last pipeline run succeeded, 0 otherwise",
		},
	)
	r.fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Total number of ranking fetch attempts",
		},
		[]string{"source", "outcome"},
	)
	r.enrichmentGaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_gaps_total",
			Help:      "Total number of failed per-symbol sub-fetches",
		},
		[]string{"part"},
	)
	r.messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Total number of notification messages by delivery status",
		},
		[]string{"status"},
	)
	r.llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by outcome",
		},
		[]string{"provider", "outcome"},
	)
	r.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
	r.signalsReported = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "signals_reported",
			Help:      "Number of symbols in the last report",
		},
	)

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.lastRunSuccess)
	reg.MustRegister(r.fetchAttempts)
	reg.MustRegister(r.enrichmentGaps)
	reg.MustRegister(r.messagesTotal)
	reg.MustRegister(r.llmRequests)
	reg.MustRegister(r.stageDuration)
	reg.MustRegister(r.signalsReported)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordRun records a finished pipeline run.
func (r *Registry) RecordRun(ok bool) {
	if ok {
		r.runsTotal.WithLabelValues("success").Inc()
		r.lastRunSuccess.Set(1)
		return
	}
	r.runsTotal.WithLabelValues("failure").Inc()
	r.lastRunSuccess.Set(0)
}

// RecordFetchAttempt records one ranking fetch attempt.
func (r *Registry) RecordFetchAttempt(source, outcome string) {
	r.fetchAttempts.WithLabelValues(source, outcome).Inc()
}

// RecordEnrichmentGap records a failed enrichment sub-fetch.
func (r *Registry) RecordEnrichmentGap(part string) {
	r.enrichmentGaps.WithLabelValues(part).Inc()
}

// RecordMessage records one notification message.
func (r *Registry) RecordMessage(status string) {
	r.messagesTotal.WithLabelValues(status).Inc()
}

// RecordLLMRequest records one LLM request.
func (r *Registry) RecordLLMRequest(provider, outcome string) {
	r.llmRequests.WithLabelValues(provider, outcome).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (r *Registry) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetSignalsReported sets the number of symbols in the last report.
func (r *Registry) SetSignalsReported(n int) {
	r.signalsReported.Set(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
