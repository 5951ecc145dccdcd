package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	analyticsRunsTotal      *prometheus.CounterVec
	analyticsRunSeconds     prometheus.Histogram
	analyticsTutorsTotal    *prometheus.CounterVec
	evaluationsTotal        *prometheus.CounterVec
	eventsPublishedTotal    *prometheus.CounterVec
	dashboardCacheHitsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and batch jobs.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorq_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tutorq_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorq_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		analyticsRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorq_analytics_runs_total",
			Help: "Analytics pipeline runs by outcome.",
		}, []string{"status"})

		analyticsRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutorq_analytics_run_seconds",
			Help:    "Wall-clock duration of analytics pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		})

		analyticsTutorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorq_analytics_tutors_total",
			Help: "Tutors processed by the analytics pipeline by outcome.",
		}, []string{"outcome"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorq_session_evaluations_total",
			Help: "Session evaluation requests by outcome.",
		}, []string{"outcome"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorq_events_published_total",
			Help: "Domain events published to the broker.",
		}, []string{"type"})

		dashboardCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutorq_dashboard_cache_hits_total",
			Help: "Dashboard responses served from Redis.",
		}, []string{"view"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			analyticsRunsTotal,
			analyticsRunSeconds,
			analyticsTutorsTotal,
			evaluationsTotal,
			eventsPublishedTotal,
			dashboardCacheHitsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// AnalyticsRuns counts pipeline runs labelled by status (succeeded, failed).
func AnalyticsRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return analyticsRunsTotal
}

// AnalyticsRunDuration observes pipeline run durations.
func AnalyticsRunDuration() prometheus.Histogram {
	RegisterMetrics()
	return analyticsRunSeconds
}

// AnalyticsTutors counts per-tutor outcomes (updated, skipped, failed).
func AnalyticsTutors() *prometheus.CounterVec {
	RegisterMetrics()
	return analyticsTutorsTotal
}

// Evaluations counts session evaluations (evaluated, cached, failed).
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EventsPublished counts events pushed to Redis or NATS.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// DashboardCacheHits counts dashboard reads answered from cache.
func DashboardCacheHits() *prometheus.CounterVec {
	RegisterMetrics()
	return dashboardCacheHitsTotal
}
