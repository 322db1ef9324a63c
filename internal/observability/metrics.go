package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	uploadLatencySeconds  prometheus.Histogram
	uploadRejectedTotal   *prometheus.CounterVec
	uploadRequestsTotal   *prometheus.CounterVec
	evaluationsTotal      *prometheus.CounterVec
	batchItemsTotal       *prometheus.CounterVec
	eventsPublishedTotal  *prometheus.CounterVec
	statsCacheLookupTotal *prometheus.CounterVec
	rateLimitedTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the prompt API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptvault_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "promptvault_upload_latency_seconds",
			Help:    "Time spent validating and storing uploaded prompt files.",
			Buckets: prometheus.DefBuckets,
		})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_upload_rejected_total",
			Help: "Uploaded prompt files rejected, by reason.",
		}, []string{"reason"})

		uploadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_upload_requests_total",
			Help: "Uploaded prompt files accepted, by detected MIME type.",
		}, []string{"mime"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_evaluations_total",
			Help: "Prompt evaluations persisted, by trigger.",
		}, []string{"trigger"})

		batchItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_batch_items_total",
			Help: "Batch evaluation items processed, by outcome.",
		}, []string{"outcome"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_events_published_total",
			Help: "Evaluation events published to the message bus, by result.",
		}, []string{"result"})

		statsCacheLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_stats_cache_lookups_total",
			Help: "Scoring statistics cache lookups, by result.",
		}, []string{"result"})

		rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptvault_rate_limited_total",
			Help: "Requests rejected by a rate limiter, by limiter name.",
		}, []string{"limiter"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			uploadLatencySeconds,
			uploadRejectedTotal,
			uploadRequestsTotal,
			evaluationsTotal,
			batchItemsTotal,
			eventsPublishedTotal,
			statsCacheLookupTotal,
			rateLimitedTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// UploadLatency exposes the upload processing histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// UploadRejected exposes the rejected upload counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// UploadRequests exposes the accepted upload counter.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequestsTotal
}

// Evaluations exposes the persisted evaluation counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// BatchItems exposes the batch item outcome counter.
func BatchItems() *prometheus.CounterVec {
	RegisterMetrics()
	return batchItemsTotal
}

// EventsPublished exposes the event publish counter.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// StatsCacheLookups exposes the statistics cache counter.
func StatsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statsCacheLookupTotal
}

// RateLimited exposes the rate limiter rejection counter.
func RateLimited() *prometheus.CounterVec {
	RegisterMetrics()
	return rateLimitedTotal
}
