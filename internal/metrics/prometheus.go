package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migitrader_cache_lookups_total",
			Help: "Total number of insights cache lookups",
		},
		[]string{"result"}, // result: hit|miss
	)

	CacheWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "migitrader_cache_write_failures_total",
			Help: "Total number of failed insights cache write-backs",
		},
	)

	// Upstream API metrics
	UpstreamAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migitrader_upstream_api_calls_total",
			Help: "Total number of NSE API call attempts",
		},
		[]string{"endpoint", "status"}, // status: success|error
	)

	UpstreamAPILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "migitrader_upstream_api_latency_seconds",
			Help:    "NSE API call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	// Pipeline metrics
	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "migitrader_pipeline_duration_seconds",
			Help:    "Daily insights pipeline duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"}, // outcome: cache_hit|computed|error
	)

	EventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "migitrader_event_publish_failures_total",
			Help: "Total number of failed insights event publishes",
		},
	)
)

// Register registers all collectors with the default registry
func Register() {
	prometheus.MustRegister(
		CacheLookups,
		CacheWriteFailures,
		UpstreamAPICalls,
		UpstreamAPILatency,
		PipelineDuration,
		EventPublishFailures,
	)
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
