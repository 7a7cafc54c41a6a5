// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recycle_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recycle_api_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	// Token ledger
	TokenEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_token_events_total",
			Help: "Token ledger events",
		},
		[]string{"event"}, // issued, rotated, revoked, reuse_rejected, blacklisted, purged
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	// Recommender
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_recommendation_requests_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // computed, cached, below_threshold, no_history
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recycle_recommendation_duration_seconds",
			Help:    "Time spent computing recommendations",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Classifier
	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_classifier_calls_total",
			Help: "Classifier calls by outcome",
		},
		[]string{"outcome"}, // identified, unidentified, error, rejected
	)

	ClassifierDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recycle_classifier_duration_seconds",
			Help:    "Classifier upstream latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recycle_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recycle_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordTokenEvent(event string) {
	TokenEvents.WithLabelValues(event).Inc()
}

func RecordLogin(result string) {
	LoginAttempts.WithLabelValues(result).Inc()
}

func RecordRecommendation(outcome string, duration time.Duration) {
	Recommendations.WithLabelValues(outcome).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

func RecordClassifierCall(outcome string, duration time.Duration) {
	ClassifierCalls.WithLabelValues(outcome).Inc()
	if duration > 0 {
		ClassifierDuration.Observe(duration.Seconds())
	}
}
