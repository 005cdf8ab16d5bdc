// Package metrics holds the Prometheus collectors of the matcher.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "roomie"

// AI assessment outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeTimeout   = "timeout"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

var (
	AIAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_assessments_total",
			Help:      "AI assessments by outcome",
		},
		[]string{"outcome"},
	)

	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Time spent ranking a candidate pool",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"ai"},
	)

	MatchesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matches_returned",
			Help:      "Number of matches returned per ranking",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
