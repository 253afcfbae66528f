// Package metrics declares the Prometheus collectors the service exports on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts served requests by method and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_http_requests_total",
		Help: "HTTP requests by method and status",
	}, []string{"method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pantry_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// RoleCommands counts membership commands by command and outcome code.
	RoleCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_role_commands_total",
		Help: "Membership commands by command and result",
	}, []string{"command", "result"})

	// RosterMutations counts roster writes. result is one of created, noop,
	// removed, missing, error.
	RosterMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_roster_mutations_total",
		Help: "Ingredient roster mutations by operation and result",
	}, []string{"op", "result"})

	// RecommendCalls counts recommendation engine calls. result is one of ok,
	// error, superseded.
	RecommendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pantry_recommend_calls_total",
		Help: "Recommendation engine calls by result",
	}, []string{"result"})

	RecommendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pantry_recommend_call_duration_seconds",
		Help:    "Recommendation engine call latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	})

	RecommendInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pantry_recommend_inflight",
		Help: "Recommendation engine calls currently in flight",
	})
)
