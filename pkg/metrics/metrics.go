package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JoinAttempts records token redemption attempts by outcome
	// (success|rejected|error).
	JoinAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_join_attempts_total",
			Help: "Total number of join token redemption attempts",
		},
		[]string{"result"},
	)

	// JoinRejections counts client-correctable rejections by machine code.
	JoinRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_join_rejections_total",
			Help: "Total number of rejected redemptions by reason code",
		},
		[]string{"code"},
	)

	// Compensations tracks identity rollback attempts after a failed
	// membership transaction (success|failure).
	Compensations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roster_join_compensations_total",
			Help: "Total number of identity compensation attempts",
		},
		[]string{"result"},
	)

	// RateLimitDrops counts requests rejected by the rate limiter.
	RateLimitDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roster_rate_limit_drops_total",
			Help: "Number of requests dropped by rate limiting",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roster_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
