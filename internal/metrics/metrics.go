package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway decision metrics, labelled by outcome so rejected traffic is
// visible without parsing logs.
var (
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Gated requests by gateway outcome.",
	}, []string{"outcome"})

	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_rate_limit_rejections_total",
		Help: "Rate-limit rejections by exceeded window.",
	}, []string{"window"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of gated requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

const (
	OutcomeAllowed       = "allowed"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeForbiddenIP   = "forbidden_ip"
	OutcomeRateLimited   = "rate_limited"
	OutcomeInternalError = "internal_error"
)
