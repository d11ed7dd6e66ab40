package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type vestingMetrics struct {
	claims       *prometheus.CounterVec
	claimFailure *prometheus.CounterVec
	rpcRequests  *prometheus.CounterVec
}

var (
	vestingMetricsOnce sync.Once
	vestingRegistry    *vestingMetrics
)

// Vesting returns the lazily-initialised metrics registry tracking claim and
// RPC activity.
func Vesting() *vestingMetrics {
	vestingMetricsOnce.Do(func() {
		vestingRegistry = &vestingMetrics{
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kliver",
				Subsystem: "vesting",
				Name:      "claims_total",
				Help:      "Count of successful claims segmented by plan.",
			}, []string{"plan"}),
			claimFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kliver",
				Subsystem: "vesting",
				Name:      "claim_failures_total",
				Help:      "Count of rejected claims segmented by reason.",
			}, []string{"reason"}),
			rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "kliver",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
		}
		prometheus.MustRegister(
			vestingRegistry.claims,
			vestingRegistry.claimFailure,
			vestingRegistry.rpcRequests,
		)
	})
	return vestingRegistry
}

// RecordClaim increments the successful-claim counter for the plan label.
func (m *vestingMetrics) RecordClaim(plan string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(plan).Inc()
}

// RecordClaimFailure increments the rejected-claim counter for the reason.
func (m *vestingMetrics) RecordClaimFailure(reason string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(reason)
	if normalized == "" {
		normalized = "unknown"
	}
	m.claimFailure.WithLabelValues(normalized).Inc()
}

// RecordRPC increments the request counter for a method/outcome pair.
func (m *vestingMetrics) RecordRPC(method, outcome string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
}
