// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CreditsDebited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyword_alchemist_credits_debited_total",
		Help: "Total credits debited across all access keys.",
	})

	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyword_alchemist_generation_attempts_total",
		Help: "Keyword generation attempts by outcome.",
	}, []string{"status"})

	SettlementShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyword_alchemist_settlement_shortfalls_total",
		Help: "Settlements that failed after generation work was already done.",
	})

	PaymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyword_alchemist_payment_events_total",
		Help: "Payment webhook events by type and outcome.",
	}, []string{"type", "outcome"})

	KeysCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyword_alchemist_access_keys_created_total",
		Help: "Access keys created, labeled by origin (payment or admin).",
	}, []string{"origin"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyword_alchemist_http_requests_total",
		Help: "HTTP requests by route pattern and status class.",
	}, []string{"pattern", "status"})
)
