// Package metrics exposes Prometheus instruments for the entitlement engine
// and the request gate.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubscriptionTransitionsTotal counts engine mutations by action and resulting plan.
	SubscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "entitlements",
		Name:      "subscription_transitions_total",
		Help:      "Subscription mutations by action and resulting plan.",
	}, []string{"action", "plan"})

	// SubscriptionErrorsTotal counts rejected or failed engine operations.
	SubscriptionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "entitlements",
		Name:      "subscription_errors_total",
		Help:      "Failed subscription operations by action and error kind.",
	}, []string{"action", "kind"})

	// GateDecisionsTotal counts request gate outcomes for plan-restricted paths.
	GateDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketplace",
		Subsystem: "gate",
		Name:      "decisions_total",
		Help:      "Request gate decisions by required plan, outcome and reason.",
	}, []string{"plan", "allowed", "reason"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
