// Package metrics exposes Prometheus collectors for the API and the referral
// worker. Each process owns a private registry served on its /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "defence"

type registry struct {
	reg     *prometheus.Registry
	factory promauto.Factory
	labels  prometheus.Labels

	breakerTransitions *prometheus.CounterVec
}

func newRegistry(service string) registry {
	reg := prometheus.NewRegistry()
	r := registry{
		reg:     reg,
		factory: promauto.With(reg),
		labels:  prometheus.Labels{"service": service},
	}
	r.breakerTransitions = r.factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   "resilience",
		Name:        "breaker_transitions_total",
		Help:        "Circuit breaker state transitions by operation.",
		ConstLabels: r.labels,
	}, []string{"operation", "from", "to"})
	return r
}

func (r registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveBreakerTransition matches resilience.StateObserver.
func (r registry) ObserveBreakerTransition(operation, from, to string) {
	r.breakerTransitions.WithLabelValues(operation, from, to).Inc()
}
