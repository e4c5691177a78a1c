package resilience

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BreakerState exposes the current breaker state per target
	// (0 closed, 1 open, 2 half-open).
	BreakerState *prometheus.GaugeVec

	// BreakerTransitions counts state transitions per target.
	BreakerTransitions *prometheus.CounterVec

	// BreakerOpenedTotal counts how many times a breaker opened.
	BreakerOpenedTotal *prometheus.CounterVec

	metricsOnce sync.Once
)

// MustRegisterMetrics initializes the resilience collectors under the given
// namespace and registers them with reg. Safe to call more than once.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Current circuit breaker state (0 closed, 1 open, 2 half-open).",
		}, []string{"target"})

		BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"target", "from_state", "to_state"})

		BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "opened_total",
			Help:      "Number of times the circuit breaker opened.",
		}, []string{"target"})
	})

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	BreakerState = mustRegisterGaugeVec(reg, BreakerState)
	BreakerTransitions = mustRegisterCounterVec(reg, BreakerTransitions)
	BreakerOpenedTotal = mustRegisterCounterVec(reg, BreakerOpenedTotal)
}

func mustRegisterGaugeVec(reg prometheus.Registerer, c *prometheus.GaugeVec) *prometheus.GaugeVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if ok := errors.As(err, &are); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func mustRegisterCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if ok := errors.As(err, &are); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
