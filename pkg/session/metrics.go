package session

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "storefront"

// Renewal results reported on the renewals counter
const (
	resultSuccess  = "success"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// Termination reasons reported on the terminations counter
const (
	reasonExhausted      = "renewals_exhausted"
	reasonNoRefreshToken = "no_refresh_token"
	reasonRejected       = "renewal_rejected"
	reasonCleared        = "session_cleared"
)

// Metrics holds the executor's Prometheus collectors
type Metrics struct {
	Requests     prometheus.Counter
	Renewals     *prometheus.CounterVec
	Coalesced    prometheus.Counter
	Terminations *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg leaves them unregistered. Collectors already registered on reg
// are reused, so several executors can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Logical calls handed to the executor.",
		}),
		Renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "renewals_total",
			Help:      "Refresh token exchanges by result.",
		}, []string{"result"}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "renewals_coalesced_total",
			Help:      "Retries that reused a renewal performed by another call.",
		}),
		Terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "terminations_total",
			Help:      "Sessions ended by the executor, by reason.",
		}, []string{"reason"}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	if m.Requests, err = register(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.Renewals, err = register(reg, m.Renewals); err != nil {
		return nil, err
	}
	if m.Coalesced, err = register(reg, m.Coalesced); err != nil {
		return nil, err
	}
	if m.Terminations, err = register(reg, m.Terminations); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler exposes the collectors gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
