// Package metrics exposes Prometheus collectors for the agent, the plan cache
// and the interactive surfaces.
package metrics

import (
	"errors"
	"time"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stepwise"

// Metrics implements agent.Observer and generator.CacheObserver.
type Metrics struct {
	solves         *prometheus.CounterVec
	attempts       *prometheus.CounterVec
	solveDuration  *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	rateLimited    prometheus.Counter
	sessionsActive prometheus.Gauge
}

// MustNew registers the collectors on reg and panics on a conflicting
// registration. Collectors already registered with an identical descriptor
// are reused, so calling MustNew twice on one registry is safe.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "solves_total",
			Help:      "Questions answered, by final status.",
		}, []string{"status"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "attempts_total",
			Help:      "Plan/execute/verify attempts, by outcome.",
		}, []string{"outcome"}),
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "solve_duration_seconds",
			Help:      "Wall time spent answering a question.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "cache_total",
			Help:      "Plan cache lookups, by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "sessions_active",
			Help:      "Open websocket console sessions.",
		}),
	}

	m.solves = register(reg, m.solves)
	m.attempts = register(reg, m.attempts)
	m.solveDuration = register(reg, m.solveDuration)
	m.cacheLookups = register(reg, m.cacheLookups)
	m.rateLimited = register(reg, m.rateLimited)
	m.sessionsActive = register(reg, m.sessionsActive)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// ObserveAttempt counts one loop attempt.
func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// ObserveSolve counts a finished solve and records its duration.
func (m *Metrics) ObserveSolve(status domain.Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.solves.WithLabelValues(string(status)).Inc()
	m.solveDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

// ObserveCache counts a plan cache lookup.
func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// IncRateLimited counts a rejected request.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// SessionOpened marks a console session as active.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

// SessionClosed marks a console session as finished.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}
