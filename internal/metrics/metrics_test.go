package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/ashureev/stepwise/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserversUpdateCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNew(reg)

	m.ObserveAttempt("execution_error")
	m.ObserveAttempt("passed")
	m.ObserveSolve(domain.StatusSuccess, 150*time.Millisecond)
	m.ObserveCache("miss")
	m.ObserveCache("hit_memory")
	m.ObserveCache("hit_memory")
	m.IncRateLimited()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.solves.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit_memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))

	expected := `
# HELP stepwise_agent_solves_total Questions answered, by final status.
# TYPE stepwise_agent_solves_total counter
stepwise_agent_solves_total{status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "stepwise_agent_solves_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.solveDuration))
}

func TestMustNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNew(reg)
	second := MustNew(reg)

	first.ObserveAttempt("passed")
	second.ObserveAttempt("passed")
	assert.Equal(t, 2.0, testutil.ToFloat64(first.attempts.WithLabelValues("passed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAttempt("passed")
		m.ObserveSolve(domain.StatusFailed, time.Second)
		m.ObserveCache("miss")
		m.IncRateLimited()
		m.SessionOpened()
		m.SessionClosed()
	})
}
