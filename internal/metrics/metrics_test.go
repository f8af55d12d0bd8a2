package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCommand(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCommand("deposit", OutcomeProcessed, time.Millisecond)
	m.ObserveCommand("deposit", OutcomeProcessed, time.Millisecond)
	m.ObserveCommand("withdrawal", "insufficient_funds", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CommandCount("deposit", OutcomeProcessed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandCount("withdrawal", "insufficient_funds")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CommandCount("dispute", OutcomeProcessed)))
}

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("GET", "/accounts", "200", 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCount("GET", "/accounts", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCommand("deposit", OutcomeProcessed, time.Millisecond)
		m.ObserveRequest("GET", "/health", "200", time.Millisecond)
	})
}
