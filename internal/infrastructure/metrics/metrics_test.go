package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Generation("ok")
	m.Generation("ok")
	m.Reservation("insufficient")
	m.Refund("request")
	m.ObserveSynthesis(1500 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.generations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reservations.WithLabelValues("insufficient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refunds.WithLabelValues("request")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Generation("ok")
		m.Reservation("ok")
		m.Refund("reconcile")
		m.ObserveSynthesis(time.Second)
	})
}
