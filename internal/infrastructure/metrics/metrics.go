package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 业务指标，nil 接收者上的方法都是空操作，测试中可以直接传 nil
type Metrics struct {
	generations  *prometheus.CounterVec
	reservations *prometheus.CounterVec
	refunds      *prometheus.CounterVec
	synthesis    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicestudio_generations_total",
			Help: "Speech generation attempts by result.",
		}, []string{"result"}),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicestudio_credit_reservations_total",
			Help: "Credit reservation attempts by result.",
		}, []string{"result"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicestudio_credit_refunds_total",
			Help: "Released credit reservations by source.",
		}, []string{"source"}),
		synthesis: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicestudio_synthesis_seconds",
			Help:    "Latency of external speech synthesis calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
	}
	reg.MustRegister(m.generations, m.reservations, m.refunds, m.synthesis)
	return m
}

func (m *Metrics) Generation(result string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(result).Inc()
}

func (m *Metrics) Reservation(result string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(result).Inc()
}

func (m *Metrics) Refund(source string) {
	if m == nil {
		return
	}
	m.refunds.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveSynthesis(d time.Duration) {
	if m == nil {
		return
	}
	m.synthesis.Observe(d.Seconds())
}
