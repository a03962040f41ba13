package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics raccoglie le metriche Prometheus del backend
type Metrics struct {
	turnsTotal   *prometheus.CounterVec
	turnDuration *prometheus.HistogramVec
	reviewsOpen  prometheus.Gauge
}

// NewMetrics registra le metriche sul registry di default
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agriconnect"
	}

	m := &Metrics{}

	m.turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_turns_total",
			Help:      "Total number of agent turns by agent, action and status",
		},
		[]string{"agent", "action", "status"},
	)

	m.turnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_turn_duration_milliseconds",
			Help:      "Agent turn duration in milliseconds",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"agent"},
	)

	m.reviewsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reviews_open",
			Help:      "Number of outcomes waiting for human review",
		},
	)

	return m
}

// ObserveTurn registra l'esito di un turno agente
func (m *Metrics) ObserveTurn(agent, action string, success, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}

	status := "success"
	switch {
	case failed:
		status = "error"
	case !success:
		status = "failure"
	}
	if agent == "" {
		agent = "unknown"
	}
	if action == "" {
		action = "unknown"
	}

	m.turnsTotal.WithLabelValues(agent, action, status).Inc()
	m.turnDuration.WithLabelValues(agent).Observe(float64(elapsed.Milliseconds()))
}

// SetOpenReviews aggiorna il conteggio delle pratiche aperte
func (m *Metrics) SetOpenReviews(n int) {
	if m == nil {
		return
	}
	m.reviewsOpen.Set(float64(n))
}
