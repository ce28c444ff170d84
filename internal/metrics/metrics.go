// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics implements draw.Observer and membership.Observer.
type Metrics struct {
	draws       *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rpcDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "santa",
			Name:      "draws_total",
			Help:      "Draw attempts by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "santa",
			Name:      "membership_transitions_total",
			Help:      "Committed membership transitions.",
		}, []string{"transition"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "santa",
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure and code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}
	reg.MustRegister(m.draws, m.transitions, m.rpcDuration)
	return m
}

// Draw counts a draw attempt.
func (m *Metrics) Draw(outcome string) {
	m.draws.WithLabelValues(outcome).Inc()
}

// Transition counts a membership transition.
func (m *Metrics) Transition(name string) {
	m.transitions.WithLabelValues(name).Inc()
}

// ObserveRPC records the duration of one RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}
