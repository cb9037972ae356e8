// Package metrics provides optional prometheus instrumentation for the
// websocket server. A nil *Metrics disables collection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the metrics collectors
type Config struct {
	// Namespace is the metrics namespace (default: "graphqlws")
	Namespace string

	// Registry is the prometheus registry to use
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Metrics instruments connections, subscriptions and outbound frames
type Metrics struct {
	connections   prometheus.Gauge
	subscriptions prometheus.Gauge
	outbound      *prometheus.CounterVec
}

func New(config Config) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "graphqlws"
	}

	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "connections_active",
			Help:      "Number of open websocket connections.",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "subscriptions_active",
			Help:      "Number of active subscription operations.",
		}),
		outbound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "outbound_frames_total",
			Help:      "Outbound frames sent to clients by message type.",
		}, []string{"type"}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) SubscriptionStarted() {
	if m == nil {
		return
	}
	m.subscriptions.Inc()
}

func (m *Metrics) SubscriptionEnded() {
	if m == nil {
		return
	}
	m.subscriptions.Dec()
}

func (m *Metrics) FrameSent(messageType string) {
	if m == nil {
		return
	}
	m.outbound.WithLabelValues(messageType).Inc()
}
