package stream

import "github.com/prometheus/client_golang/prometheus"

// metrics wraps the Prometheus counters tracking fan-in health, grounded on
// the same package-var-plus-init pattern the rate limiter uses.
type metrics struct {
	reconnections *prometheus.CounterVec
	messages      *prometheus.CounterVec
}

func (m *metrics) observeReconnection(stream string) {
	if m == nil {
		return
	}
	m.reconnections.WithLabelValues(stream).Inc()
}

func (m *metrics) observeMessage(stream string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(stream).Inc()
}

var globalMetrics = newMetrics()

func newMetrics() *metrics {
	m := &metrics{
		reconnections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_reconnections_total",
			Help: "Count of WebSocket reconnections after an unexpected close.",
		}, []string{"stream"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_messages_total",
			Help: "Count of WebSocket frames received.",
		}, []string{"stream"}),
	}
	prometheus.MustRegister(m.reconnections, m.messages)
	return m
}
