package oms

import "github.com/prometheus/client_golang/prometheus"

// metrics wraps the Prometheus gauge/counter tracking OMS health, grounded
// on the rate limiter's package-var-plus-init pattern.
type metrics struct {
	registrySize   prometheus.Gauge
	updatesApplied prometheus.Counter
}

func (m *metrics) setRegistrySize(n int) {
	if m == nil {
		return
	}
	m.registrySize.Set(float64(n))
}

func (m *metrics) addUpdatesApplied(n int) {
	if m == nil || n == 0 {
		return
	}
	m.updatesApplied.Add(float64(n))
}

var globalMetrics = newMetrics()

func newMetrics() *metrics {
	m := &metrics{
		registrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oms_registry_size",
			Help: "Number of orders currently held in the OMS registry.",
		}),
		updatesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oms_reconciler_updates_applied_total",
			Help: "Count of registry mutations applied by the reconciler.",
		}),
	}
	prometheus.MustRegister(m.registrySize, m.updatesApplied)
	return m
}
