package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Bridge exposes a Registry as a prometheus.Collector so the exposition
// endpoint can be served by promhttp. Every scrape works off a snapshot,
// so scrapes never block collection rounds.
type Bridge struct {
	registry *Registry
}

// NewBridge wraps a registry for Prometheus exposition.
func NewBridge(r *Registry) *Bridge {
	return &Bridge{registry: r}
}

// Gatherer returns a prometheus.Gatherer serving only this registry.
func (b *Bridge) Gatherer() prometheus.Gatherer {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(b)
	return promReg
}

// Describe sends one desc per registered metric.
func (b *Bridge) Describe(ch chan<- *prometheus.Desc) {
	snap := b.registry.Snapshot()
	for _, d := range snap.Descriptors {
		ch <- prometheus.NewDesc(d.Name, d.Help, d.Labels, nil)
	}
}

// Collect converts the current snapshot into const metrics.
func (b *Bridge) Collect(ch chan<- prometheus.Metric) {
	snap := b.registry.Snapshot()
	for _, d := range snap.Descriptors {
		valueType := prometheus.GaugeValue
		if d.Kind == KindCounter {
			valueType = prometheus.CounterValue
		}
		desc := prometheus.NewDesc(d.Name, d.Help, d.Labels, nil)

		for _, s := range snap.Samples[d.Name] {
			m, err := prometheus.NewConstMetric(desc, valueType, s.Value, s.Labels...)
			if err != nil {
				continue
			}
			ch <- m
		}
	}
}
