// Package observability exposes Prometheus collectors for the data pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the pipeline counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	datasetLoads    *prometheus.CounterVec
	discoveryTier   *prometheus.CounterVec
	supersededLoads prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		datasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simba",
			Name:      "dataset_loads_total",
			Help:      "Dataset file loads by outcome.",
		}, []string{"outcome"}),
		discoveryTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simba",
			Name:      "file_discovery_total",
			Help:      "File discovery results by the tier that produced them.",
		}, []string{"tier"}),
		supersededLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "simba",
			Name:      "session_superseded_loads_total",
			Help:      "Loads dropped because a newer selection started.",
		}),
	}

	for _, c := range []prometheus.Collector{m.datasetLoads, m.discoveryTier, m.supersededLoads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DatasetLoaded records a dataset load outcome ("ok", "network", "parse").
func (m *Metrics) DatasetLoaded(outcome string) {
	if m == nil {
		return
	}
	m.datasetLoads.WithLabelValues(outcome).Inc()
}

// DiscoveryTier records which discovery tier produced the file list.
func (m *Metrics) DiscoveryTier(tier string) {
	if m == nil {
		return
	}
	m.discoveryTier.WithLabelValues(tier).Inc()
}

// LoadSuperseded records a dropped stale load.
func (m *Metrics) LoadSuperseded() {
	if m == nil {
		return
	}
	m.supersededLoads.Inc()
}
