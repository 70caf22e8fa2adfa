package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the enrichment counters. A nil receiver is a no-op, so
// CLI runs that skip the metrics endpoint can pass nil everywhere.
type Metrics struct {
	itemsProcessed *prometheus.CounterVec
	runsStarted    *prometheus.CounterVec
	zonesGenerated prometheus.Counter
}

// New registers the enrichment metrics on a registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		itemsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_items_processed_total",
			Help: "Work items processed, by flow and outcome.",
		}, []string{"flow", "status"}),
		runsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enricher_runs_started_total",
			Help: "Enrichment runs started, by flow.",
		}, []string{"flow"}),
		zonesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "enricher_zones_generated_total",
			Help: "Individual zone geometries generated.",
		}),
	}
}

// ItemProcessed records one completed work item.
func (m *Metrics) ItemProcessed(flow, status string) {
	if m == nil {
		return
	}
	m.itemsProcessed.WithLabelValues(flow, status).Inc()
}

// RunStarted records one run start.
func (m *Metrics) RunStarted(flow string) {
	if m == nil {
		return
	}
	m.runsStarted.WithLabelValues(flow).Inc()
}

// ZonesGenerated records generated zone geometries.
func (m *Metrics) ZonesGenerated(count int) {
	if m == nil {
		return
	}
	m.zonesGenerated.Add(float64(count))
}
