package edge

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache pipeline events. A nil *Metrics is valid and records
// nothing, so tests can run without a registry.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	revalidations prometheus.Counter
	fallbacks     prometheus.Counter
	storeErrors   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge", Name: "cache_hits_total",
			Help: "Responses served from the cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge", Name: "cache_misses_total",
			Help: "Requests that went to the origin for lack of a cache entry.",
		}),
		revalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge", Name: "cache_revalidations_total",
			Help: "Background revalidation fetches issued.",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge", Name: "offline_fallbacks_total",
			Help: "Navigations answered with the offline page.",
		}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "edge", Name: "cache_store_errors_total",
			Help: "Cache read/write failures swallowed as misses.",
		}),
	}
	reg.MustRegister(m.hits, m.misses, m.revalidations, m.fallbacks, m.storeErrors)
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) revalidation() {
	if m != nil {
		m.revalidations.Inc()
	}
}

func (m *Metrics) fallback() {
	if m != nil {
		m.fallbacks.Inc()
	}
}

func (m *Metrics) storeError() {
	if m != nil {
		m.storeErrors.Inc()
	}
}
