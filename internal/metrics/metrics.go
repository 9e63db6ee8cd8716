// Package metrics exposes Prometheus counters for the post pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	Classified *prometheus.CounterVec
	Failures   *prometheus.CounterVec
	Indexed    prometheus.Counter
	Duplicates prometheus.Counter
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		Classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posts_classified_total",
			Help: "Posts classified, by strategy, waste category and requirement type",
		}, []string{"strategy", "category", "requirement_type"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posts_classification_failures_total",
			Help: "Posts that fell back to the default classification",
		}, []string{"strategy"}),
		Indexed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posts_indexed_total",
			Help: "Posts written to Elasticsearch",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posts_duplicates_total",
			Help: "Posts skipped because the same URL and content were already indexed",
		}),
	}
	reg.MustRegister(m.Classified, m.Failures, m.Indexed, m.Duplicates)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveClassified counts one classified post.
func (m *Metrics) ObserveClassified(strategy, category, requirement string) {
	if m == nil {
		return
	}
	if requirement == "" {
		requirement = "none"
	}
	m.Classified.WithLabelValues(strategy, category, requirement).Inc()
}

// ObserveFailure counts one fallback classification.
func (m *Metrics) ObserveFailure(strategy string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(strategy).Inc()
}

// ObserveIndexed counts one indexed post.
func (m *Metrics) ObserveIndexed() {
	if m == nil {
		return
	}
	m.Indexed.Inc()
}

// ObserveDuplicate counts one skipped duplicate.
func (m *Metrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.Duplicates.Inc()
}
