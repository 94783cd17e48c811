// Package metrics bundles the Prometheus collectors shared by the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the enhancement pipeline.
type Metrics struct {
	Registry            *prometheus.Registry
	ProductsTotal       *prometheus.CounterVec
	EnhancementsTotal   *prometheus.CounterVec
	EnhancementFailures *prometheus.CounterVec
	GenerateDuration    prometheus.Histogram
	RetriesTotal        prometheus.Counter
	SinkWritesTotal     *prometheus.CounterVec
	BatchesTotal        prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	products := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enhancer_products_total",
			Help: "Products attempted by the orchestrator, by result.",
		},
		[]string{"result"},
	)
	enhancements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enhancer_enhancements_total",
			Help: "Enhancement outcomes: ai, cached or fallback.",
		},
		[]string{"outcome"},
	)
	failures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enhancer_enhancement_failures_total",
			Help: "Enhancement fallbacks by reason.",
		},
		[]string{"reason"},
	)
	generateDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "enhancer_generate_duration_seconds",
			Help:    "Latency of generator calls including retries.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enhancer_retries_total",
			Help: "Total number of generator retry attempts.",
		},
	)
	sinkWrites := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enhancer_sink_writes_total",
			Help: "Sink upserts by result.",
		},
		[]string{"result"},
	)
	batches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enhancer_batches_total",
			Help: "Batches completed by the orchestrator.",
		},
	)

	registry.MustRegister(products, enhancements, failures, generateDuration, retries, sinkWrites, batches)

	return &Metrics{
		Registry:            registry,
		ProductsTotal:       products,
		EnhancementsTotal:   enhancements,
		EnhancementFailures: failures,
		GenerateDuration:    generateDuration,
		RetriesTotal:        retries,
		SinkWritesTotal:     sinkWrites,
		BatchesTotal:        batches,
	}
}

// IncProduct counts one attempted product under a result label.
func (m *Metrics) IncProduct(result string) {
	if m == nil {
		return
	}
	m.ProductsTotal.WithLabelValues(result).Inc()
}

// IncEnhancement counts one enhancement outcome.
func (m *Metrics) IncEnhancement(outcome string) {
	if m == nil {
		return
	}
	m.EnhancementsTotal.WithLabelValues(outcome).Inc()
}

// IncEnhancementFailure counts a fallback for a reason label.
func (m *Metrics) IncEnhancementFailure(reason string) {
	if m == nil {
		return
	}
	m.EnhancementFailures.WithLabelValues(reason).Inc()
}

// ObserveGenerate records a generator call duration.
func (m *Metrics) ObserveGenerate(d time.Duration) {
	if m == nil {
		return
	}
	m.GenerateDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncSinkWrite counts a sink upsert.
func (m *Metrics) IncSinkWrite(result string) {
	if m == nil {
		return
	}
	m.SinkWritesTotal.WithLabelValues(result).Inc()
}

// IncBatch counts a completed batch.
func (m *Metrics) IncBatch() {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
}
