package main

import (
	"net/http"
	"time"

	"github.com/CTAG07/Dissociated/pkg/ngram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. Each server cycle gets
// its own registry so a restart can register them again.
type Metrics struct {
	registry      *prometheus.Registry
	modelsBuilt   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	generations   *prometheus.CounterVec
	manualSteps   *prometheus.CounterVec
	liveSessions  prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		modelsBuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dissociated_models_built_total",
				Help: "Number of models built and published, by model type.",
			},
			[]string{"order"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dissociated_model_build_duration_seconds",
				Help:    "Time spent building and storing a model.",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"order"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dissociated_generations_total",
				Help: "Number of automatic generations, by termination reason.",
			},
			[]string{"termination"},
		),
		manualSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dissociated_manual_steps_total",
				Help: "Number of accepted manual session steps, by choice kind.",
			},
			[]string{"choice"},
		),
		liveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dissociated_manual_sessions",
				Help: "Number of live manual sessions.",
			},
		),
	}
	m.registry.MustRegister(
		m.modelsBuilt,
		m.buildDuration,
		m.generations,
		m.manualSteps,
		m.liveSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBuild records a successful build.
func (m *Metrics) ObserveBuild(order ngram.Order, elapsed time.Duration) {
	m.modelsBuilt.WithLabelValues(order.Label()).Inc()
	m.buildDuration.WithLabelValues(order.Label()).Observe(elapsed.Seconds())
}

// ObserveGeneration records how an automatic generation ended.
func (m *Metrics) ObserveGeneration(status ngram.Status) {
	m.generations.WithLabelValues(status.String()).Inc()
}

// ObserveStep records an accepted manual step.
func (m *Metrics) ObserveStep(random bool) {
	choice := "explicit"
	if random {
		choice = "random"
	}
	m.manualSteps.WithLabelValues(choice).Inc()
}

// SetSessions records the number of live manual sessions.
func (m *Metrics) SetSessions(n int) {
	m.liveSessions.Set(float64(n))
}
