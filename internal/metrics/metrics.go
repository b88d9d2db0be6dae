// Package metrics exports check results in the Prometheus text format so a
// node_exporter textfile collector can scrape them.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kipp7/landslide-monitoring-v2/internal/problem"
)

// Kinds are exported on every run, zero included.
var Kinds = []string{
	problem.KindOpenAPI,
	problem.KindAPI,
	problem.KindSchema,
	problem.KindRegistry,
}

// Collector holds the gauges describing the most recent run.
type Collector struct {
	registry  *prometheus.Registry
	problems  *prometheus.GaugeVec
	success   prometheus.Gauge
	lastRun   prometheus.Gauge
	duration  prometheus.Histogram
	runsTotal *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		problems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "contractcheck",
			Name:      "problems",
			Help:      "Problems found by the last run, by kind.",
		}, []string{"kind"}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "contractcheck",
			Name:      "last_run_success",
			Help:      "1 if the last run found no problems, 0 otherwise.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "contractcheck",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "contractcheck",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full check run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "contractcheck",
			Name:      "runs_total",
			Help:      "Check runs by outcome.",
		}, []string{"result"}),
	}
	c.registry.MustRegister(c.problems, c.success, c.lastRun, c.duration, c.runsTotal)
	return c
}

// Record stores the outcome of one run.
func (c *Collector) Record(l problem.List, took time.Duration, finished time.Time) {
	counts := l.CountByKind()
	for _, k := range Kinds {
		c.problems.WithLabelValues(k).Set(float64(counts[k]))
	}
	for k, n := range counts {
		c.problems.WithLabelValues(k).Set(float64(n))
	}

	result := "passed"
	if l.Failed() {
		result = "failed"
		c.success.Set(0)
	} else {
		c.success.Set(1)
	}
	c.runsTotal.WithLabelValues(result).Inc()
	c.duration.Observe(took.Seconds())
	c.lastRun.Set(float64(finished.Unix()))
}

// Gatherer exposes the collector's registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile atomically writes the current values to path.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
