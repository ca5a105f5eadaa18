// Package metrics exposes pipeline counters for Prometheus scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts job and step outcomes. A nil *Collector is valid and
// records nothing, so callers never need to guard instrumentation sites.
type Collector struct {
	registry *prometheus.Registry

	jobsIngested     prometheus.Counter
	stepsSucceeded   *prometheus.CounterVec
	stepsFailed      *prometheus.CounterVec
	retriesScheduled prometheus.Counter
	jobsErrored      prometheus.Counter
	jobsCompleted    prometheus.Counter
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidsum_jobs_ingested_total",
			Help: "Jobs accepted through POST /ingest.",
		}),
		stepsSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsum_steps_succeeded_total",
			Help: "Pipeline step executions that completed.",
		}, []string{"step"}),
		stepsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vidsum_steps_failed_total",
			Help: "Pipeline step executions that failed.",
		}, []string{"step"}),
		retriesScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidsum_retries_scheduled_total",
			Help: "Step retries scheduled by the orchestrator.",
		}),
		jobsErrored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidsum_jobs_errored_total",
			Help: "Jobs that reached the terminal error state.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vidsum_jobs_completed_total",
			Help: "Jobs that reached the done state.",
		}),
	}

	c.registry.MustRegister(
		c.jobsIngested,
		c.stepsSucceeded,
		c.stepsFailed,
		c.retriesScheduled,
		c.jobsErrored,
		c.jobsCompleted,
	)
	return c
}

// Handler serves the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) JobIngested() {
	if c == nil {
		return
	}
	c.jobsIngested.Inc()
}

func (c *Collector) StepSucceeded(step string) {
	if c == nil {
		return
	}
	c.stepsSucceeded.WithLabelValues(step).Inc()
}

func (c *Collector) StepFailed(step string) {
	if c == nil {
		return
	}
	c.stepsFailed.WithLabelValues(step).Inc()
}

func (c *Collector) RetryScheduled() {
	if c == nil {
		return
	}
	c.retriesScheduled.Inc()
}

func (c *Collector) JobErrored() {
	if c == nil {
		return
	}
	c.jobsErrored.Inc()
}

func (c *Collector) JobCompleted() {
	if c == nil {
		return
	}
	c.jobsCompleted.Inc()
}
