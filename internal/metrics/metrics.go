// Package metrics collects and exposes Prometheus metrics for the
// email-processing pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records pipeline outcomes. The pipeline consumes it through this
// concrete type; a nil Collector is never passed around, callers that do not
// care about metrics use NewCollector with a throwaway registry.
type Collector struct {
	pipelineRuns       prometheus.Counter
	messagesFound      prometheus.Counter
	draftsCreated      prometheus.Counter
	generationFailures prometheus.Counter
	draftFailures      prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailagent_pipeline_runs_total",
			Help: "Total number of process-unread pipeline invocations",
		}),
		messagesFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailagent_pipeline_messages_total",
			Help: "Total number of unread messages fetched by the pipeline",
		}),
		draftsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailagent_pipeline_drafts_created_total",
			Help: "Total number of reply drafts successfully created",
		}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailagent_pipeline_generation_failures_total",
			Help: "Total number of reply generations that failed",
		}),
		draftFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mailagent_pipeline_draft_failures_total",
			Help: "Total number of draft creations that failed",
		}),
	}

	reg.MustRegister(
		c.pipelineRuns,
		c.messagesFound,
		c.draftsCreated,
		c.generationFailures,
		c.draftFailures,
	)

	return c
}

func (c *Collector) RecordPipelineRun() {
	c.pipelineRuns.Inc()
}

func (c *Collector) RecordMessagesFound(count int) {
	c.messagesFound.Add(float64(count))
}

func (c *Collector) RecordDraftCreated() {
	c.draftsCreated.Inc()
}

func (c *Collector) RecordGenerationFailure() {
	c.generationFailures.Inc()
}

func (c *Collector) RecordDraftFailure() {
	c.draftFailures.Inc()
}

// Handler returns the HTTP handler exposing metrics from reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
