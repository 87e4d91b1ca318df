// Package metrics exposes ingestion and Graph API counters. Metric variables
// stay nil until RegisterIngestMetrics runs, and the record helpers skip nil
// metrics, so packages can record unconditionally.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

var (
	graphRequestsTotal  *prometheus.CounterVec
	ingestStepsTotal    *prometheus.CounterVec
	rowsPersistedTotal  *prometheus.CounterVec
	rowsSkippedTotal    *prometheus.CounterVec
	ingestRunDuration   *prometheus.HistogramVec
	ingestLastRunFailed prometheus.Gauge
)

// InitRegistry creates the process registry with the Go and process
// collectors and the ingestion metrics. Later calls return the same registry.
func InitRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		RegisterIngestMetrics(registry)
	})
	return registry
}

func RegisterIngestMetrics(reg *prometheus.Registry) {
	if reg == nil {
		return
	}

	graphRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ig_graph_requests_total",
			Help: "Graph API requests by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	ingestStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ig_ingest_steps_total",
			Help: "Pipeline steps by name and status.",
		},
		[]string{"step", "status"},
	)

	rowsPersistedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ig_ingest_rows_persisted_total",
			Help: "Rows written by the ingestion pipeline per table.",
		},
		[]string{"table"},
	)

	rowsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ig_ingest_rows_skipped_total",
			Help: "Data points dropped during parsing per step.",
		},
		[]string{"step"},
	)

	ingestRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ig_ingest_run_duration_seconds",
			Help:    "Duration of complete ingestion runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"result"},
	)

	ingestLastRunFailed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ig_ingest_last_run_failed_steps",
		Help: "Number of failed steps in the most recent run.",
	})

	reg.MustRegister(
		graphRequestsTotal,
		ingestStepsTotal,
		rowsPersistedTotal,
		rowsSkippedTotal,
		ingestRunDuration,
		ingestLastRunFailed,
	)
}

func RecordGraphRequest(endpoint, outcome string) {
	if graphRequestsTotal != nil {
		graphRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	}
}

func RecordStep(step, status string) {
	if ingestStepsTotal != nil {
		ingestStepsTotal.WithLabelValues(step, status).Inc()
	}
}

func AddRowsPersisted(table string, n int) {
	if rowsPersistedTotal != nil && n > 0 {
		rowsPersistedTotal.WithLabelValues(table).Add(float64(n))
	}
}

func AddRowsSkipped(step string, n int) {
	if rowsSkippedTotal != nil && n > 0 {
		rowsSkippedTotal.WithLabelValues(step).Add(float64(n))
	}
}

func ObserveRun(d time.Duration, failedSteps int) {
	result := "clean"
	if failedSteps > 0 {
		result = "with_errors"
	}
	if ingestRunDuration != nil {
		ingestRunDuration.WithLabelValues(result).Observe(d.Seconds())
	}
	if ingestLastRunFailed != nil {
		ingestLastRunFailed.Set(float64(failedSteps))
	}
}

// Push sends everything in reg to a Pushgateway. The run-once ingest job has
// no scrape endpoint, so this is how its metrics leave the process.
func Push(ctx context.Context, url, job string, reg *prometheus.Registry) error {
	if url == "" || reg == nil {
		return nil
	}
	if err := push.New(url, job).Gatherer(reg).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
