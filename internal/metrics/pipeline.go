package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing pipeline Prometheus metrics.
var (
	JobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseindex",
			Name:      "jobs_processed_total",
			Help:      "Total number of indexing jobs processed",
		},
		[]string{"operation", "result"}, // result: "ok" / "retry" / "poison"
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caseindex",
			Name:      "job_duration_seconds",
			Help:      "Indexing job processing duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	PoisonJobsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "caseindex",
			Name:      "poison_jobs_total",
			Help:      "Total jobs moved to the dead-letter stream (exhausted retries or unparsable payloads)",
		},
	)

	IndexStaleness = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "caseindex",
			Name:      "index_staleness_seconds",
			Help:      "Observed lag between a relational change and its index write",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
	)

	IndexStalenessTarget = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caseindex",
			Name:      "index_staleness_target_seconds",
			Help:      "Configured staleness bound, exported for alerting against index_staleness_seconds",
		},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caseindex",
			Name:      "queue_depth",
			Help:      "Pending jobs on the indexing queue",
		},
	)

	ReindexEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "caseindex",
			Name:      "reindex_enqueued_total",
			Help:      "Total jobs enqueued by reindex runs",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers indexing pipeline metrics. Must be called
// once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(JobsProcessedTotal)
	prometheus.MustRegister(JobDuration)
	prometheus.MustRegister(PoisonJobsTotal)
	prometheus.MustRegister(IndexStaleness)
	prometheus.MustRegister(IndexStalenessTarget)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(ReindexEnqueuedTotal)
	pipelineMetricsRegistered = true
}
