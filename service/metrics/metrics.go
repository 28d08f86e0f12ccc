// Package metrics exposes all Prometheus collectors for the application
// through explicit dependency injection, following the same factory
// pattern as the upstream wallet-monitor service this was adapted from.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the process registers. It is
// constructed once at startup and passed explicitly to every component
// that records a metric; there is no package-level global.
type Metrics struct {
	// RPC / Helius client (C2)
	rpcCallsTotal       *prometheus.CounterVec
	rpcCallDuration     *prometheus.HistogramVec
	rpcRetriesTotal     *prometheus.CounterVec
	rpcSignaturesPerCall prometheus.Histogram
	rateLimitWaitSeconds prometheus.Histogram

	// Ingestion engine (C6)
	ingestSignaturesSeenTotal   *prometheus.CounterVec
	ingestCacheHitsTotal        prometheus.Counter
	ingestCacheMissesTotal      prometheus.Counter
	ingestLegitMissingTotal     prometheus.Counter
	ingestFailedMissingTotal    prometheus.Counter
	ingestBatchDuration         *prometheus.HistogramVec
	ingestRunDuration           *prometheus.HistogramVec

	// Swap store (C5)
	storeWritesTotal     *prometheus.CounterVec
	storeDuplicatesTotal prometheus.Counter
	storeQueryDuration   *prometheus.HistogramVec

	// Correlation analyzer (C9)
	correlationPairsEmitted   prometheus.Counter
	correlationClustersFound  prometheus.Counter
	correlationRunDuration    prometheus.Histogram

	// Temporal workflow/activity
	workflowDuration *prometheus.HistogramVec
	activityDuration *prometheus.HistogramVec

	// NATS
	natsPublishTotal    *prometheus.CounterVec
	natsPublishDuration prometheus.Histogram
}

// New creates a Metrics instance and registers all collectors against
// registry. A nil registry registers against prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	f := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solwatch_rpc_calls_total",
			Help: "Total outbound RPC/Helius calls by method and outcome.",
		}, []string{"method", "status"}),
		rpcCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solwatch_rpc_call_duration_seconds",
			Help:    "Duration of outbound RPC/Helius calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		rpcRetriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solwatch_rpc_retries_total",
			Help: "Total retry attempts by RPC method.",
		}, []string{"method"}),
		rpcSignaturesPerCall: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "solwatch_rpc_signatures_per_call",
			Help:    "Number of signatures returned per paginated/batch RPC call.",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		}),
		rateLimitWaitSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "solwatch_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the process-global rate limiter.",
			Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		ingestSignaturesSeenTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solwatch_ingest_signatures_seen_total",
			Help: "Signatures observed during ingestion, by classification.",
		}, []string{"classification"}),
		ingestCacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_ingest_cache_hits_total",
			Help: "Signatures found in the cache during the cache-diff step.",
		}),
		ingestCacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_ingest_cache_misses_total",
			Help: "Signatures absent from the cache during the cache-diff step.",
		}),
		ingestLegitMissingTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_ingest_legit_missing_total",
			Help: "Signatures classified legit-missing (RPC ok, indexer gap).",
		}),
		ingestFailedMissingTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_ingest_failed_missing_total",
			Help: "Signatures classified failed-missing (on-chain tx failed).",
		}),
		ingestBatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solwatch_ingest_batch_duration_seconds",
			Help:    "Duration of a single getTransactionsBatch fetch+process cycle.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"phase"}),
		ingestRunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solwatch_ingest_run_duration_seconds",
			Help:    "Duration of a full ingest() call for one wallet.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"status"}),

		storeWritesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solwatch_store_writes_total",
			Help: "Rows written to the swap store, by table and outcome.",
		}, []string{"table", "status"}),
		storeDuplicatesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_store_duplicates_total",
			Help: "Rows skipped due to the uniqueness-key collision.",
		}),
		storeQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solwatch_store_query_duration_seconds",
			Help:    "Duration of store queries by operation.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),

		correlationPairsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_correlation_pairs_emitted_total",
			Help: "Wallet pairs emitted by the correlation analyzer across all runs.",
		}),
		correlationClustersFound: f.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_correlation_clusters_found_total",
			Help: "Clusters extracted by the correlation analyzer across all runs.",
		}),
		correlationRunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "solwatch_correlation_run_duration_seconds",
			Help:    "Duration of a full correlation analysis run.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}),

		workflowDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solwatch_workflow_duration_seconds",
			Help:    "Duration of Temporal workflow executions.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"workflow", "status"}),
		activityDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solwatch_activity_duration_seconds",
			Help:    "Duration of Temporal activity executions.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"activity"}),

		natsPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "solwatch_nats_publish_total",
			Help: "NATS publishes by subject and outcome.",
		}, []string{"subject", "status"}),
		natsPublishDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "solwatch_nats_publish_duration_seconds",
			Help:    "Duration of NATS publish operations.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

// RecordRPCCall records one outbound RPC/Helius call.
func (m *Metrics) RecordRPCCall(method string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.rpcCallsTotal.WithLabelValues(method, status).Inc()
	m.rpcCallDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRPCRetry records one retry attempt for method.
func (m *Metrics) RecordRPCRetry(method string) {
	m.rpcRetriesTotal.WithLabelValues(method).Inc()
}

// RecordSignaturesPerCall records the size of one paginated/batch response.
func (m *Metrics) RecordSignaturesPerCall(count int) {
	m.rpcSignaturesPerCall.Observe(float64(count))
}

// RecordRateLimitWait records time spent blocked on the rate limiter.
func (m *Metrics) RecordRateLimitWait(d time.Duration) {
	m.rateLimitWaitSeconds.Observe(d.Seconds())
}

// RecordSignatureClassification records one signature's phase-2 fate.
func (m *Metrics) RecordSignatureClassification(classification string) {
	m.ingestSignaturesSeenTotal.WithLabelValues(classification).Inc()
}

// RecordCacheDiff records the outcome of one cache-diff lookup.
func (m *Metrics) RecordCacheDiff(hits, misses int) {
	m.ingestCacheHitsTotal.Add(float64(hits))
	m.ingestCacheMissesTotal.Add(float64(misses))
}

// RecordLegitMissing records a batch of legit-missing signatures.
func (m *Metrics) RecordLegitMissing(count int) {
	m.ingestLegitMissingTotal.Add(float64(count))
}

// RecordFailedMissing records a batch of failed-missing signatures.
func (m *Metrics) RecordFailedMissing(count int) {
	m.ingestFailedMissingTotal.Add(float64(count))
}

// RecordIngestBatch records the duration of one phase's batch cycle.
func (m *Metrics) RecordIngestBatch(phase string, d time.Duration) {
	m.ingestBatchDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordIngestRun records the duration of a full ingest() call.
func (m *Metrics) RecordIngestRun(status string, d time.Duration) {
	m.ingestRunDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordStoreWrite records one store write outcome.
func (m *Metrics) RecordStoreWrite(table, status string, n int) {
	m.storeWritesTotal.WithLabelValues(table, status).Add(float64(n))
}

// RecordStoreDuplicates records rows skipped due to uniqueness collision.
func (m *Metrics) RecordStoreDuplicates(n int) {
	m.storeDuplicatesTotal.Add(float64(n))
}

// RecordStoreQuery records the duration of one store operation.
func (m *Metrics) RecordStoreQuery(operation string, d time.Duration) {
	m.storeQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCorrelationRun records one full correlation analysis run.
func (m *Metrics) RecordCorrelationRun(d time.Duration, pairs, clusters int) {
	m.correlationRunDuration.Observe(d.Seconds())
	m.correlationPairsEmitted.Add(float64(pairs))
	m.correlationClustersFound.Add(float64(clusters))
}

// RecordWorkflow records one Temporal workflow execution.
func (m *Metrics) RecordWorkflow(workflow, status string, d time.Duration) {
	m.workflowDuration.WithLabelValues(workflow, status).Observe(d.Seconds())
}

// RecordActivity records one Temporal activity execution.
func (m *Metrics) RecordActivity(activity string, d time.Duration) {
	m.activityDuration.WithLabelValues(activity).Observe(d.Seconds())
}

// RecordNATSPublish records one NATS publish attempt.
func (m *Metrics) RecordNATSPublish(subject, status string, d time.Duration) {
	m.natsPublishTotal.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.Observe(d.Seconds())
}
