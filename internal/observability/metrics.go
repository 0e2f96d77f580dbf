// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	TransactionsProcessed prometheus.Counter
	TransactionsSkipped   *prometheus.CounterVec
	TradesClassified      *prometheus.CounterVec
	TradesDeduplicated    prometheus.Counter
	ProcessingErrors      *prometheus.CounterVec

	// Oracle metrics
	OracleEvaluations  *prometheus.CounterVec
	OracleEmptyResults *prometheus.CounterVec
	PoolsScanned       prometheus.Histogram

	// Chain metrics
	RPCCallLatency prometheus.Histogram
	WSReconnects   prometheus.Counter

	// Enrichment metrics
	MetadataEnrichments *prometheus.CounterVec

	// Health metrics
	LastProcessedTransaction prometheus.Gauge
	VolumeBucketsPruned      prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_indexer"
	}

	return &Metrics{
		TransactionsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_processed_total",
			Help:      "Total number of venue transactions processed",
		}),
		TransactionsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_skipped_total",
			Help:      "Total number of transactions skipped by reason",
		}, []string{"reason"}),
		TradesClassified: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_classified_total",
			Help:      "Total number of trades classified by side",
		}, []string{"side"}),
		TradesDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_deduplicated_total",
			Help:      "Total number of trade inserts rejected as duplicates",
		}),
		ProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "processing_errors_total",
			Help:      "Total number of processing errors by stage",
		}, []string{"stage"}),

		OracleEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "evaluations_total",
			Help:      "Total number of oracle evaluations by source",
		}, []string{"source"}),
		OracleEmptyResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "empty_results_total",
			Help:      "Total number of oracle evaluations that yielded no price",
		}, []string{"source"}),
		PoolsScanned: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "pools_scanned",
			Help:      "Number of candidate pools scanned per evaluation",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		}),

		RPCCallLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		MetadataEnrichments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "metadata_enrichments_total",
			Help:      "Total number of metadata enrichment attempts by status",
		}, []string{"status"}),

		LastProcessedTransaction: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_processed_transaction_timestamp",
			Help:      "Unix timestamp of the last successfully processed transaction",
		}),
		VolumeBucketsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "volume_buckets_pruned_total",
			Help:      "Total number of expired volume buckets pruned",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTransactionProcessed increments the processed counter and bumps the
// health timestamp.
func RecordTransactionProcessed(blockTimeSeconds float64) {
	DefaultMetrics.TransactionsProcessed.Inc()
	DefaultMetrics.LastProcessedTransaction.Set(blockTimeSeconds)
}

// RecordTransactionSkipped increments the skipped counter for a reason.
func RecordTransactionSkipped(reason string) {
	DefaultMetrics.TransactionsSkipped.WithLabelValues(reason).Inc()
}

// RecordTradeClassified increments the classified counter for a side.
func RecordTradeClassified(side string) {
	DefaultMetrics.TradesClassified.WithLabelValues(side).Inc()
}

// RecordProcessingError records a processing error at a pipeline stage.
func RecordProcessingError(stage string) {
	DefaultMetrics.ProcessingErrors.WithLabelValues(stage).Inc()
}

// RecordOracleEvaluation records one oracle evaluation and whether it
// produced a price.
func RecordOracleEvaluation(source string, empty bool) {
	DefaultMetrics.OracleEvaluations.WithLabelValues(source).Inc()
	if empty {
		DefaultMetrics.OracleEmptyResults.WithLabelValues(source).Inc()
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(seconds float64) {
	DefaultMetrics.RPCCallLatency.Observe(seconds)
}

// RecordMetadataEnrichment records a metadata enrichment attempt.
func RecordMetadataEnrichment(status string) {
	DefaultMetrics.MetadataEnrichments.WithLabelValues(status).Inc()
}
