package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by the RPC client, the
// batch executor and the exporters. A nil *Metrics records nothing.
type Metrics struct {
	rpcCallsTotal      *prometheus.CounterVec
	rpcCallDuration    *prometheus.HistogramVec
	rpcRequestsPerCall *prometheus.HistogramVec
	rpcFallbacks       *prometheus.CounterVec
	rateLimitWaits     prometheus.Counter

	batchesTotal  *prometheus.CounterVec
	batchRetries  prometheus.Counter
	itemsExported *prometheus.CounterVec
	lastSynced    prometheus.Gauge
}

// NewMetrics creates the collectors on registry.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		rpcCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solanaetl_rpc_calls_total",
				Help: "Total number of JSON-RPC requests by method and status",
			},
			[]string{"method", "status"},
		),
		rpcCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solanaetl_rpc_batch_duration_seconds",
				Help:    "Duration of batched JSON-RPC round trips in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"method"},
		),
		rpcRequestsPerCall: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solanaetl_rpc_requests_per_batch",
				Help:    "Number of requests carried by one batched JSON-RPC call",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
			},
			[]string{"method"},
		),
		rpcFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solanaetl_rpc_fallbacks_total",
				Help: "Total number of batches retried against the next provider URI",
			},
			[]string{"method"},
		),
		rateLimitWaits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "solanaetl_rpc_rate_limit_waits_total",
				Help: "Total number of RPC calls delayed by the client rate limiter",
			},
		),
		batchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solanaetl_batches_total",
				Help: "Total number of executor batches by final status",
			},
			[]string{"status"},
		),
		batchRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "solanaetl_batch_retries_total",
				Help: "Total number of executor batch retry attempts",
			},
		),
		itemsExported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solanaetl_items_exported_total",
				Help: "Total number of exported items by entity type",
			},
			[]string{"type"},
		),
		lastSynced: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "solanaetl_last_synced_block",
				Help: "Last block number fully exported by the streamer",
			},
		),
	}
}

// RecordRPCCall records one batched call carrying size requests of method.
func (m *Metrics) RecordRPCCall(method, status string, size int, duration float64) {
	if m == nil {
		return
	}
	m.rpcCallsTotal.WithLabelValues(method, status).Add(float64(size))
	m.rpcCallDuration.WithLabelValues(method).Observe(duration)
	m.rpcRequestsPerCall.WithLabelValues(method).Observe(float64(size))
}

// RecordFallback records a switch to the next provider URI.
func (m *Metrics) RecordFallback(method string) {
	if m == nil {
		return
	}
	m.rpcFallbacks.WithLabelValues(method).Inc()
}

// RecordRateLimitWait records a call that waited on the rate limiter.
func (m *Metrics) RecordRateLimitWait() {
	if m == nil {
		return
	}
	m.rateLimitWaits.Inc()
}

// RecordBatch records the final status of an executor batch.
func (m *Metrics) RecordBatch(status string) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(status).Inc()
}

// RecordBatchRetry records a retried batch.
func (m *Metrics) RecordBatchRetry() {
	if m == nil {
		return
	}
	m.batchRetries.Inc()
}

// RecordItemExported records one exported item of entity type typ.
func (m *Metrics) RecordItemExported(typ string) {
	if m == nil {
		return
	}
	m.itemsExported.WithLabelValues(typ).Inc()
}

// SetLastSynced records the streamer's checkpoint.
func (m *Metrics) SetLastSynced(block uint64) {
	if m == nil {
		return
	}
	m.lastSynced.Set(float64(block))
}
