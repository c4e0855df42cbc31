// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package instruments:
// - Event store query performance (DuckDB)
// - API endpoint latency and throughput
// - Ingestion pipeline and durable queue throughput
// - Cache efficiency (KV read-through cache, dedup)
// - WebSocket connections
// - Circuit breaker state

var (
	// Event Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventstore_query_duration_seconds",
			Help:    "Duration of event store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_query_errors_total",
			Help: "Total number of event store query errors",
		},
		[]string{"operation"},
	)

	StoreEventsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventstore_events_inserted_total",
			Help: "Total number of events persisted to the event store",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"class"},
	)

	// Ingestion Pipeline Metrics
	IngestionEventsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestion_events_received_total",
			Help: "Total number of events accepted for ingestion",
		},
	)

	IngestionEventsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestion_events_deduplicated_total",
			Help: "Total number of events skipped due to content-addressed deduplication",
		},
	)

	IngestionEventsInvalid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestion_events_invalid_total",
			Help: "Total number of events rejected by validation",
		},
	)

	IngestionBatchFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingestion_batch_flush_duration_seconds",
			Help:    "Duration of buffered batch flushes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestionBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingestion_batch_size",
			Help:    "Number of events in each flushed batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	IngestionBufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingestion_buffer_depth",
			Help: "Current number of tenant buffers awaiting flush",
		},
	)

	// Durable Queue Metrics
	QueueMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_published_total",
			Help: "Total number of batches published to the durable queue",
		},
	)

	QueueMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_consumed_total",
			Help: "Total number of batches consumed from the durable queue",
		},
	)

	QueueMessagesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_messages_failed_total",
			Help: "Total number of batches that failed processing and were nacked",
		},
	)

	QueueProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_processing_duration_seconds",
			Help:    "Duration of queue message processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cache Metrics (read-through analytics cache, dedup cache)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "analytics", "dedup", "counter"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of cache operation errors (fail-open path taken)",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordStoreQuery records an event store query metric.
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIngestionBatch records a buffered batch flush.
func RecordIngestionBatch(duration time.Duration, batchSize int) {
	IngestionBatchFlushDuration.Observe(duration.Seconds())
	IngestionBatchSize.Observe(float64(batchSize))
}

// RecordQueueProcessing records a queue consumer processing a batch.
func RecordQueueProcessing(duration time.Duration, err error) {
	QueueProcessingDuration.Observe(duration.Seconds())
	QueueMessagesConsumed.Inc()
	if err != nil {
		QueueMessagesFailed.Inc()
	}
}

// RecordCacheResult records a cache hit, miss, or error for a given cache.
func RecordCacheResult(cacheType string, hit bool, err error) {
	if err != nil {
		CacheErrors.WithLabelValues(cacheType).Inc()
		return
	}
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}
