// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing counters, histograms, and gauges for the event store,
API layer, ingestion pipeline, durable queue, cache tiers, WebSocket hub, and
circuit breakers.

# Metrics Endpoint

Metrics are exposed at /internal/metrics under the API prefix, in
Prometheus text format, kept separate from the analytics GET /metrics
query endpoint. With the default port and prefix:

	curl http://localhost:8080/api/v1/internal/metrics

# Available Metrics

Event Store: StoreQueryDuration, StoreQueryErrors, StoreEventsInserted.

API: APIRequestsTotal, APIRequestDuration, APIActiveRequests, APIRateLimitHits.

Ingestion Pipeline: IngestionEventsReceived, IngestionEventsDeduplicated,
IngestionEventsInvalid, IngestionBatchFlushDuration, IngestionBatchSize,
IngestionBufferDepth.

Durable Queue: QueueMessagesPublished, QueueMessagesConsumed,
QueueMessagesFailed, QueueProcessingDuration.

Cache: CacheHits, CacheMisses, CacheErrors, all labeled by cache_type.

WebSocket: WSConnections, WSMessagesSent, WSMessagesReceived, WSErrors.

Circuit Breaker: CircuitBreakerState, CircuitBreakerRequests,
CircuitBreakerTransitions.

System: AppInfo, AppUptime.

# Usage Example

	func (s *Store) query(ctx context.Context, sql string) error {
	    start := time.Now()
	    _, err := s.conn.QueryContext(ctx, sql)
	    metrics.RecordStoreQuery("scan", time.Since(start), err)
	    return err
	}

HTTP request metrics are recorded by internal/middleware.PrometheusMetrics,
not called directly by handlers.

# Thread Safety

All metric recording functions are thread-safe; the Prometheus client
library handles synchronization internally.

# See Also

  - internal/middleware: HTTP middleware that records API metrics

internal/middleware.PrometheusMetrics is the only caller of this package's
recording functions; internal/ingestion and internal/queue do not record
the ingestion and queue metrics listed above.
*/
package metrics
