// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package ingestion implements the event ingestion pipeline: per-event
// validation and deduplication, per-tenant buffering, and size/age/shutdown
// triggered flushing onto the durable job queue for persistence and
// realtime fan-out.
package ingestion

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/cache"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/models"
	"github.com/eventlytics/eventlytics/internal/queue"
	"github.com/eventlytics/eventlytics/internal/validation"
)

// maxPropertiesBytes bounds the serialized size of a single event's
// properties payload.
const maxPropertiesBytes = 64 * 1024

// TopicEventsIngest is the durable queue topic a flushed batch is enqueued on.
const TopicEventsIngest = "events.ingest"

// dedupCacheCapacity and dedupCacheTTL size the in-process fast-path dedup
// cache. The TTL is shorter than the KV store's 24h dedup window; this cache
// only exists to absorb duplicate bursts within a single process's uptime,
// the KV store remains the cross-process, cross-restart source of truth.
const (
	dedupCacheCapacity = 100_000
	dedupCacheTTL      = 10 * time.Minute
)

// Config configures the ingestion pipeline's buffering behaviour.
type Config struct {
	// BatchSize flushes a tenant's buffer synchronously once it holds this
	// many accepted events.
	BatchSize int
	// BufferTimeout flushes a tenant's buffer once its oldest unflushed
	// event has waited this long, checked by the periodic sweeper.
	BufferTimeout time.Duration
}

// DefaultConfig returns the documented defaults: a 1,000 event batch size
// and a 5 second buffer timeout.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:     1000,
		BufferTimeout: 5 * time.Second,
	}
}

// Pipeline accepts ingestion requests, deduplicates and buffers them per
// tenant, and flushes batches onto the durable queue.
type Pipeline struct {
	cfg        *Config
	kvStore    *kv.Store
	q          *queue.Queue
	registry   *registry
	dedupCache *cache.ExactLRU
}

// New creates a Pipeline. cfg may be nil to use DefaultConfig.
func New(cfg *Config, kvStore *kv.Store, q *queue.Queue) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{
		cfg:        cfg,
		kvStore:    kvStore,
		q:          q,
		registry:   newRegistry(),
		dedupCache: cache.NewExactLRU(dedupCacheCapacity, dedupCacheTTL),
	}
}

// batchPayload is the wire shape enqueued to the durable queue for
// persistence and fan-out.
type batchPayload struct {
	Events []*models.Event `json:"events"`
}

// Ingest validates and deduplicates each event in req, buffers the accepted
// ones for tenant, and returns the number accepted and the number skipped.
// A per-event validation failure or dedup hit is counted as skipped, never
// as an error; ingestion never fails a whole batch over individual events.
// err is an InvalidInput error for an empty batch or one of more than 1000
// events; otherwise it reports an infrastructure failure (the durable queue
// rejecting an enqueue on flush) that aborts the remainder of the batch.
func (p *Pipeline) Ingest(ctx context.Context, tenant models.Tenant, req models.IngestBatchRequest) (accepted, skipped int, err error) {
	if len(req.Events) == 0 {
		return 0, 0, apperrors.InvalidInput("events must contain at least one event", nil)
	}
	if len(req.Events) > 1000 {
		return 0, 0, apperrors.InvalidInput("batch may not exceed 1000 events", nil)
	}

	for _, evReq := range req.Events {
		if verr := validation.ValidateStruct(&evReq); verr != nil {
			skipped++
			continue
		}
		if evReq.Properties != nil {
			encoded, marshalErr := json.Marshal(evReq.Properties)
			if marshalErr != nil || len(encoded) > maxPropertiesBytes {
				skipped++
				continue
			}
		}

		event := models.NewEvent(tenant.OrgID, tenant.ProjectID, evReq)
		dedupKey := event.DedupKey()

		// Fast path: an in-process hit is a guaranteed duplicate (zero false
		// positives), so it short-circuits the KV round-trip entirely. A miss
		// here only means "not seen by this process recently" and always
		// falls through to the authoritative KV check below.
		if p.dedupCache.IsDuplicate(dedupKey) {
			skipped++
			continue
		}

		firstSeen, dedupErr := p.kvStore.MarkSeen(dedupKey)
		if dedupErr != nil {
			// Cache unavailable: fail open and accept the event rather than
			// reject ingestion traffic on a dependency that isn't load-bearing
			// for correctness, only for duplicate suppression.
			firstSeen = true
		}
		if !firstSeen {
			skipped++
			continue
		}

		if err := p.appendAndMaybeFlush(ctx, tenant, event); err != nil {
			return accepted, skipped, err
		}
		accepted++
	}

	return accepted, skipped, nil
}

func (p *Pipeline) appendAndMaybeFlush(ctx context.Context, tenant models.Tenant, event *models.Event) error {
	buf := p.registry.get(tenant.Key())
	if n := buf.append(event); n >= p.cfg.BatchSize {
		return p.flush(ctx, tenant.Key(), buf)
	}
	return nil
}

// flush detaches buf's events and enqueues them as a single job. A buffer
// drained empty (a concurrent flush already ran) is a no-op.
func (p *Pipeline) flush(ctx context.Context, tenantKey string, buf *tenantBuffer) error {
	events := buf.drain()
	if len(events) == 0 {
		return nil
	}

	payload, err := json.Marshal(batchPayload{Events: events})
	if err != nil {
		return apperrors.Internal("encode ingestion batch", err)
	}

	if _, err := p.q.Enqueue(ctx, TopicEventsIngest, payload, queue.EnqueueOptions{}); err != nil {
		return apperrors.TransientDependency("enqueue ingestion batch for "+tenantKey, err)
	}
	return nil
}

// FlushAll drains and enqueues every tenant's buffer, regardless of size or
// age. Used by the age-based sweeper and by graceful shutdown.
func (p *Pipeline) FlushAll(ctx context.Context) error {
	for tenantKey, buf := range p.registry.all() {
		if err := p.flush(ctx, tenantKey, buf); err != nil {
			return err
		}
	}
	return nil
}

// flushAged drains and enqueues only buffers whose oldest event has waited
// at least the configured buffer timeout.
func (p *Pipeline) flushAged(ctx context.Context) error {
	for tenantKey, buf := range p.registry.all() {
		if buf.age() >= p.cfg.BufferTimeout {
			if err := p.flush(ctx, tenantKey, buf); err != nil {
				return err
			}
		}
	}
	return nil
}
