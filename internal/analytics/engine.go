// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package analytics implements the five read-through-cached query
// operators over the event store: funnel conversion, retention, bucketed
// metrics, user journey, and event summary.
package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eventlytics/eventlytics/internal/cache"
	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/logging"
)

// defaultCacheTTL is the read-through cache lifetime for most queries.
const defaultCacheTTL = 1800 * time.Second

// userCacheTTL is the shorter lifetime applied to user-specific queries,
// which churn more and carry a narrower blast radius on a stale hit.
const userCacheTTL = 300 * time.Second

// l1Capacity and l1TTL size the in-process query result cache sitting in
// front of the KV-backed read-through cache. Analytics query access is
// heavily skewed towards a handful of dashboards re-polling the same
// parameters, which is exactly the access pattern an LFU eviction policy is
// suited for; an L1 hit avoids a KV round-trip entirely.
const (
	l1Capacity = 5000
	l1TTL      = 60 * time.Second
)

// Engine evaluates the analytics operators against the event store, caching
// results in the KV store keyed by each query's full parameter set, with an
// in-process LFU cache absorbing the hottest queries ahead of that.
type Engine struct {
	store *eventstore.Store
	cache *kv.Store
	l1    *cache.LFUCacheGeneric[[]byte]
}

// New builds an Engine over store, caching results in kvStore.
func New(store *eventstore.Store, kvStore *kv.Store) *Engine {
	return &Engine{
		store: store,
		cache: kvStore,
		l1:    cache.NewLFUCacheGeneric[[]byte](l1Capacity, l1TTL),
	}
}

// cached wraps compute with a two-tier read-through cache lookup/store at
// key: an in-process LFU cache, then the durable KV store, then compute. A
// cache read or write failure at either tier degrades to the next tier
// rather than failing the query.
func cached[T any](ctx context.Context, e *Engine, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var out T

	if raw, ok := e.l1.Get(key); ok {
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
	}

	hit, err := e.cache.GetCached(key, func(raw []byte) error {
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		logging.Warn().Err(err).Str("cache_key", key).Msg("analytics: cache read failed, computing directly")
	} else if hit {
		if encoded, marshalErr := json.Marshal(out); marshalErr == nil {
			e.l1.SetWithTTL(key, encoded, l1TTL)
		}
		return out, nil
	}

	result, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if encoded, marshalErr := json.Marshal(result); marshalErr == nil {
		if setErr := e.cache.SetCached(key, encoded, ttl); setErr != nil {
			logging.Warn().Err(setErr).Str("cache_key", key).Msg("analytics: cache write failed")
		}
		e.l1.SetWithTTL(key, encoded, l1TTL)
	}
	return result, nil
}
