// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

/*
Package cache provides thread-safe in-memory caching and deduplication
structures used as in-process fast paths in front of durable storage.

# Deduplication

ExactLRU (bloom.go) is an exact-match, zero-false-positive LRU cache used
by the ingestion pipeline as a fast path ahead of the durable KV store's
fingerprint dedup check. BloomLRU is also provided, combining a bloom
filter with an LRU cache for workloads that can tolerate a small false
positive rate in exchange for lower memory use; the ingestion pipeline
uses ExactLRU instead because silently dropping a genuine event as a
false-positive duplicate is not an acceptable tradeoff here.

# Query Result Caching

LFUCache and its generic wrapper LFUCacheGeneric (lfu.go) implement a
least-frequently-used eviction cache, suited to the skewed access pattern
of analytics dashboards repeatedly polling the same query parameters. The
analytics engine uses an LFUCacheGeneric[[]byte] as an L1 cache in front
of its KV-backed read-through cache.

# Thread Safety

All types in this package are safe for concurrent use.
*/
package cache
