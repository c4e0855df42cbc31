// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package kv

import (
	"fmt"
	"time"
)

// dedupTTL is how long a fingerprint is remembered after first acceptance.
// Events older than this that arrive again are re-ingested rather than
// dropped, trading a small amount of duplicate risk for bounded storage.
const dedupTTL = 24 * time.Hour

// MarkSeen records fingerprint as accepted for the tenant, returning true if
// it had not been seen before (i.e. the event should be persisted).
func (s *Store) MarkSeen(dedupKey string) (firstSeen bool, err error) {
	exists, err := s.Exists(dedupKey)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.SetWithTTL(dedupKey, []byte{1}, dedupTTL); err != nil {
		return false, err
	}
	return true, nil
}

// EventCountKey returns the counter key for total events ingested by a tenant.
func EventCountKey(orgID, projectID string) string {
	return fmt.Sprintf("events:%s:%s:count", orgID, projectID)
}

// EventNameCountKey returns the counter key for a specific event name within a tenant.
func EventNameCountKey(orgID, projectID, eventName string) string {
	return fmt.Sprintf("events:%s:%s:%s:count", orgID, projectID, eventName)
}

// queryCacheTTL is the default lifetime of a cached analytics query result.
const queryCacheTTL = 5 * time.Minute

// FunnelCacheKey namespaces a cached funnel analytics result.
func FunnelCacheKey(orgID, projectID, funnelID string, from, to time.Time) string {
	return fmt.Sprintf("funnel:%s:%s:%s:%d:%d", orgID, projectID, funnelID, from.Unix(), to.Unix())
}

// RetentionCacheKey namespaces a cached retention analytics result.
func RetentionCacheKey(orgID, projectID, anchorEvent, returnEvent, granularity string, from, to time.Time) string {
	return fmt.Sprintf("retention:%s:%s:%s:%s:%s:%d:%d", orgID, projectID, anchorEvent, returnEvent, granularity, from.Unix(), to.Unix())
}

// MetricsCacheKey namespaces a cached metric aggregation result.
func MetricsCacheKey(orgID, projectID, eventName, granularity string, from, to time.Time) string {
	return fmt.Sprintf("metrics:%s:%s:%s:%s:%d:%d", orgID, projectID, eventName, granularity, from.Unix(), to.Unix())
}

// UserJourneyCacheKey namespaces a cached user journey result.
func UserJourneyCacheKey(orgID, projectID, userID string, from, to time.Time) string {
	return fmt.Sprintf("user_journey:%s:%s:%s:%d:%d", orgID, projectID, userID, from.Unix(), to.Unix())
}

// EventSummaryCacheKey namespaces a cached event summary result.
func EventSummaryCacheKey(orgID, projectID string, from, to time.Time) string {
	return fmt.Sprintf("event_summary:%s:%s:%d:%d", orgID, projectID, from.Unix(), to.Unix())
}

// GetCached reads a cached query result, unmarshalling it into dest via decode.
// Returns (false, nil) on a cache miss, distinguishing it from a decode error.
func (s *Store) GetCached(key string, decode func([]byte) error) (bool, error) {
	raw, err := s.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := decode(raw); err != nil {
		return false, fmt.Errorf("decode cached value for %s: %w", key, err)
	}
	return true, nil
}

// SetCached stores an already-encoded query result under key using the
// default query cache TTL, or ttl if positive.
func (s *Store) SetCached(key string, encoded []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = queryCacheTTL
	}
	return s.SetWithTTL(key, encoded, ttl)
}

// InvalidateCachePrefix deletes every key beginning with prefix, in a single
// update transaction.
func (s *Store) InvalidateCachePrefix(prefix string) error {
	_, err := s.withBreaker(func() (any, error) {
		return nil, s.deletePrefix(prefix)
	})
	return err
}
