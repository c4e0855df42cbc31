// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package ratelimit implements the tiered, fixed-window request limiter
// used at the API boundary. Each tier is keyed by API key (or client IP
// for unauthenticated requests) and backed by the durable KV store, so
// counters survive process restarts within their window. The ingestion
// tier additionally sits behind an in-process token-bucket burst guard,
// rejecting short spikes before they ever reach the durable counter.
package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/eventlytics/eventlytics/internal/cache"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/logging"
)

// Class identifies a route category with its own window and ceiling.
type Class string

const (
	ClassGeneral   Class = "general"
	ClassIngestion Class = "ingestion"
	ClassAnalytics Class = "analytics"
	ClassAdmin     Class = "admin"
)

// Tier is the (window, max requests) policy for one Class.
type Tier struct {
	Window time.Duration
	Max    int64
}

// defaultTiers matches the documented defaults for each route class.
var defaultTiers = map[Class]Tier{
	ClassGeneral:   {Window: 15 * time.Minute, Max: 100},
	ClassIngestion: {Window: 60 * time.Second, Max: 10},
	ClassAnalytics: {Window: 5 * time.Minute, Max: 2000},
	ClassAdmin:     {Window: 10 * time.Minute, Max: 200},
}

// Config overrides the default tier ceilings; a zero Tier for a class
// falls back to the documented default.
type Config struct {
	Tiers map[Class]Tier
}

// DefaultConfig returns the documented default tiers.
func DefaultConfig() *Config {
	return &Config{Tiers: map[Class]Tier{}}
}

// ingestionBurstRate and ingestionBurstSize bound the ingestion tier's
// short-burst ceiling: 10 requests/sec sustained with a burst allowance of
// 10, enforced in-process ahead of the fixed-window KV counter below.
const (
	ingestionBurstRate = 10
	ingestionBurstSize = 10
)

// burstLimiterCapacity and burstLimiterTTL size the in-process cache of
// per-subject burst limiters; an idle subject's limiter is evicted rather
// than held onto for the life of the process.
const (
	burstLimiterCapacity = 10_000
	burstLimiterTTL      = 10 * time.Minute
)

// Limiter enforces per-class request ceilings against the durable store,
// with an in-process token-bucket burst guard in front of the ingestion
// tier's fixed window.
type Limiter struct {
	store         *kv.Store
	tiers         map[Class]Tier
	burstLimiters *cache.LFUCacheGeneric[*rate.Limiter]
}

// New builds a Limiter backed by store.
func New(store *kv.Store, cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	tiers := make(map[Class]Tier, len(defaultTiers))
	for class, tier := range defaultTiers {
		tiers[class] = tier
	}
	for class, tier := range cfg.Tiers {
		if tier.Window > 0 && tier.Max > 0 {
			tiers[class] = tier
		}
	}
	return &Limiter{
		store:         store,
		tiers:         tiers,
		burstLimiters: cache.NewLFUCacheGeneric[*rate.Limiter](burstLimiterCapacity, burstLimiterTTL),
	}
}

// Result reports the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Allow checks and increments the counter for (class, subject), returning
// whether the request may proceed. Cache unavailability degrades to allow,
// logged as a warning rather than surfaced to the caller.
func (l *Limiter) Allow(class Class, subject string) Result {
	tier, ok := l.tiers[class]
	if !ok {
		tier = defaultTiers[ClassGeneral]
	}

	if class == ClassIngestion && !l.ingestionBurstLimiter(subject).Allow() {
		return Result{Allowed: false, RetryAfter: time.Second}
	}

	key := windowKey(class, subject)
	count, err := l.store.Incr(key, 1, tier.Window)
	if err != nil {
		logging.Warn().Err(err).Str("class", string(class)).Str("subject", subject).
			Msg("rate limiter store unavailable, allowing request")
		return Result{Allowed: true}
	}

	if count > tier.Max {
		retryAfter, ttlErr := l.store.TTL(key)
		if ttlErr != nil && !errors.Is(ttlErr, kv.ErrNotFound) {
			logging.Warn().Err(ttlErr).Msg("rate limiter failed to read window ttl")
		}
		if retryAfter <= 0 {
			retryAfter = tier.Window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}
	}

	return Result{Allowed: true, Remaining: tier.Max - count}
}

// ingestionBurstLimiter returns subject's token-bucket burst limiter,
// creating and caching one on first use.
func (l *Limiter) ingestionBurstLimiter(subject string) *rate.Limiter {
	if limiter, ok := l.burstLimiters.Get(subject); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(ingestionBurstRate), ingestionBurstSize)
	l.burstLimiters.Set(subject, limiter)
	return limiter
}

func windowKey(class Class, subject string) string {
	return fmt.Sprintf("rate_limit:%s:%s", class, subject)
}
