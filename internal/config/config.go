// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package config

import (
	"time"
)

// Config holds all application configuration loaded from environment
// variables and an optional config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting
//
// Config is immutable after LoadWithKoanf() returns and is safe for
// concurrent read access from multiple goroutines.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Ingestion  IngestionConfig  `koanf:"ingestion"`
	EventStore EventStoreConfig `koanf:"eventstore"`
	KV         KVConfig         `koanf:"kv"`
	Queue      QueueConfig      `koanf:"queue"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Cache      CacheConfig      `koanf:"cache"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server bind settings.
//
// Environment Variables:
//   - PORT: listen port (default: 8080)
//   - HOST: bind address (default: 0.0.0.0)
//   - API_PREFIX: URL prefix for all API routes (default: /api/v1)
//   - ENVIRONMENT: development|production, logged at startup and reported by /health
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	APIPrefix   string        `koanf:"api_prefix"`
	Environment string        `koanf:"environment"`
	Timeout     time.Duration `koanf:"timeout"`
}

// IngestionConfig controls the per-tenant event buffer.
//
// Environment Variables:
//   - EVENT_BATCH_SIZE: events buffered before an early flush (default: 1000)
//   - EVENT_BUFFER_TIMEOUT_MS: max buffer age before a timed flush (default: 5000)
//   - EVENT_WORKER_CONCURRENCY: validated as positive (default: 4) but not
//     applied; the server runs a single queue consumer that handles one
//     message at a time
type IngestionConfig struct {
	BatchSize         int           `koanf:"batch_size"`
	BufferTimeout     time.Duration `koanf:"buffer_timeout"`
	WorkerConcurrency int           `koanf:"worker_concurrency"`
}

// EventStoreConfig holds DuckDB connection settings for the event store.
type EventStoreConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// KVConfig holds BadgerDB connection settings for the dedup/cache/rate-limit store.
type KVConfig struct {
	Path string `koanf:"path"`
}

// QueueConfig holds the durable job queue's NATS JetStream connection settings.
type QueueConfig struct {
	URL              string        `koanf:"url"`
	EmbeddedServer   bool          `koanf:"embedded_server"`
	StoreDir         string        `koanf:"store_dir"`
	StreamName       string        `koanf:"stream_name"`
	DurableName      string        `koanf:"durable_name"`
	MaxRetries       int           `koanf:"max_retries"`
	RetryBaseBackoff time.Duration `koanf:"retry_base_backoff"`
}

// RateLimitConfig overrides the documented per-class rate limit tiers.
// A zero window/max for a tier falls back to ratelimit's compiled-in default.
//
// Environment Variables:
//   - RATE_LIMIT_WINDOW_MS, RATE_LIMIT_MAX_REQUESTS: General tier
//   - INGESTION_RATE_LIMIT_WINDOW_MS, INGESTION_RATE_LIMIT_MAX_REQUESTS: Ingestion tier
//   - ANALYTICS_RATE_LIMIT_WINDOW_MS, ANALYTICS_RATE_LIMIT_MAX_REQUESTS: Analytics tier
//   - ADMIN_RATE_LIMIT_WINDOW_MS, ADMIN_RATE_LIMIT_MAX_REQUESTS: Admin tier
type RateLimitConfig struct {
	GeneralWindow        time.Duration `koanf:"general_window"`
	GeneralMaxRequests   int64         `koanf:"general_max_requests"`
	IngestionWindow      time.Duration `koanf:"ingestion_window"`
	IngestionMaxRequests int64         `koanf:"ingestion_max_requests"`
	AnalyticsWindow      time.Duration `koanf:"analytics_window"`
	AnalyticsMaxRequests int64         `koanf:"analytics_max_requests"`
	AdminWindow          time.Duration `koanf:"admin_window"`
	AdminMaxRequests     int64         `koanf:"admin_max_requests"`
}

// CacheConfig holds the analytics read-through cache TTLs. These values are
// loaded and validated but not passed to the analytics engine, which applies
// its own fixed lifetimes (30 minutes, and 5 minutes for user journeys);
// changing them has no effect on caching.
//
// Environment Variables:
//   - CACHE_TTL: default cache entry lifetime (funnel/retention/metrics/summary)
//   - QUERY_CACHE_TTL: per-user query cache lifetime (user journey)
type CacheConfig struct {
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	QueryCacheTTL time.Duration `koanf:"query_cache_ttl"`
}

// SecurityConfig holds CORS settings for browser-facing requests.
//
// Environment Variables:
//   - CORS_ORIGIN: comma-separated list of allowed browser origins (default: *)
type SecurityConfig struct {
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig controls the zerolog-backed global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
