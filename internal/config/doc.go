// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

/*
Package config provides centralized configuration management for eventlytics.

This package handles loading, validation, and parsing of environment variables
for all application components. It ensures consistent configuration across the
ingestion, analytics, and API layers and provides sensible defaults for optional
settings.

# Configuration Sources

The package reads configuration, in order of increasing precedence, from:

  - Built-in defaults
  - An optional YAML config file (config.yaml, or $CONFIG_PATH)
  - Environment variables

# Configuration Structure

  - ServerConfig: HTTP server bind address, port, and API route prefix
  - IngestionConfig: Event buffering batch size and flush timing
  - EventStoreConfig: DuckDB-backed event store connection settings
  - KVConfig: BadgerDB-backed KV store path
  - CacheConfig: analytics query cache TTLs
  - QueueConfig: Watermill/NATS JetStream broker connection settings
  - RateLimitConfig: Per-tier request rate limits
  - SecurityConfig: CORS origin allowlist
  - LoggingConfig: Log level, format, and caller info

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}
	fmt.Printf("listening on %s:%d\n", cfg.Server.Host, cfg.Server.Port)

# Thread Safety

Config is immutable after LoadWithKoanf() returns, and safe for concurrent
read access from multiple goroutines without synchronization.
*/
package config
