// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/eventlytics/config.yaml",
	"/etc/eventlytics/config.yml",
}

// ConfigPathEnvVar is the environment variable that overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with sensible defaults applied first,
// then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			APIPrefix:   "/api/v1",
			Environment: "development",
			Timeout:     30 * time.Second,
		},
		Ingestion: IngestionConfig{
			BatchSize:         1000,
			BufferTimeout:     5 * time.Second,
			WorkerConcurrency: 4,
		},
		EventStore: EventStoreConfig{
			Path:      "/data/eventlytics.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		KV: KVConfig{
			Path: "/data/kv",
		},
		Queue: QueueConfig{
			URL:              "nats://127.0.0.1:4222",
			EmbeddedServer:   true,
			StoreDir:         "/data/nats/jetstream",
			StreamName:       "EVENTS",
			DurableName:      "event-ingestion",
			MaxRetries:       3,
			RetryBaseBackoff: 100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			GeneralWindow:        15 * time.Minute,
			GeneralMaxRequests:   100,
			IngestionWindow:      60 * time.Second,
			IngestionMaxRequests: 10,
			AnalyticsWindow:      5 * time.Minute,
			AnalyticsMaxRequests: 2000,
			AdminWindow:          10 * time.Minute,
			AdminMaxRequests:     200,
		},
		Cache: CacheConfig{
			CacheTTL:      30 * time.Minute,
			QueryCacheTTL: 5 * time.Minute,
		},
		Security: SecurityConfig{
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config File: optional YAML config file (if it exists)
//  3. Environment Variables: override any setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Transform environment variable names to koanf paths:
	// EVENT_BATCH_SIZE -> ingestion.batch_size
	// RATE_LIMIT_WINDOW_MS -> rate_limit.general_window
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := processMillisecondFields(k); err != nil {
		return nil, fmt.Errorf("failed to process millisecond fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// This is necessary because env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// millisecondConfigPaths lists koanf paths whose env vars are named with an
// _MS suffix and carry a plain integer millisecond count rather than a
// Go duration string (e.g. EVENT_BUFFER_TIMEOUT_MS=5000, not "5s").
var millisecondConfigPaths = []string{
	"ingestion.buffer_timeout",
	"rate_limit.general_window",
	"rate_limit.ingestion_window",
	"rate_limit.analytics_window",
	"rate_limit.admin_window",
}

// processMillisecondFields rewrites bare integer-millisecond strings loaded
// from _MS environment variables into Go duration strings ("5000" -> "5000ms")
// so koanf's time.Duration decode hook parses them correctly.
func processMillisecondFields(k *koanf.Koanf) error {
	for _, path := range millisecondConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		if _, err := time.ParseDuration(strVal); err == nil {
			continue // already a valid duration string
		}
		if err := k.Set(path, strVal+"ms"); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config
// paths, mapping the documented env var names (spec.md §6) to the nested
// Config struct.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"port":         "server.port",
		"host":         "server.host",
		"api_prefix":   "server.api_prefix",
		"environment":  "server.environment",
		"http_timeout": "server.timeout",

		// Ingestion
		"event_batch_size":         "ingestion.batch_size",
		"event_buffer_timeout_ms":  "ingestion.buffer_timeout",
		"event_worker_concurrency": "ingestion.worker_concurrency",

		// Event store
		"duckdb_path":       "eventstore.path",
		"duckdb_max_memory": "eventstore.max_memory",
		"duckdb_threads":    "eventstore.threads",

		// KV cache
		"badger_path": "kv.path",

		// Queue
		"nats_url":                 "queue.url",
		"nats_embedded":            "queue.embedded_server",
		"nats_store_dir":           "queue.store_dir",
		"nats_stream_name":         "queue.stream_name",
		"nats_durable_name":        "queue.durable_name",
		"queue_max_retries":        "queue.max_retries",
		"queue_retry_base_backoff": "queue.retry_base_backoff",

		// Rate limiting
		"rate_limit_window_ms":              "rate_limit.general_window",
		"rate_limit_max_requests":           "rate_limit.general_max_requests",
		"ingestion_rate_limit_window_ms":    "rate_limit.ingestion_window",
		"ingestion_rate_limit_max_requests": "rate_limit.ingestion_max_requests",
		"analytics_rate_limit_window_ms":    "rate_limit.analytics_window",
		"analytics_rate_limit_max_requests": "rate_limit.analytics_max_requests",
		"admin_rate_limit_window_ms":        "rate_limit.admin_window",
		"admin_rate_limit_max_requests":     "rate_limit.admin_max_requests",

		// Cache
		"cache_ttl":       "cache.cache_ttl",
		"query_cache_ttl": "cache.query_cache_ttl",

		// Security
		"cors_origin": "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped to avoid random environment variables
	// polluting configuration.
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage, such as
// hot-reload scenarios or testing with mock configuration sources.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile sets up a file watcher for hot-reload capability. The
// caller is responsible for mutex protection when accessing configuration
// during a reload.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
