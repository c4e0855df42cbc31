// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package config

import "fmt"

// Validate checks that required configuration is present and well-formed.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateIngestion(); err != nil {
		return err
	}
	if err := c.validateEventStore(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("HOST is required")
	}
	if c.Server.APIPrefix == "" {
		return fmt.Errorf("API_PREFIX is required")
	}
	return nil
}

func (c *Config) validateIngestion() error {
	if c.Ingestion.BatchSize <= 0 || c.Ingestion.BatchSize > 1000 {
		return fmt.Errorf("EVENT_BATCH_SIZE must be between 1 and 1000, got %d", c.Ingestion.BatchSize)
	}
	if c.Ingestion.BufferTimeout <= 0 {
		return fmt.Errorf("EVENT_BUFFER_TIMEOUT_MS must be positive")
	}
	if c.Ingestion.WorkerConcurrency <= 0 {
		return fmt.Errorf("EVENT_WORKER_CONCURRENCY must be positive, got %d", c.Ingestion.WorkerConcurrency)
	}
	return nil
}

func (c *Config) validateEventStore() error {
	if c.EventStore.Path == "" {
		return fmt.Errorf("event store path is required")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.URL == "" {
		return fmt.Errorf("queue broker URL is required")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug|info|warn|error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of json|console, got %q", c.Logging.Format)
	}
	return nil
}
