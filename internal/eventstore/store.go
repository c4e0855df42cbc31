// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package eventstore provides a tenant-partitioned, append-oriented event
// store backed by DuckDB, plus the funnel and API key collections that live
// alongside it.
package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/eventlytics/eventlytics/internal/logging"
)

// Config configures the event store's DuckDB connection.
type Config struct {
	// Path is the DuckDB database file path, or ":memory:" for an ephemeral store.
	Path string

	// MaxMemory bounds DuckDB's memory usage (e.g. "2GB").
	MaxMemory string

	// Threads bounds DuckDB's internal parallelism; 0 means runtime.NumCPU().
	Threads int
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		Path:      "data/events.duckdb",
		MaxMemory: "2GB",
		Threads:   0,
	}
}

// Store wraps the DuckDB connection and a circuit breaker guarding it
// against cascading failures when the database is unavailable.
type Store struct {
	conn    *sql.DB
	cfg     *Config
	breaker *gobreaker.CircuitBreaker[any]
}

// New opens (creating if necessary) the DuckDB-backed event store and
// initializes its schema.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s", cfg.Path, threads, maxMemory)
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	conn.SetMaxOpenConns(threads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	breakerSettings := gobreaker.Settings{
		Name:        "eventstore",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("eventstore circuit breaker state change")
		},
	}

	store := &Store{
		conn:    conn,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[any](breakerSettings),
	}

	if err := store.createSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize event store schema: %w", err)
	}

	return store, nil
}

// Ping checks connectivity to the underlying database.
func (s *Store) Ping(ctx context.Context) error {
	if s.conn == nil {
		return fmt.Errorf("event store connection is nil")
	}
	return s.conn.PingContext(ctx)
}

// Close flushes and closes the underlying database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("checkpoint before close failed")
	}
	return s.conn.Close()
}

// withBreaker runs fn through the circuit breaker. While the breaker is
// open, calls fail fast with gobreaker's own open-state error.
func (s *Store) withBreaker(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return s.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
}

func (s *Store) createSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			fingerprint TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			event_name TEXT NOT NULL,
			event_timestamp TIMESTAMP NOT NULL,
			session_id TEXT,
			page_url TEXT,
			user_agent TEXT,
			ip_address TEXT,
			properties TEXT NOT NULL DEFAULT '{}',
			received_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tenant_time ON events(org_id, project_id, event_timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tenant_name_time ON events(org_id, project_id, event_name, event_timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tenant_user_time ON events(org_id, project_id, user_id, event_timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_tenant_session_time ON events(org_id, project_id, session_id, event_timestamp)`,

		`CREATE TABLE IF NOT EXISTS funnels (
			id TEXT PRIMARY KEY,
			org_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			steps TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_funnels_tenant_name ON funnels(org_id, project_id, name)`,

		`CREATE TABLE IF NOT EXISTS api_keys (
			id TEXT PRIMARY KEY,
			key_hash TEXT NOT NULL,
			name TEXT NOT NULL,
			org_id TEXT NOT NULL,
			project_id TEXT,
			permissions TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_used_at TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(key_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_org ON api_keys(org_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %s: %w", stmt, err)
		}
	}
	return nil
}
