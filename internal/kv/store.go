// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package kv provides a Badger-backed durable key-value store used for
// dedup markers, counters, rate-limit windows, and cached query results.
// Unlike an in-memory TTL cache, entries here survive a process restart,
// which matters for dedup markers and rate-limit windows in particular.
package kv

import (
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/eventlytics/eventlytics/internal/logging"
)

// Config configures the Badger-backed store.
type Config struct {
	// Path is the on-disk directory for Badger's data and value log.
	Path string

	// InMemory runs Badger without touching disk, for tests.
	InMemory bool
}

// DefaultConfig returns sane defaults for local development.
func DefaultConfig() *Config {
	return &Config{Path: "data/kv"}
}

// Store wraps a Badger database with a circuit breaker guarding callers
// from cascading failures when the store is unhealthy.
type Store struct {
	db      *badger.DB
	breaker *gobreaker.CircuitBreaker[any]
}

// New opens (creating if necessary) the Badger-backed store.
func New(cfg *Config) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts = opts.WithLogger(badgerLogAdapter{})
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}

	breakerSettings := gobreaker.Settings{
		Name:        "kv",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("kv store circuit breaker state change")
		},
	}

	return &Store{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker[any](breakerSettings),
	}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC triggers Badger's value-log garbage collection. Intended to be
// called periodically by a supervised maintenance task; a nil return from
// badger.ErrNoRewrite means there was nothing to reclaim.
func (s *Store) RunGC(discardRatio float64) error {
	err := s.db.RunValueLogGC(discardRatio)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

func (s *Store) withBreaker(fn func() (any, error)) (any, error) {
	return s.breaker.Execute(fn)
}

// badgerLogAdapter routes Badger's internal logging through zerolog.
type badgerLogAdapter struct{}

func (badgerLogAdapter) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogAdapter) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogAdapter) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogAdapter) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}
