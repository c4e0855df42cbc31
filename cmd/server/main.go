// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package main is the entry point for the Eventlytics server application.
//
// Eventlytics is a multi-tenant event analytics backend: clients ingest
// product events over HTTP, the pipeline buffers and deduplicates them per
// tenant before persisting to DuckDB, and a read-through cache backs the
// funnel, retention, metrics, and journey queries built on top. A WebSocket
// hub fans out newly persisted events to subscribers in real time.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and an
//     optional config file (Koanf v2)
//  2. Event store: open DuckDB and create its schema if absent
//  3. KV store: open the BadgerDB-backed dedup/cache/rate-limit store
//  4. Durable queue: connect to NATS JetStream for buffered batch handoff
//  5. Realtime hub: start the WebSocket broadcast loop
//  6. Ingestion pipeline: buffering, dedup, and the queue consumer worker
//  7. Analytics engine: the read-through cache-aside query layer
//  8. HTTP server: the Chi-routed API, supervised for graceful shutdown
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, an optional config.yaml, then
// built-in defaults.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eventlytics/eventlytics/internal/analytics"
	"github.com/eventlytics/eventlytics/internal/api"
	"github.com/eventlytics/eventlytics/internal/auth"
	"github.com/eventlytics/eventlytics/internal/config"
	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/ingestion"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/logging"
	"github.com/eventlytics/eventlytics/internal/queue"
	"github.com/eventlytics/eventlytics/internal/ratelimit"
	"github.com/eventlytics/eventlytics/internal/realtime"
	"github.com/eventlytics/eventlytics/internal/supervisor"
	"github.com/eventlytics/eventlytics/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Str("environment", cfg.Server.Environment).Msg("starting eventlytics")

	store, err := eventstore.New(&eventstore.Config{
		Path:      cfg.EventStore.Path,
		MaxMemory: cfg.EventStore.MaxMemory,
		Threads:   cfg.EventStore.Threads,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open event store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event store")
		}
	}()

	kvStore, err := kv.New(&kv.Config{Path: cfg.KV.Path})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open kv store")
	}
	defer func() {
		if err := kvStore.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing kv store")
		}
	}()

	q, err := queue.New(&queue.Config{
		URL:         cfg.Queue.URL,
		StreamName:  cfg.Queue.StreamName,
		DurableName: cfg.Queue.DurableName,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to durable queue")
	}
	defer func() {
		if err := q.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing queue")
		}
	}()

	hub := realtime.NewHub()

	pipeline := ingestion.New(&ingestion.Config{
		BatchSize:     cfg.Ingestion.BatchSize,
		BufferTimeout: cfg.Ingestion.BufferTimeout,
	}, kvStore, q)

	worker := ingestion.NewWorker(store, kvStore, hub)
	sweeper := ingestion.NewSweeper(pipeline)

	engine := analytics.New(store, kvStore)

	limiter := ratelimit.New(kvStore, &ratelimit.Config{
		Tiers: map[ratelimit.Class]ratelimit.Tier{
			ratelimit.ClassGeneral:   {Window: cfg.RateLimit.GeneralWindow, Max: cfg.RateLimit.GeneralMaxRequests},
			ratelimit.ClassIngestion: {Window: cfg.RateLimit.IngestionWindow, Max: cfg.RateLimit.IngestionMaxRequests},
			ratelimit.ClassAnalytics: {Window: cfg.RateLimit.AnalyticsWindow, Max: cfg.RateLimit.AnalyticsMaxRequests},
			ratelimit.ClassAdmin:     {Window: cfg.RateLimit.AdminWindow, Max: cfg.RateLimit.AdminMaxRequests},
		},
	})

	authMiddleware := auth.NewMiddleware(store)

	chiMiddleware := api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins:   cfg.Security.CORSOrigins,
		CORSAllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", auth.APIKeyHeader},
		CORSAllowCredentials: false,
		CORSMaxAge:           86400,
	})

	router := api.NewRouter(api.Deps{
		Store:         store,
		KVStore:       kvStore,
		Pipeline:      pipeline,
		Engine:        engine,
		Hub:           hub,
		Auth:          authMiddleware,
		Limiter:       limiter,
		ChiMiddleware: chiMiddleware,
		CORSOrigins:   cfg.Security.CORSOrigins,
		Environment:   cfg.Server.Environment,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      http.StripPrefix(strings.TrimSuffix(cfg.Server.APIPrefix, "/"), router.SetupChi()),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddDataService(sweeper)
	tree.AddDataService(queueConsumerService{queue: q, worker: worker})
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("eventlytics stopped gracefully")
}

// queueConsumerService drives the durable queue's ingestion topic consumer
// as a supervised service, retrying Consume if the underlying subscription
// drops before ctx is canceled.
type queueConsumerService struct {
	queue  *queue.Queue
	worker *ingestion.Worker
}

func (s queueConsumerService) Serve(ctx context.Context) error {
	return s.queue.Consume(ctx, ingestion.TopicEventsIngest, s.worker.Handler())
}

func (s queueConsumerService) String() string {
	return "ingestion-queue-consumer"
}
