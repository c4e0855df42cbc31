// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventlytics/eventlytics/internal/analytics"
	"github.com/eventlytics/eventlytics/internal/auth"
	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/ingestion"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/middleware"
	"github.com/eventlytics/eventlytics/internal/models"
	"github.com/eventlytics/eventlytics/internal/ratelimit"
	"github.com/eventlytics/eventlytics/internal/realtime"
)

// Router wires every HTTP dependency together and builds the Chi mux. It
// holds no business logic of its own; each handler delegates to the store,
// pipeline, or engine that owns the corresponding behavior.
type Router struct {
	store    *eventstore.Store
	kvStore  *kv.Store
	pipeline *ingestion.Pipeline
	engine   *analytics.Engine
	hub      *realtime.Hub
	auth     *auth.Middleware
	limiter  *ratelimit.Limiter
	chi      *ChiMiddleware
	upgrader websocket.Upgrader

	environment string
	startTime   time.Time
}

// Deps collects everything Router needs to construct routes.
type Deps struct {
	Store          *eventstore.Store
	KVStore        *kv.Store
	Pipeline       *ingestion.Pipeline
	Engine         *analytics.Engine
	Hub            *realtime.Hub
	Auth           *auth.Middleware
	Limiter        *ratelimit.Limiter
	ChiMiddleware  *ChiMiddleware
	CORSOrigins    []string
	Environment    string
}

// NewRouter builds a Router ready to construct its handler.
func NewRouter(deps Deps) *Router {
	return &Router{
		store:       deps.Store,
		kvStore:     deps.KVStore,
		pipeline:    deps.Pipeline,
		engine:      deps.Engine,
		hub:         deps.Hub,
		auth:        deps.Auth,
		limiter:     deps.Limiter,
		chi:         deps.ChiMiddleware,
		upgrader:    newUpgrader(deps.CORSOrigins),
		environment: deps.Environment,
		startTime:   time.Now().UTC(),
	}
}

// requireAuth composes API key authentication with a permission check,
// returning a handler suitable for chi's Method/Get/Post registration.
func (router *Router) requireAuth(perm models.Permission, handler http.HandlerFunc) http.HandlerFunc {
	return router.auth.Authenticate(router.auth.RequirePermission(perm, handler))
}

// SetupChi builds the complete Chi mux for the event analytics API.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(router.chi.CORS())
	r.Use(APISecurityHeaders())
	r.Use(asChiMiddleware(middleware.PrometheusMetrics))
	r.Use(asChiMiddleware(middleware.Compression))

	r.Get("/health", router.Health)
	r.Handle("/internal/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimitClass(router.limiter, ratelimit.ClassIngestion))
		r.Post("/events", router.requireAuth(models.PermissionWrite, router.IngestEvents))
	})

	r.Group(func(r chi.Router) {
		r.Use(RateLimitClass(router.limiter, ratelimit.ClassAnalytics))

		r.Get("/events/summary", router.requireAuth(models.PermissionAnalytics, router.EventsSummary))
		r.Get("/events/realtime", router.requireAuth(models.PermissionAnalytics, router.EventsRealtime))

		r.Post("/funnels", router.requireAuth(models.PermissionWrite, router.CreateFunnel))
		r.Get("/funnels", router.requireAuth(models.PermissionAnalytics, router.ListFunnels))
		r.Get("/funnels/{funnelId}", router.requireAuth(models.PermissionAnalytics, router.GetFunnel))
		r.Put("/funnels/{funnelId}", router.requireAuth(models.PermissionWrite, router.UpdateFunnel))
		r.Delete("/funnels/{funnelId}", router.requireAuth(models.PermissionWrite, router.DeleteFunnel))
		r.Get("/funnels/{funnelId}/analytics", router.requireAuth(models.PermissionAnalytics, router.FunnelAnalytics))

		r.Get("/retention", router.requireAuth(models.PermissionAnalytics, router.Retention))

		r.Get("/metrics", router.requireAuth(models.PermissionAnalytics, router.Metrics))
		r.Get("/metrics/events", router.requireAuth(models.PermissionAnalytics, router.MetricsEvents))
		r.Get("/metrics/summary", router.requireAuth(models.PermissionAnalytics, router.MetricsSummary))

		r.Get("/users/{userId}/journey", router.requireAuth(models.PermissionAnalytics, router.UserJourney))
		r.Get("/users/{userId}/events", router.requireAuth(models.PermissionAnalytics, router.UserEvents))
		r.Get("/users/{userId}/summary", router.requireAuth(models.PermissionAnalytics, router.UserSummary))
	})

	r.Group(func(r chi.Router) {
		r.Use(RateLimitClass(router.limiter, ratelimit.ClassAdmin))

		r.Post("/auth/keys", router.requireAuth(models.PermissionAdmin, router.CreateAPIKey))
		r.Get("/auth/keys", router.requireAuth(models.PermissionAdmin, router.ListAPIKeys))
		r.Put("/auth/keys/{keyId}", router.requireAuth(models.PermissionAdmin, router.RotateAPIKey))
		r.Delete("/auth/keys/{keyId}", router.requireAuth(models.PermissionAdmin, router.RevokeAPIKey))

		r.Post("/auth/validate", router.auth.Authenticate(router.ValidateAPIKey))
	})

	r.Group(func(r chi.Router) {
		r.Use(RateLimitClass(router.limiter, ratelimit.ClassGeneral))
		r.Get("/ws", router.requireAuth(models.PermissionAnalytics, router.RealtimeStream))
	})

	return r
}
