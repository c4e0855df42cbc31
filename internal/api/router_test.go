// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventlytics/eventlytics/internal/analytics"
	"github.com/eventlytics/eventlytics/internal/auth"
	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/ratelimit"
	"github.com/eventlytics/eventlytics/internal/realtime"
)

// newTestRouter builds a Router against an in-memory event store and KV
// store, so the test suite exercises real routing, auth, and rate-limit
// wiring without touching disk or requiring a live queue connection.
// The ingestion pipeline is left nil: every route this suite exercises
// either never reaches it or is rejected by auth first.
func newTestRouter(t *testing.T) *Router {
	t.Helper()

	store, err := eventstore.New(&eventstore.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("eventstore.New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	kvStore, err := kv.New(&kv.Config{InMemory: true})
	if err != nil {
		t.Fatalf("kv.New: %v", err)
	}
	t.Cleanup(func() { _ = kvStore.Close() })

	engine := analytics.New(store, kvStore)
	limiter := ratelimit.New(kvStore, nil)
	mw := auth.NewMiddleware(store)

	return NewRouter(Deps{
		Store:         store,
		KVStore:       kvStore,
		Pipeline:      nil,
		Engine:        engine,
		Hub:           realtime.NewHub(),
		Auth:          mw,
		Limiter:       limiter,
		ChiMiddleware: NewChiMiddleware(nil),
		CORSOrigins:   []string{"*"},
		Environment:   "test",
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)
	handler := router.SetupChi()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestPrometheusMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	handler := router.SetupChi()

	req := httptest.NewRequest(http.MethodGet, "/internal/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestProtectedRoutesRejectMissingAPIKey(t *testing.T) {
	router := newTestRouter(t)
	handler := router.SetupChi()

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/events"},
		{http.MethodGet, "/events/summary"},
		{http.MethodGet, "/funnels"},
		{http.MethodGet, "/retention"},
		{http.MethodPost, "/auth/keys"},
		{http.MethodGet, "/users/u1/journey"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestProtectedRoutesRejectInvalidAPIKey(t *testing.T) {
	router := newTestRouter(t)
	handler := router.SetupChi()

	req := httptest.NewRequest(http.MethodGet, "/events/summary", nil)
	req.Header.Set(auth.APIKeyHeader, "does-not-exist")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(t)
	handler := router.SetupChi()

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
