// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eventlytics/eventlytics/internal/models"
)

type stubKeyLookup struct {
	key *models.APIKey
	err error
}

func (s *stubKeyLookup) LookupActiveKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.key, nil
}

func (s *stubKeyLookup) TouchLastUsed(ctx context.Context, keyID string) {}

func newTestMiddleware(keys KeyLookup) *Middleware {
	return NewMiddleware(keys)
}

func TestAuthenticateMissingKey(t *testing.T) {
	mw := newTestMiddleware(&stubKeyLookup{})
	called := false
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if called {
		t.Error("next handler should not run without an API key")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateInvalidKey(t *testing.T) {
	mw := newTestMiddleware(&stubKeyLookup{err: errors.New("not found")})
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run with an invalid key")
	})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set(APIKeyHeader, "bogus")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticateValidKeyInjectsSubject(t *testing.T) {
	key := &models.APIKey{ID: "key_1", OrgID: "org_1", Active: true, Permissions: []models.Permission{models.PermissionRead}}
	mw := newTestMiddleware(&stubKeyLookup{key: key})

	var gotSubject *Subject
	handler := mw.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = SubjectFromRequest(r)
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set(APIKeyHeader, "valid-plaintext-key")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotSubject == nil {
		t.Fatal("expected subject to be injected into request context")
	}
	if gotSubject.KeyID != "key_1" || gotSubject.OrgID != "org_1" {
		t.Errorf("subject = %+v, want key_1/org_1", gotSubject)
	}
}

func TestRequirePermissionRejectsUnauthenticated(t *testing.T) {
	mw := newTestMiddleware(&stubKeyLookup{})
	handler := mw.RequirePermission(models.PermissionWrite, func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run without an authenticated subject")
	})

	req := httptest.NewRequest(http.MethodPost, "/events", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequirePermissionDeniesInsufficientGrant(t *testing.T) {
	mw := newTestMiddleware(&stubKeyLookup{})
	handler := mw.RequirePermission(models.PermissionWrite, func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run with insufficient permissions")
	})

	subject := &Subject{KeyID: "key_1", OrgID: "org_1", Permissions: []models.Permission{models.PermissionRead}}
	req := httptest.NewRequest(http.MethodPost, "/events", nil)
	req = req.WithContext(ContextWithSubject(req.Context(), subject))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequirePermissionAllowsDirectGrant(t *testing.T) {
	mw := newTestMiddleware(&stubKeyLookup{})
	called := false
	handler := mw.RequirePermission(models.PermissionRead, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	subject := &Subject{KeyID: "key_1", OrgID: "org_1", Permissions: []models.Permission{models.PermissionRead}}
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(ContextWithSubject(req.Context(), subject))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if !called {
		t.Error("expected next handler to run with a matching permission")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequirePermissionAllowsAdminGrant(t *testing.T) {
	mw := newTestMiddleware(&stubKeyLookup{})
	called := false
	handler := mw.RequirePermission(models.PermissionAnalytics, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	subject := &Subject{KeyID: "key_1", OrgID: "org_1", Permissions: []models.Permission{models.PermissionAdmin}}
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(ContextWithSubject(req.Context(), subject))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if !called {
		t.Error("expected admin grant to satisfy an analytics permission check")
	}
}
