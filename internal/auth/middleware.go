// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package auth

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/authz"
	"github.com/eventlytics/eventlytics/internal/logging"
	"github.com/eventlytics/eventlytics/internal/models"
)

// KeyLookup resolves a plaintext API key's hash to its stored record. It is
// satisfied by the event store's API key repository.
type KeyLookup interface {
	LookupActiveKey(ctx context.Context, keyHash string) (*models.APIKey, error)
	TouchLastUsed(ctx context.Context, keyID string)
}

// permissionChecker is satisfied by *authz.Enforcer. Abstracted so
// middleware tests can substitute a trivial stand-in.
type permissionChecker interface {
	Allow(granted []models.Permission, required models.Permission) (bool, error)
}

// Middleware authenticates inbound requests against the API key header.
type Middleware struct {
	keys     KeyLookup
	enforcer permissionChecker
	security *logging.SecurityLogger
}

// NewMiddleware builds an authentication middleware backed by keys, with
// permission checks enforced by a fresh authz.Enforcer.
func NewMiddleware(keys KeyLookup) *Middleware {
	enforcer, err := authz.New()
	if err != nil {
		// The policy set is a fixed literal, so a construction failure here
		// means a programming error, not a runtime condition to recover from.
		panic("auth: failed to build permission enforcer: " + err.Error())
	}
	return &Middleware{
		keys:     keys,
		enforcer: enforcer,
		security: logging.NewSecurityLogger(),
	}
}

// Authenticate requires a valid, active API key on every request it wraps,
// injecting a *Subject into the request context on success.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plaintext := r.Header.Get(APIKeyHeader)
		if plaintext == "" {
			m.security.LogAuthFailure(clientIP(r), r.UserAgent(), "missing api key")
			writeUnauthorized(w, r, "missing API key")
			return
		}

		keyHash := models.HashAPIKey(plaintext)
		key, err := m.keys.LookupActiveKey(r.Context(), keyHash)
		if err != nil {
			m.security.LogAuthFailure(clientIP(r), r.UserAgent(), "invalid api key")
			writeUnauthorized(w, r, "invalid API key")
			return
		}

		m.keys.TouchLastUsed(r.Context(), key.ID)
		m.security.LogAuthSuccess(key.ID, key.OrgID, clientIP(r), r.UserAgent())

		subject := &Subject{KeyID: key.ID, OrgID: key.OrgID, ProjectID: key.ProjectID, Permissions: key.Permissions}
		ctx := ContextWithSubject(r.Context(), subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequirePermission wraps next, rejecting requests whose authenticated
// subject lacks perm with a 403. Must run after Authenticate.
func (m *Middleware) RequirePermission(perm models.Permission, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFromRequest(r)
		if !ok {
			writeUnauthorized(w, r, "authentication required")
			return
		}
		allowed, err := m.enforcer.Allow(subject.Permissions, perm)
		if err != nil {
			logging.Error().Err(err).Str("key_id", subject.KeyID).Msg("permission enforcement failed")
			writeForbidden(w, r, "insufficient permissions")
			return
		}
		if !allowed {
			m.security.LogForbidden(subject.KeyID, subject.OrgID, string(perm), clientIP(r))
			writeForbidden(w, r, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	writeAppError(w, apperrors.Unauthorized(message))
}

func writeForbidden(w http.ResponseWriter, r *http.Request, message string) {
	writeAppError(w, apperrors.Forbidden(message))
}

// writeAppError writes the minimal error envelope directly, avoiding an
// import cycle with the api package (which depends on auth for Authenticate).
func writeAppError(w http.ResponseWriter, err *apperrors.Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.HTTPStatus())
	_ = json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Message string `json:"message,omitempty"`
	}{Success: false, Error: string(err.Category), Message: err.Message})
}
