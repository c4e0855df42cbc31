// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventlytics/eventlytics/internal/auth"
	"github.com/eventlytics/eventlytics/internal/models"
	"github.com/eventlytics/eventlytics/internal/validation"
)

// CreateAPIKey handles POST /auth/keys. Admin-only: the new key always
// belongs to the caller's own org, never an org named in the request body.
func (router *Router) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	subject, ok := auth.SubjectFromRequest(r)
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	raw, err := decodeRawJSON(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var req models.CreateAPIKeyRequest
	if err := decodeJSON(raw, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(rw, verr)
		return
	}
	for _, perm := range req.Permissions {
		if !models.IsValidPermission(perm) {
			rw.BadRequest("unrecognized permission: " + string(perm))
			return
		}
	}

	key, plaintext, err := models.GenerateAPIKey(subject.OrgID, req.ProjectID, req.Name, req.Permissions)
	if err != nil {
		rw.InternalError("generate api key", err)
		return
	}

	if err := router.store.CreateAPIKey(r.Context(), key); err != nil {
		writeEngineError(rw, err)
		return
	}

	rw.Created(models.CreateAPIKeyResponse{Key: key, PlaintextToken: plaintext})
}

// ListAPIKeys handles GET /auth/keys, scoped to the caller's own org.
func (router *Router) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	subject, ok := auth.SubjectFromRequest(r)
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	keys, err := router.store.ListAPIKeys(r.Context(), subject.OrgID)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(keys)
}

// RotateAPIKey handles PUT /auth/keys/{keyId}: revokes the named key and
// issues a replacement with the same name and permissions.
func (router *Router) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	subject, ok := auth.SubjectFromRequest(r)
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	keyID := chi.URLParam(r, "keyId")
	keys, err := router.store.ListAPIKeys(r.Context(), subject.OrgID)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	var target *models.APIKey
	for _, k := range keys {
		if k.ID == keyID {
			target = k
			break
		}
	}
	if target == nil {
		rw.NotFound("api key not found")
		return
	}

	if err := router.store.RevokeAPIKey(r.Context(), subject.OrgID, keyID); err != nil {
		writeEngineError(rw, err)
		return
	}

	newKey, plaintext, err := models.GenerateAPIKey(subject.OrgID, target.ProjectID, target.Name, target.Permissions)
	if err != nil {
		rw.InternalError("generate api key", err)
		return
	}
	if err := router.store.CreateAPIKey(r.Context(), newKey); err != nil {
		writeEngineError(rw, err)
		return
	}

	rw.Success(models.CreateAPIKeyResponse{Key: newKey, PlaintextToken: plaintext})
}

// RevokeAPIKey handles DELETE /auth/keys/{keyId}.
func (router *Router) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	subject, ok := auth.SubjectFromRequest(r)
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	if err := router.store.RevokeAPIKey(r.Context(), subject.OrgID, chi.URLParam(r, "keyId")); err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.NoContent()
}

// ValidateAPIKey handles POST /auth/validate. Any authenticated caller may
// confirm its own key is active and inspect its granted permissions.
func (router *Router) ValidateAPIKey(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	subject, ok := auth.SubjectFromRequest(r)
	if !ok {
		rw.Unauthorized("authentication required")
		return
	}

	rw.Success(map[string]interface{}{
		"valid":       true,
		"orgId":       subject.OrgID,
		"projectId":   subject.ProjectID,
		"permissions": subject.Permissions,
	})
}
