// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eventlytics/eventlytics/internal/models"
	"github.com/eventlytics/eventlytics/internal/validation"
)

// CreateFunnel handles POST /funnels.
func (router *Router) CreateFunnel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	var req models.CreateFunnelRequest
	raw, err := decodeRawJSON(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := decodeJSON(raw, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(rw, verr)
		return
	}
	if err := models.ValidateFunnelSteps(req.Steps); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	funnel, err := router.store.CreateFunnel(r.Context(), tenant, req)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Created(funnel)
}

// ListFunnels handles GET /funnels.
func (router *Router) ListFunnels(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	funnels, err := router.store.ListFunnels(r.Context(), tenant)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(funnels)
}

// GetFunnel handles GET /funnels/{funnelId}.
func (router *Router) GetFunnel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	funnel, err := router.store.GetFunnel(r.Context(), tenant, chi.URLParam(r, "funnelId"))
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(funnel)
}

// UpdateFunnel handles PUT /funnels/{funnelId}.
func (router *Router) UpdateFunnel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	var req models.CreateFunnelRequest
	raw, err := decodeRawJSON(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := decodeJSON(raw, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(rw, verr)
		return
	}
	if err := models.ValidateFunnelSteps(req.Steps); err != nil {
		rw.BadRequest(err.Error())
		return
	}

	funnel, err := router.store.UpdateFunnel(r.Context(), tenant, chi.URLParam(r, "funnelId"), req)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(funnel)
}

// DeleteFunnel handles DELETE /funnels/{funnelId}.
func (router *Router) DeleteFunnel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	if err := router.store.DeleteFunnel(r.Context(), tenant, chi.URLParam(r, "funnelId")); err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.NoContent()
}

// FunnelAnalytics handles GET /funnels/{funnelId}/analytics.
func (router *Router) FunnelAnalytics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	start, end, err := parseDateRange(r, "startDate", "endDate", 30*24*time.Hour)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	result, err := router.engine.Funnel(r.Context(), tenant, chi.URLParam(r, "funnelId"), start, end)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(result)
}
