// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eventlytics/eventlytics/internal/eventstore"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// UserJourney handles GET /users/{userId}/journey.
func (router *Router) UserJourney(w http.ResponseWriter, r *http.Request) {
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

	result, err := router.engine.UserJourney(r.Context(), tenant, chi.URLParam(r, "userId"), start, end)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(result)
}

// UserEvents handles GET /users/{userId}/events?page&limit&startDate&endDate&eventName.
func (router *Router) UserEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	start, end, err := parseDateRange(r, "startDate", "endDate", 90*24*time.Hour)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	page, limit, err := parsePagination(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	userID := chi.URLParam(r, "userId")
	filter := eventstore.ScanFilter{
		Start:     start,
		End:       end,
		UserID:    userID,
		EventName: r.URL.Query().Get("eventName"),
	}

	events, err := router.store.Scan(r.Context(), tenant, filter, eventstore.OrderDescending, page*limit+limit)
	if err != nil {
		writeEngineError(rw, err)
		return
	}

	offset := page * limit
	if offset > len(events) {
		offset = len(events)
	}
	upper := offset + limit
	if upper > len(events) {
		upper = len(events)
	}

	rw.Success(map[string]interface{}{
		"events": events[offset:upper],
		"page":   page,
		"limit":  limit,
	})
}

// UserSummary handles GET /users/{userId}/summary.
func (router *Router) UserSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	start, end, err := parseDateRange(r, "startDate", "endDate", 90*24*time.Hour)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	userID := chi.URLParam(r, "userId")
	filter := eventstore.ScanFilter{Start: start, End: end, UserID: userID}

	events, err := router.store.Scan(r.Context(), tenant, filter, eventstore.OrderAscending, 0)
	if err != nil {
		writeEngineError(rw, err)
		return
	}

	counts := make(map[string]int64)
	var firstSeen, lastSeen time.Time
	for i, ev := range events {
		counts[ev.EventName]++
		if i == 0 {
			firstSeen = ev.Timestamp
		}
		lastSeen = ev.Timestamp
	}

	rw.Success(map[string]interface{}{
		"userId":      userID,
		"totalEvents": len(events),
		"eventCounts": counts,
		"firstSeen":   firstSeen,
		"lastSeen":    lastSeen,
	})
}

// parsePagination reads page (0-based) and limit query parameters, applying
// sane defaults and bounds.
func parsePagination(r *http.Request) (page, limit int, err error) {
	page = 0
	limit = defaultPageLimit

	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, convErr := strconv.Atoi(raw)
		if convErr != nil || parsed < 0 {
			return 0, 0, errInvalidPage
		}
		page = parsed
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, convErr := strconv.Atoi(raw)
		if convErr != nil || parsed < 1 || parsed > maxPageLimit {
			return 0, 0, errInvalidLimit
		}
		limit = parsed
	}
	return page, limit, nil
}
