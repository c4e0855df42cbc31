// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eventlytics/eventlytics/internal/analytics"
	"github.com/eventlytics/eventlytics/internal/eventstore"
)

// Retention handles GET /retention?cohort&days&startDate&endDate.
func (router *Router) Retention(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	cohort := r.URL.Query().Get("cohort")
	if cohort == "" {
		rw.BadRequest("cohort query parameter is required")
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			rw.BadRequest("days must be an integer between 1 and 365")
			return
		}
		days = parsed
	}

	start, end, err := parseDateRange(r, "startDate", "endDate", time.Duration(2*days)*24*time.Hour)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	result, err := router.engine.Retention(r.Context(), tenant, analytics.RetentionQuery{
		CohortEvent: cohort,
		ReturnEvent: r.URL.Query().Get("returnEvent"),
		Days:        days,
		Start:       start,
		End:         end,
	})
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(result)
}

// Metrics handles GET /metrics?event&interval&startDate&endDate. A filters
// query parameter is not read: every occurrence of the event in range is
// counted, whatever its properties.
func (router *Router) Metrics(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	eventName := r.URL.Query().Get("event")
	if eventName == "" {
		rw.BadRequest("event query parameter is required")
		return
	}

	interval, err := parseBucketInterval(r.URL.Query().Get("interval"))
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	start, end, err := parseDateRange(r, "startDate", "endDate", 30*24*time.Hour)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	result, err := router.engine.Metrics(r.Context(), tenant, analytics.MetricsQuery{
		EventName: eventName,
		Interval:  interval,
		Start:     start,
		End:       end,
	})
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(result)
}

// MetricsEvents handles GET /metrics/events, the per-event-name breakdown
// for a tenant over a time range.
func (router *Router) MetricsEvents(w http.ResponseWriter, r *http.Request) {
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

	counts, err := router.store.SummaryByEventName(r.Context(), tenant, start, end)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(counts)
}

// MetricsSummary handles GET /metrics/summary, an alias of the top-line
// project summary scoped to a time range.
func (router *Router) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	router.EventsSummary(w, r)
}

func parseBucketInterval(raw string) (eventstore.BucketInterval, error) {
	switch raw {
	case "", "daily":
		return eventstore.IntervalDaily, nil
	case "hourly":
		return eventstore.IntervalHourly, nil
	case "weekly":
		return eventstore.IntervalWeekly, nil
	case "monthly":
		return eventstore.IntervalMonthly, nil
	default:
		return "", errInvalidInterval
	}
}
