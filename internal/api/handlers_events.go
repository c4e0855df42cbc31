// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/models"
)

// ingestResponse is the wire shape returned by a successful POST /events.
type ingestResponse struct {
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestEvents handles POST /events. The body is either a single event
// object or an array of up to 1,000. Every event in the batch shares the
// caller's tenant; a per-event validation failure or dedup hit is reported
// as skipped, never as a failure of the whole request.
func (router *Router) IngestEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	req, err := decodeIngestBody(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	accepted, skipped, err := router.pipeline.Ingest(r.Context(), tenant, req)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok {
			rw.Error(appErr)
			return
		}
		rw.InternalError("ingest events", err)
		return
	}

	rw.Success(ingestResponse{
		Processed: accepted,
		Skipped:   skipped,
		Timestamp: time.Now().UTC(),
	})
}

// decodeIngestBody accepts either a single event object or a JSON array,
// normalizing both into an IngestBatchRequest.
func decodeIngestBody(r *http.Request) (models.IngestBatchRequest, error) {
	raw, err := decodeRawJSON(r)
	if err != nil {
		return models.IngestBatchRequest{}, err
	}

	trimmed := skipLeadingSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []models.IngestEventRequest
		if err := json.Unmarshal(raw, &events); err != nil {
			return models.IngestBatchRequest{}, errInvalidJSON
		}
		return models.IngestBatchRequest{Events: events}, nil
	}

	var single models.IngestEventRequest
	if err := json.Unmarshal(raw, &single); err != nil {
		return models.IngestBatchRequest{}, errInvalidJSON
	}
	return models.IngestBatchRequest{Events: []models.IngestEventRequest{single}}, nil
}

// EventsSummary handles GET /events/summary.
func (router *Router) EventsSummary(w http.ResponseWriter, r *http.Request) {
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

	result, err := router.engine.Summary(r.Context(), tenant, start, end)
	if err != nil {
		writeEngineError(rw, err)
		return
	}
	rw.Success(result)
}

// EventsRealtime handles GET /events/realtime, the current value of the
// tenant's total-events counter maintained by the ingestion worker.
func (router *Router) EventsRealtime(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	tenant, ok := tenantFromRequest(r)
	if !ok {
		rw.BadRequest("projectId query parameter is required")
		return
	}

	count, err := router.kvStore.GetInt64(kv.EventCountKey(tenant.OrgID, tenant.ProjectID))
	if err != nil {
		rw.ServiceUnavailable("read realtime counter", err)
		return
	}

	rw.Success(map[string]interface{}{"count": count})
}
