// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package models defines the data structures shared across the ingestion
// pipeline, event store, analytics engine, and API layer.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Event represents a single analytics event ingested for a tenant project.
//
// Events are addressed by (OrgID, ProjectID) for tenant isolation and
// deduplicated by Fingerprint, a content hash derived from the fields that
// make an event a logical duplicate of another.
type Event struct {
	ID          uuid.UUID              `json:"id"`
	OrgID       string                 `json:"orgId"`
	ProjectID   string                 `json:"projectId"`
	EventName   string                 `json:"eventName"`
	UserID      string                 `json:"userId"`
	Timestamp   time.Time              `json:"timestamp"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	SessionID   string                 `json:"sessionId,omitempty"`
	PageURL     string                 `json:"pageUrl,omitempty"`
	UserAgent   string                 `json:"userAgent,omitempty"`
	IPAddress   string                 `json:"ipAddress,omitempty"`
	Fingerprint string                 `json:"fingerprint"`
	ReceivedAt  time.Time              `json:"receivedAt"`
	RawPayload  json.RawMessage        `json:"-"`
}

// Tenant identifies the (orgId, projectId) pair that partitions all data
// and quotas. Every event store, cache, and queue operation is scoped to one.
type Tenant struct {
	OrgID     string
	ProjectID string
}

// Key returns the tenant's cache/buffer namespace key, "{orgId}:{projectId}".
func (t Tenant) Key() string {
	return t.OrgID + ":" + t.ProjectID
}

// IngestEventRequest is the wire shape for a single event in an ingestion batch.
type IngestEventRequest struct {
	EventName  string                 `json:"eventName" validate:"required,min=1,max=255"`
	UserID     string                 `json:"userId" validate:"required,min=1,max=255"`
	Timestamp  *time.Time             `json:"timestamp,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	SessionID  string                 `json:"sessionId,omitempty"`
	PageURL    string                 `json:"pageUrl,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty"`
	IPAddress  string                 `json:"ipAddress,omitempty"`
}

// IngestBatchRequest is the wire shape for a POST /events batch.
type IngestBatchRequest struct {
	Events []IngestEventRequest `json:"events" validate:"required,min=1,max=1000,dive"`
}

// NewEvent builds an Event from a validated ingestion request, computing its
// fingerprint and assigning a fresh identifier.
func NewEvent(orgID, projectID string, req IngestEventRequest) *Event {
	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	e := &Event{
		ID:         uuid.New(),
		OrgID:      orgID,
		ProjectID:  projectID,
		EventName:  req.EventName,
		UserID:     req.UserID,
		Timestamp:  ts,
		Properties: req.Properties,
		SessionID:  req.SessionID,
		PageURL:    req.PageURL,
		UserAgent:  req.UserAgent,
		IPAddress:  req.IPAddress,
		ReceivedAt: time.Now().UTC(),
	}
	e.Fingerprint = Fingerprint(orgID, projectID, req.UserID, req.EventName, ts)
	return e
}

// Fingerprint computes the content-addressed dedup key for an event:
// a SHA-256 hash over (orgId, projectId, userId, eventName, timestampMillis).
// Two events with identical values for these fields are considered the same
// logical event regardless of differing properties or arrival order.
func Fingerprint(orgID, projectID, userID, eventName string, ts time.Time) string {
	h := sha256.New()
	h.Write([]byte(orgID))
	h.Write([]byte{0})
	h.Write([]byte(projectID))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(eventName))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(ts.UnixMilli(), 10)))
	return hex.EncodeToString(h.Sum(nil))
}

// DedupKey returns the Badger key namespace used to record that this
// event's fingerprint has already been accepted.
func (e *Event) DedupKey() string {
	return "dedup:" + e.OrgID + ":" + e.ProjectID + ":" + e.Fingerprint
}
