// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package auth authenticates requests against API keys and carries the
// authenticated subject through the request context.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/eventlytics/eventlytics/internal/models"
)

// Standard authentication errors.
var (
	// ErrNoCredentials indicates no API key was presented.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates the presented API key is unknown or inactive.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// APIKeyHeader is the header carrying the plaintext API key.
const APIKeyHeader = "X-API-Key"

// Subject represents the authenticated caller for a request: the API key
// that authenticated it, the organization it belongs to, and, for
// project-scoped keys, the single project it may address.
type Subject struct {
	KeyID string
	OrgID string
	// ProjectID restricts the subject to one project within OrgID; empty
	// means the underlying key is org-wide and may address any project.
	ProjectID   string
	Permissions []models.Permission
}

type contextKey string

const subjectContextKey contextKey = "auth.subject"

// ContextWithSubject returns a context carrying the authenticated subject.
func ContextWithSubject(ctx context.Context, subject *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, subject)
}

// SubjectFromContext extracts the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (*Subject, bool) {
	s, ok := ctx.Value(subjectContextKey).(*Subject)
	return s, ok
}

// SubjectFromRequest extracts the authenticated subject from a request's context.
func SubjectFromRequest(r *http.Request) (*Subject, bool) {
	return SubjectFromContext(r.Context())
}
