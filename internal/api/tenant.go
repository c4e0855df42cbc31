// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"

	"github.com/eventlytics/eventlytics/internal/auth"
	"github.com/eventlytics/eventlytics/internal/models"
)

// projectIDParam is the query parameter carrying the project scope of a
// request. An API key's org is fixed at creation, but its project scope is
// supplied per request so an org-wide key can address any project within it.
const projectIDParam = "projectId"

// tenantFromRequest derives the (orgId, projectId) pair a request is
// scoped to from the authenticated subject and the projectId query
// parameter. The org is never trusted from client input; only the
// authenticated subject supplies it. A project-scoped key is rejected
// outright if it names a project other than its own.
func tenantFromRequest(r *http.Request) (models.Tenant, bool) {
	subject, ok := auth.SubjectFromRequest(r)
	if !ok {
		return models.Tenant{}, false
	}
	if !requireOrgAccess(subject, subject.OrgID) {
		return models.Tenant{}, false
	}
	projectID := r.URL.Query().Get(projectIDParam)
	if projectID == "" {
		return models.Tenant{}, false
	}
	if !requireProjectAccess(subject, projectID) {
		return models.Tenant{}, false
	}
	return models.Tenant{OrgID: subject.OrgID, ProjectID: projectID}, true
}

// requireOrgAccess reports whether subject may act within orgID. A
// Subject's OrgID is always derived from its own authenticated key, never
// from client input, so this is never false in practice; it exists to make
// org-scope enforcement an explicit, named check alongside
// requireProjectAccess rather than an implicit assumption.
func requireOrgAccess(subject *auth.Subject, orgID string) bool {
	return subject.OrgID == orgID
}

// requireProjectAccess reports whether subject may act within projectID.
// An org-wide key (empty Subject.ProjectID) may address any project in its
// org; a project-scoped key may only address its own project.
func requireProjectAccess(subject *auth.Subject, projectID string) bool {
	return subject.ProjectID == "" || subject.ProjectID == projectID
}
