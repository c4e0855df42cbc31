// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package authz enforces API key permission grants via an in-memory Casbin
// RBAC model: admin inherits read, write, and analytics, so a key granted
// only "admin" satisfies every permission check without being listed
// against each one individually.
package authz

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/eventlytics/eventlytics/internal/models"
)

// resource is the sole object in the policy; every permission check is
// scoped to a single API, so there is nothing for the object axis to
// discriminate between.
const resource = "api"

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Enforcer answers permission checks for a set of granted permissions
// against a required one.
type Enforcer struct {
	e *casbin.Enforcer
}

// New builds an Enforcer with the fixed role hierarchy described in the
// package doc. It never mutates after construction, so a single instance
// is safe to share across every request.
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	e.EnableLog(false)

	for _, perm := range models.AllPermissions() {
		if _, err := e.AddPolicy(string(perm), resource, string(perm)); err != nil {
			return nil, err
		}
	}
	for _, perm := range models.AllPermissions() {
		if perm == models.PermissionAdmin {
			continue
		}
		if _, err := e.AddGroupingPolicy(string(models.PermissionAdmin), string(perm)); err != nil {
			return nil, err
		}
	}

	return &Enforcer{e: e}, nil
}

// Allow reports whether granted contains required, directly or through the
// admin role's inherited permissions. A Casbin evaluation error denies the
// request rather than failing open, since this is a security boundary, not
// a best-effort optimization.
func (en *Enforcer) Allow(granted []models.Permission, required models.Permission) (bool, error) {
	for _, perm := range granted {
		ok, err := en.e.Enforce(string(perm), resource, string(required))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
