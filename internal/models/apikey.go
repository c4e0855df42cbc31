// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Permission is a single action an API key may be granted within an org.
type Permission string

// Permissions recognized by the authorization layer. Admin inherits every
// other permission via role inheritance in the Casbin policy.
const (
	PermissionRead      Permission = "read"
	PermissionWrite     Permission = "write"
	PermissionAnalytics Permission = "analytics"
	PermissionAdmin     Permission = "admin"
)

// AllPermissions returns every assignable permission.
func AllPermissions() []Permission {
	return []Permission{PermissionRead, PermissionWrite, PermissionAnalytics, PermissionAdmin}
}

// IsValidPermission reports whether p is a recognized permission.
func IsValidPermission(p Permission) bool {
	for _, v := range AllPermissions() {
		if v == p {
			return true
		}
	}
	return false
}

// keyPrefixLen is the number of plaintext-visible characters stored
// alongside the hash, for key identification in listings.
const keyPrefixLen = 12

// apiKeyPrefix identifies the token format: evl_<hex>.
const apiKeyPrefix = "evl_"

// APIKey is an opaque bearer credential scoped to a single organization,
// and optionally to a single project within it. The plaintext key is shown
// to the caller exactly once, at creation; only its SHA-256 hash and a
// short identifying prefix are persisted.
type APIKey struct {
	ID        string `json:"id"`
	OrgID     string `json:"orgId"`
	// ProjectID restricts the key to a single project within OrgID; empty
	// means the key may address any project in its org.
	ProjectID   string       `json:"projectId,omitempty"`
	Name        string       `json:"name"`
	KeyPrefix   string       `json:"keyPrefix"`
	KeyHash     string       `json:"-"`
	Permissions []Permission `json:"permissions"`
	Active      bool         `json:"active"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastUsedAt  *time.Time   `json:"lastUsedAt,omitempty"`
}

// CreateAPIKeyRequest is the wire shape for creating a new API key.
type CreateAPIKeyRequest struct {
	Name        string       `json:"name" validate:"required,min=1,max=200"`
	Permissions []Permission `json:"permissions" validate:"required,min=1,dive"`
	// ProjectID, if set, restricts the new key to that single project.
	// Omit for an org-wide key.
	ProjectID string `json:"projectId,omitempty"`
}

// CreateAPIKeyResponse includes the plaintext key, shown only once.
type CreateAPIKeyResponse struct {
	Key            *APIKey `json:"key"`
	PlaintextToken string  `json:"plaintextToken"`
}

// GenerateAPIKey creates a new random key and returns both the persisted
// record (hash only) and the plaintext value to hand back to the caller.
// An empty projectID produces an org-wide key.
func GenerateAPIKey(orgID, projectID, name string, permissions []Permission) (*APIKey, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	plaintext := apiKeyPrefix + hex.EncodeToString(raw)

	key := &APIKey{
		ID:          plaintext[:keyPrefixLen],
		OrgID:       orgID,
		ProjectID:   projectID,
		Name:        name,
		KeyPrefix:   plaintext[:keyPrefixLen],
		KeyHash:     HashAPIKey(plaintext),
		Permissions: permissions,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	return key, plaintext, nil
}

// HashAPIKey returns the stable hash of a plaintext key, used both to
// persist and to look up keys by their presented value.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// HasPermission reports whether the key carries perm, directly or via the
// admin permission's implicit grant of everything.
func (k *APIKey) HasPermission(perm Permission) bool {
	for _, p := range k.Permissions {
		if p == PermissionAdmin || p == perm {
			return true
		}
	}
	return false
}

// IsUsable reports whether the key may currently authenticate requests.
func (k *APIKey) IsUsable() bool {
	return k.Active
}
