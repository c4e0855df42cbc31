// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/logging"
	"github.com/eventlytics/eventlytics/internal/models"
)

// CreateAPIKey persists a new API key record for the org.
func (s *Store) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	permsJSON := strings.Join(permissionStrings(key.Permissions), ",")
	projectID := sql.NullString{String: key.ProjectID, Valid: key.ProjectID != ""}

	_, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		_, execErr := s.conn.ExecContext(ctx, `INSERT INTO api_keys
			(id, key_hash, name, org_id, project_id, permissions, is_active, created_at, last_used_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			key.ID, key.KeyHash, key.Name, key.OrgID, projectID,
			permsJSON, key.Active, key.CreatedAt, key.LastUsedAt)
		if execErr != nil {
			return nil, fmt.Errorf("insert api key: %w", execErr)
		}
		return nil, nil
	})
	return err
}

// LookupActiveKey resolves a key hash to its stored record, satisfying
// auth.KeyLookup. A revoked or unknown hash is reported as not found.
func (s *Store) LookupActiveKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		row := s.conn.QueryRowContext(ctx, `SELECT id, key_hash, name, org_id, project_id, permissions, is_active, created_at, last_used_at
			FROM api_keys WHERE key_hash = ? AND is_active = TRUE`, keyHash)

		key, scanErr := scanAPIKey(row)
		if scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return nil, apperrors.NotFound("api key not found or inactive")
			}
			return nil, scanErr
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.APIKey), nil
}

// TouchLastUsed records the current time as a key's last-used timestamp,
// satisfying auth.KeyLookup. Failures are logged, not propagated: a
// bookkeeping miss must never fail the authenticated request it belongs to.
func (s *Store) TouchLastUsed(ctx context.Context, keyID string) {
	_, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		_, execErr := s.conn.ExecContext(ctx, `UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().UTC(), keyID)
		return nil, execErr
	})
	if err != nil {
		logging.Warn().Err(err).Str("key_id", keyID).Msg("failed to record api key last-used timestamp")
	}
}

// ListAPIKeys returns every key defined for the org, newest first.
func (s *Store) ListAPIKeys(ctx context.Context, orgID string) ([]*models.APIKey, error) {
	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		rows, err := s.conn.QueryContext(ctx, `SELECT id, key_hash, name, org_id, project_id, permissions, is_active, created_at, last_used_at
			FROM api_keys WHERE org_id = ? ORDER BY created_at DESC`, orgID)
		if err != nil {
			return nil, fmt.Errorf("list api keys: %w", err)
		}
		defer rows.Close()

		var keys []*models.APIKey
		for rows.Next() {
			key, scanErr := scanAPIKeyRows(rows)
			if scanErr != nil {
				return nil, scanErr
			}
			keys = append(keys, key)
		}
		return keys, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.APIKey), nil
}

// RevokeAPIKey deactivates a key, scoped to the org.
func (s *Store) RevokeAPIKey(ctx context.Context, orgID, keyID string) error {
	_, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		res, execErr := s.conn.ExecContext(ctx, `UPDATE api_keys SET is_active = FALSE WHERE id = ? AND org_id = ?`, keyID, orgID)
		if execErr != nil {
			return nil, fmt.Errorf("revoke api key: %w", execErr)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, apperrors.NotFound(fmt.Sprintf("api key %q not found", keyID))
		}
		return nil, nil
	})
	return err
}

func scanAPIKey(row *sql.Row) (*models.APIKey, error) {
	return scanAPIKeyInto(row)
}

func scanAPIKeyRows(rows *sql.Rows) (*models.APIKey, error) {
	return scanAPIKeyInto(rows)
}

func scanAPIKeyInto(scanner rowScanner) (*models.APIKey, error) {
	key := &models.APIKey{}
	var permsRaw string
	var projectID sql.NullString
	if err := scanner.Scan(&key.ID, &key.KeyHash, &key.Name, &key.OrgID, &projectID, &permsRaw, &key.Active, &key.CreatedAt, &key.LastUsedAt); err != nil {
		return nil, err
	}
	key.ProjectID = projectID.String
	key.KeyPrefix = key.ID
	key.Permissions = parsePermissions(permsRaw)
	return key, nil
}

func permissionStrings(perms []models.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

func parsePermissions(raw string) []models.Permission {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	perms := make([]models.Permission, 0, len(parts))
	for _, p := range parts {
		perms = append(perms, models.Permission(strings.TrimSpace(p)))
	}
	return perms
}
