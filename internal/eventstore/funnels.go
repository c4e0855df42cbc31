// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/models"
)

// CreateFunnel persists a new funnel definition for the tenant. A duplicate
// name within the same tenant is rejected as a conflict.
func (s *Store) CreateFunnel(ctx context.Context, tenant models.Tenant, req models.CreateFunnelRequest) (*models.Funnel, error) {
	stepsJSON, err := json.Marshal(req.Steps)
	if err != nil {
		return nil, fmt.Errorf("marshal funnel steps: %w", err)
	}

	now := time.Now().UTC()
	f := &models.Funnel{
		ID:            uuid.NewString(),
		OrgID:         tenant.OrgID,
		ProjectID:     tenant.ProjectID,
		Name:          req.Name,
		Steps:         req.Steps,
		WindowSeconds: req.WindowSeconds,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err = s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		_, execErr := s.conn.ExecContext(ctx, `INSERT INTO funnels
			(id, org_id, project_id, name, steps, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.OrgID, f.ProjectID, f.Name, string(stepsJSON), f.CreatedAt, f.UpdatedAt)
		if execErr != nil {
			if isUniqueViolation(execErr) {
				return nil, apperrors.Conflict(fmt.Sprintf("funnel %q already exists", f.Name))
			}
			return nil, fmt.Errorf("insert funnel: %w", execErr)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// GetFunnel fetches a funnel by ID, scoped to the tenant.
func (s *Store) GetFunnel(ctx context.Context, tenant models.Tenant, id string) (*models.Funnel, error) {
	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		row := s.conn.QueryRowContext(ctx, `SELECT id, org_id, project_id, name, steps, created_at, updated_at
			FROM funnels WHERE id = ? AND org_id = ? AND project_id = ?`, id, tenant.OrgID, tenant.ProjectID)
		f, scanErr := scanFunnel(row)
		if scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return nil, apperrors.NotFound(fmt.Sprintf("funnel %q not found", id))
			}
			return nil, scanErr
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Funnel), nil
}

// ListFunnels returns every funnel defined for the tenant, ordered by name.
func (s *Store) ListFunnels(ctx context.Context, tenant models.Tenant) ([]*models.Funnel, error) {
	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		rows, err := s.conn.QueryContext(ctx, `SELECT id, org_id, project_id, name, steps, created_at, updated_at
			FROM funnels WHERE org_id = ? AND project_id = ? ORDER BY name ASC`, tenant.OrgID, tenant.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("list funnels: %w", err)
		}
		defer rows.Close()

		var funnels []*models.Funnel
		for rows.Next() {
			f, scanErr := scanFunnelRows(rows)
			if scanErr != nil {
				return nil, scanErr
			}
			funnels = append(funnels, f)
		}
		return funnels, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Funnel), nil
}

// UpdateFunnel replaces a funnel's name and steps, scoped to the tenant. The
// request's WindowSeconds is not stored.
func (s *Store) UpdateFunnel(ctx context.Context, tenant models.Tenant, id string, req models.CreateFunnelRequest) (*models.Funnel, error) {
	stepsJSON, err := json.Marshal(req.Steps)
	if err != nil {
		return nil, fmt.Errorf("marshal funnel steps: %w", err)
	}
	now := time.Now().UTC()

	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		res, execErr := s.conn.ExecContext(ctx, `UPDATE funnels SET name = ?, steps = ?, updated_at = ?
			WHERE id = ? AND org_id = ? AND project_id = ?`,
			req.Name, string(stepsJSON), now, id, tenant.OrgID, tenant.ProjectID)
		if execErr != nil {
			return nil, fmt.Errorf("update funnel: %w", execErr)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, apperrors.NotFound(fmt.Sprintf("funnel %q not found", id))
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetFunnel(ctx, tenant, id)
}

// DeleteFunnel removes a funnel definition, scoped to the tenant.
func (s *Store) DeleteFunnel(ctx context.Context, tenant models.Tenant, id string) error {
	_, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		res, execErr := s.conn.ExecContext(ctx, `DELETE FROM funnels WHERE id = ? AND org_id = ? AND project_id = ?`,
			id, tenant.OrgID, tenant.ProjectID)
		if execErr != nil {
			return nil, fmt.Errorf("delete funnel: %w", execErr)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return nil, apperrors.NotFound(fmt.Sprintf("funnel %q not found", id))
		}
		return nil, nil
	})
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFunnel(row *sql.Row) (*models.Funnel, error) {
	return scanFunnelInto(row)
}

func scanFunnelRows(rows *sql.Rows) (*models.Funnel, error) {
	return scanFunnelInto(rows)
}

func scanFunnelInto(scanner rowScanner) (*models.Funnel, error) {
	f := &models.Funnel{}
	var stepsJSON string
	if err := scanner.Scan(&f.ID, &f.OrgID, &f.ProjectID, &f.Name, &stepsJSON, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stepsJSON), &f.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal funnel steps: %w", err)
	}
	return f, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "constraint")
}
