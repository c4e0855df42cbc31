// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package analytics

import (
	"context"
	"time"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/models"
)

// UserJourney returns userID's chronologically ordered events within
// [start, end], scoped to tenant. Returns apperrors.NotFound if the user
// has no events in range.
func (e *Engine) UserJourney(ctx context.Context, tenant models.Tenant, userID string, start, end time.Time) (*models.JourneyResult, error) {
	key := kv.UserJourneyCacheKey(tenant.OrgID, tenant.ProjectID, userID, start, end)
	return cached(ctx, e, key, userCacheTTL, func(ctx context.Context) (*models.JourneyResult, error) {
		return e.computeJourney(ctx, tenant, userID, start, end)
	})
}

func (e *Engine) computeJourney(ctx context.Context, tenant models.Tenant, userID string, start, end time.Time) (*models.JourneyResult, error) {
	queryStart := time.Now()

	events, err := e.store.Scan(ctx, tenant, eventstore.ScanFilter{
		Start: start, End: end, UserID: userID,
	}, eventstore.OrderAscending, 0)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperrors.NotFound("user has no events in range")
	}

	steps := make([]models.JourneyStep, len(events))
	for i, ev := range events {
		steps[i] = models.JourneyStep{
			EventName:  ev.EventName,
			Timestamp:  ev.Timestamp,
			Properties: ev.Properties,
		}
	}

	return &models.JourneyResult{
		UserID:      userID,
		Steps:       steps,
		QueryTimeMs: time.Since(queryStart).Milliseconds(),
	}, nil
}
