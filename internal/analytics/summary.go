// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package analytics

import (
	"context"
	"time"

	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/models"
)

// Summary computes the per-eventName breakdown for tenant over [start, end],
// descending by count, plus totals across all event names.
func (e *Engine) Summary(ctx context.Context, tenant models.Tenant, start, end time.Time) (*models.SummaryResult, error) {
	key := kv.EventSummaryCacheKey(tenant.OrgID, tenant.ProjectID, start, end)
	return cached(ctx, e, key, defaultCacheTTL, func(ctx context.Context) (*models.SummaryResult, error) {
		return e.computeSummary(ctx, tenant, start, end)
	})
}

func (e *Engine) computeSummary(ctx context.Context, tenant models.Tenant, start, end time.Time) (*models.SummaryResult, error) {
	queryStart := time.Now()

	rollup, err := e.store.SummaryByEventName(ctx, tenant, start, end)
	if err != nil {
		return nil, err
	}

	topEvents := make([]models.EventCount, len(rollup))
	var totalEvents int64
	for i, r := range rollup {
		topEvents[i] = models.EventCount{EventName: r.EventName, Count: r.Count, UniqueUsers: r.UniqueUsers}
		totalEvents += r.Count
	}

	totalUniqueUsers, err := e.store.CountDistinctUsers(ctx, tenant, eventstore.ScanFilter{Start: start, End: end})
	if err != nil {
		return nil, err
	}

	return &models.SummaryResult{
		From:        start,
		To:          end,
		TotalEvents: totalEvents,
		UniqueUsers: totalUniqueUsers,
		TopEvents:   topEvents,
		QueryTimeMs: time.Since(queryStart).Milliseconds(),
	}, nil
}
