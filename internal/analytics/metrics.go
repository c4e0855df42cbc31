// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/models"
)

// MetricsQuery are the parameters of a bucketed metric aggregation.
type MetricsQuery struct {
	EventName  string
	Interval   eventstore.BucketInterval
	Start, End time.Time
}

// Metrics computes a bucketed (count, uniqueUsers) series for EventName over
// [start, end], defaulting to the last 30 days when unset.
func (e *Engine) Metrics(ctx context.Context, tenant models.Tenant, q MetricsQuery) (*models.MetricResult, error) {
	end := q.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := q.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}

	key := kv.MetricsCacheKey(tenant.OrgID, tenant.ProjectID, q.EventName, string(q.Interval), start, end)
	return cached(ctx, e, key, defaultCacheTTL, func(ctx context.Context) (*models.MetricResult, error) {
		return e.computeMetrics(ctx, tenant, q, start, end)
	})
}

func (e *Engine) computeMetrics(ctx context.Context, tenant models.Tenant, q MetricsQuery, start, end time.Time) (*models.MetricResult, error) {
	queryStart := time.Now()

	buckets, err := e.store.Aggregate(ctx, tenant, q.EventName, q.Interval, start, end)
	if err != nil {
		return nil, err
	}

	points := make([]models.MetricPoint, len(buckets))
	var totalCount int64
	for i, b := range buckets {
		points[i] = models.MetricPoint{BucketStart: b.Start, Count: b.Count, UniqueUsers: b.UniqueUsers}
		totalCount += b.Count
	}

	totalUniqueUsers, err := e.store.CountDistinctUsers(ctx, tenant, eventstore.ScanFilter{
		Start: start, End: end, EventName: q.EventName,
	})
	if err != nil {
		return nil, err
	}

	granularity, err := granularityName(q.Interval)
	if err != nil {
		return nil, err
	}

	return &models.MetricResult{
		EventName:        q.EventName,
		Granularity:      granularity,
		Points:           points,
		TotalCount:       totalCount,
		TotalUniqueUsers: totalUniqueUsers,
		QueryTimeMs:      time.Since(queryStart).Milliseconds(),
	}, nil
}

func granularityName(interval eventstore.BucketInterval) (string, error) {
	switch interval {
	case eventstore.IntervalHourly:
		return "hour", nil
	case eventstore.IntervalDaily:
		return "day", nil
	case eventstore.IntervalWeekly:
		return "week", nil
	case eventstore.IntervalMonthly:
		return "month", nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unknown interval %q", interval), nil)
	}
}
