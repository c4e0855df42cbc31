// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package analytics

import (
	"context"
	"math"
	"time"

	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/models"
)

// RetentionQuery are the parameters of a retention analysis.
type RetentionQuery struct {
	// CohortEvent is the anchor event defining cohort membership.
	CohortEvent string
	// ReturnEvent, if set, narrows which events count as "returned"
	// activity; empty means any event counts.
	ReturnEvent string
	// Days is the retention window length, 1-365.
	Days int
	Start, End time.Time
}

// Retention computes the day-by-day retention curve for a cohort defined by
// CohortEvent, scoped to tenant.
func (e *Engine) Retention(ctx context.Context, tenant models.Tenant, q RetentionQuery) (*models.RetentionResult, error) {
	start, end := q.Start, q.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.Add(-2 * time.Duration(q.Days) * 24 * time.Hour)
	}

	key := kv.RetentionCacheKey(tenant.OrgID, tenant.ProjectID, q.CohortEvent, q.ReturnEvent, "day", start, end)
	return cached(ctx, e, key, defaultCacheTTL, func(ctx context.Context) (*models.RetentionResult, error) {
		return e.computeRetention(ctx, tenant, q, start, end)
	})
}

func (e *Engine) computeRetention(ctx context.Context, tenant models.Tenant, q RetentionQuery, start, end time.Time) (*models.RetentionResult, error) {
	queryStart := time.Now()

	cohortEvents, err := e.store.Scan(ctx, tenant, eventstore.ScanFilter{
		Start:     start,
		End:       end,
		EventName: q.CohortEvent,
	}, eventstore.OrderAscending, 0)
	if err != nil {
		return nil, err
	}

	cohortFirstSeen := make(map[string]time.Time)
	for _, ev := range cohortEvents {
		if _, ok := cohortFirstSeen[ev.UserID]; !ok {
			cohortFirstSeen[ev.UserID] = ev.Timestamp
		}
	}

	cohortStart := dayStart(start)
	retained := make([]int64, q.Days)

	if len(cohortFirstSeen) > 0 {
		returnFilter := eventstore.ScanFilter{Start: start, End: end.AddDate(0, 0, q.Days)}
		if q.ReturnEvent != "" {
			returnFilter.EventName = q.ReturnEvent
		}
		returnEvents, err := e.store.Scan(ctx, tenant, returnFilter, eventstore.OrderAscending, 0)
		if err != nil {
			return nil, err
		}

		activeByDay := make(map[int]map[string]bool)
		for _, ev := range returnEvents {
			if _, inCohort := cohortFirstSeen[ev.UserID]; !inCohort {
				continue
			}
			offset := int(dayStart(ev.Timestamp).Sub(cohortStart).Hours() / 24)
			if offset < 1 || offset > q.Days {
				continue
			}
			if activeByDay[offset] == nil {
				activeByDay[offset] = make(map[string]bool)
			}
			activeByDay[offset][ev.UserID] = true
		}

		for d := 1; d <= q.Days; d++ {
			retained[d-1] = int64(len(activeByDay[d]))
		}
	}

	cohortSize := int64(len(cohortFirstSeen))
	retentionRate := make([]float64, q.Days)
	if cohortSize > 0 {
		for d, count := range retained {
			rate := 100 * float64(count) / float64(cohortSize)
			retentionRate[d] = math.Min(100, math.Max(0, rate))
		}
	}

	result := &models.RetentionResult{
		AnchorEvent: q.CohortEvent,
		ReturnEvent: q.ReturnEvent,
		Granularity: "day",
		Cohorts: []models.RetentionCohort{{
			CohortStart:   cohortStart,
			CohortSize:    cohortSize,
			Retained:      retained,
			RetentionRate: retentionRate,
		}},
		QueryTimeMs: time.Since(queryStart).Milliseconds(),
	}
	return result, nil
}

func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
