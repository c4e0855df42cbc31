// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/models"
)

// membership maps a userId to the timestamp at which they reached a funnel
// step, restricted to users who also satisfied every prior step in order.
type membership map[string]time.Time

// Funnel computes conversion and drop-off for the funnel identified by id,
// scoped to tenant, over [start, end]. Returns apperrors.NotFound if the
// funnel does not belong to the tenant.
func (e *Engine) Funnel(ctx context.Context, tenant models.Tenant, id string, start, end time.Time) (*models.FunnelResult, error) {
	funnel, err := e.store.GetFunnel(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	key := kv.FunnelCacheKey(tenant.OrgID, tenant.ProjectID, id, start, end)
	return cached(ctx, e, key, defaultCacheTTL, func(ctx context.Context) (*models.FunnelResult, error) {
		return e.computeFunnel(ctx, tenant, funnel, start, end)
	})
}

func (e *Engine) computeFunnel(ctx context.Context, tenant models.Tenant, funnel *models.Funnel, start, end time.Time) (*models.FunnelResult, error) {
	queryStart := time.Now()

	result := &models.FunnelResult{
		FunnelID: funnel.ID,
		From:     start,
		To:       end,
		Steps:    make([]models.FunnelStepResult, len(funnel.Steps)),
	}

	var current membership
	var prevCount int64

	for i, step := range funnel.Steps {
		occurrences, err := e.stepOccurrences(ctx, tenant, step, start, end)
		if err != nil {
			return nil, err
		}

		next := make(membership)
		if i == 0 {
			for user, timestamps := range occurrences {
				if len(timestamps) > 0 {
					next[user] = timestamps[0]
				}
			}
		} else {
			for user, prevTS := range current {
				ts, ok := earliestAfter(occurrences[user], prevTS)
				if !ok {
					continue
				}
				if step.TimeWindowSeconds > 0 && ts.Sub(prevTS) > time.Duration(step.TimeWindowSeconds)*time.Second {
					continue
				}
				next[user] = ts
			}
		}
		current = next

		count := int64(len(current))
		convertedPct := 100.0
		if i > 0 {
			convertedPct = 0
			if prevCount > 0 {
				convertedPct = roundPct(100 * float64(count) / float64(prevCount))
			}
		}
		result.Steps[i] = models.FunnelStepResult{
			StepIndex:    i,
			EventName:    step.EventName,
			Count:        count,
			ConvertedPct: convertedPct,
			DroppedCount: prevCount - count,
			DroppedPct:   roundPct(100 - convertedPct),
		}
		if i == 0 {
			result.Steps[i].DroppedCount = 0
			result.Steps[i].DroppedPct = 0
			result.TotalUsers = count
		}
		prevCount = count
	}

	result.Completed = prevCount
	result.QueryTimeMs = time.Since(queryStart).Milliseconds()
	return result, nil
}

// stepOccurrences returns, per user, every timestamp (sorted ascending) at
// which step's event name occurred within [start, end] and matched step's
// filter.
func (e *Engine) stepOccurrences(ctx context.Context, tenant models.Tenant, step models.FunnelStep, start, end time.Time) (map[string][]time.Time, error) {
	events, err := e.store.Scan(ctx, tenant, eventstore.ScanFilter{
		Start:     start,
		End:       end,
		EventName: step.EventName,
	}, eventstore.OrderAscending, 0)
	if err != nil {
		return nil, err
	}

	if step.Filter != nil {
		if err := step.Filter.Compile(); err != nil {
			return nil, err
		}
	}

	byUser := make(map[string][]time.Time)
	for _, ev := range events {
		if step.Filter != nil && !step.Filter.Eval(ev.Properties) {
			continue
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], ev.Timestamp)
	}
	for user := range byUser {
		sort.Slice(byUser[user], func(i, j int) bool { return byUser[user][i].Before(byUser[user][j]) })
	}
	return byUser, nil
}

// earliestAfter returns the earliest timestamp in sorted that is not before
// after, i.e. the first occurrence of this step that could plausibly follow
// the user's previous step.
func earliestAfter(sorted []time.Time, after time.Time) (time.Time, bool) {
	for _, ts := range sorted {
		if !ts.Before(after) {
			return ts, true
		}
	}
	return time.Time{}, false
}

// roundPct rounds a percentage to two decimals, half-away-from-zero.
func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}
