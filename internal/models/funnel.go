// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package models

import (
	"fmt"
	"time"
)

// FunnelStep is a single stage in a funnel definition: an event name with an
// optional predicate narrowing which occurrences of that event count.
type FunnelStep struct {
	EventName string     `json:"eventName" validate:"required,min=1,max=200"`
	Filter    *Predicate `json:"filter,omitempty"`
	// TimeWindowSeconds, if nonzero, requires this step to occur within this
	// many seconds after the previous step for the user to remain in the
	// funnel. Ignored on the first step. Zero means unbounded.
	TimeWindowSeconds int64 `json:"timeWindowSeconds,omitempty" validate:"omitempty,min=1"`
}

// Funnel defines an ordered sequence of steps analyzed for user conversion
// and drop-off. Time bounds between steps come from each step's
// TimeWindowSeconds.
type Funnel struct {
	ID        string       `json:"id"`
	OrgID     string       `json:"orgId"`
	ProjectID string       `json:"projectId"`
	Name      string       `json:"name" validate:"required,min=1,max=200"`
	Steps     []FunnelStep `json:"steps" validate:"required,min=2,max=10,dive"`
	// WindowSeconds is echoed back by the create call but is not stored with
	// the funnel, so a fetched funnel reports zero, and funnel analysis does
	// not apply it; no bound is placed on the time between a user's first
	// and last step.
	WindowSeconds int64     `json:"windowSeconds,omitempty" validate:"omitempty,min=1"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ValidateFunnelSteps reports an error if steps contains a duplicate event
// name. Struct tags already enforce the 2-10 step count bound.
func ValidateFunnelSteps(steps []FunnelStep) error {
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if seen[s.EventName] {
			return fmt.Errorf("duplicate step event name %q", s.EventName)
		}
		seen[s.EventName] = true
	}
	return nil
}

// CreateFunnelRequest is the wire shape for creating a funnel definition.
type CreateFunnelRequest struct {
	Name          string       `json:"name" validate:"required,min=1,max=200"`
	Steps         []FunnelStep `json:"steps" validate:"required,min=2,max=10,dive"`
	WindowSeconds int64        `json:"windowSeconds,omitempty" validate:"omitempty,min=1"`
}

// FunnelStepResult reports the conversion and drop-off for a single step.
type FunnelStepResult struct {
	StepIndex    int     `json:"stepIndex"`
	EventName    string  `json:"eventName"`
	Count        int64   `json:"count"`
	ConvertedPct float64 `json:"convertedPct"`
	DroppedCount int64   `json:"droppedCount"`
	DroppedPct   float64 `json:"droppedPct"`
}

// FunnelResult is the computed result of analyzing a funnel over a time range.
type FunnelResult struct {
	FunnelID    string             `json:"funnelId"`
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	Steps       []FunnelStepResult `json:"steps"`
	TotalUsers  int64              `json:"totalUsers"`
	Completed   int64              `json:"completed"`
	QueryTimeMs int64              `json:"queryTimeMs"`
}

// RetentionCohort reports the retention curve for a single cohort window
// (e.g. users who first performed the anchor event in a given day/week).
type RetentionCohort struct {
	CohortStart time.Time `json:"cohortStart"`
	CohortSize  int64     `json:"cohortSize"`
	// Retained holds one entry per period offset (0 = cohort start period),
	// counting the number of cohort members active in that period.
	Retained []int64 `json:"retained"`
	// RetentionRate holds one entry per period offset, each the percentage
	// (0-100) of CohortSize still active in that period. Empty when
	// CohortSize is zero, since there is no cohort to express a rate over.
	RetentionRate []float64 `json:"retentionRate"`
}

// RetentionResult is the computed retention analysis for an anchor event.
type RetentionResult struct {
	AnchorEvent string            `json:"anchorEvent"`
	ReturnEvent string            `json:"returnEvent"`
	Granularity string            `json:"granularity"` // day|week|month
	Cohorts     []RetentionCohort `json:"cohorts"`
	QueryTimeMs int64             `json:"queryTimeMs"`
}

// MetricPoint is a single bucketed aggregate: the event count and distinct
// user count both computed over the same bucket window.
type MetricPoint struct {
	BucketStart time.Time `json:"bucketStart"`
	Count       int64     `json:"count"`
	UniqueUsers int64     `json:"uniqueUsers"`
}

// MetricResult is the computed result of a metric aggregation query.
type MetricResult struct {
	EventName   string        `json:"eventName"`
	Granularity string        `json:"granularity"` // hour|day|week|month
	Points      []MetricPoint `json:"points"`
	// TotalCount sums Points' counts; TotalUniqueUsers is the distinct user
	// count across the whole range, not a sum of per-bucket unique counts.
	TotalCount       int64 `json:"totalCount"`
	TotalUniqueUsers int64 `json:"totalUniqueUsers"`
	QueryTimeMs      int64 `json:"queryTimeMs"`
}

// JourneyStep is a single event occurrence in a user's activity timeline.
type JourneyStep struct {
	EventName  string                 `json:"eventName"`
	Timestamp  time.Time              `json:"timestamp"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// JourneyResult is a user's chronological event history within a project.
type JourneyResult struct {
	UserID      string        `json:"userId"`
	Steps       []JourneyStep `json:"steps"`
	QueryTimeMs int64         `json:"queryTimeMs"`
}

// SummaryResult reports top-line project activity for a time range.
type SummaryResult struct {
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	TotalEvents int64        `json:"totalEvents"`
	UniqueUsers int64        `json:"uniqueUsers"`
	TopEvents   []EventCount `json:"topEvents"`
	QueryTimeMs int64        `json:"queryTimeMs"`
}

// EventCount pairs an event name with its occurrence count and the number
// of distinct users who triggered it.
type EventCount struct {
	EventName   string `json:"eventName"`
	Count       int64  `json:"count"`
	UniqueUsers int64  `json:"uniqueUsers"`
}
