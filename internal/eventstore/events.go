// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/eventlytics/eventlytics/internal/logging"
	"github.com/eventlytics/eventlytics/internal/models"
)

// ScanFilter narrows a scan/aggregate to a time range, and optionally to an
// event name, user, or session within the tenant.
type ScanFilter struct {
	Start     time.Time
	End       time.Time
	EventName string
	UserID    string
	SessionID string
}

// ScanOrder is the sort direction for Scan results by timestamp.
type ScanOrder int

const (
	// OrderAscending returns events oldest-first.
	OrderAscending ScanOrder = iota
	// OrderDescending returns events newest-first.
	OrderDescending
)

// InsertMany persists a batch of events, reporting the subset successfully
// written. An event whose fingerprint is already stored inserts no row and is
// left out of that subset; other per-event failures are logged and do not
// abort the batch.
func (s *Store) InsertMany(ctx context.Context, events []*models.Event) (persisted []*models.Event, err error) {
	if len(events) == 0 {
		return nil, nil
	}

	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO events (
			fingerprint, org_id, project_id, user_id, event_name, event_timestamp,
			session_id, page_url, user_agent, ip_address, properties, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (fingerprint) DO NOTHING`)
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		written := make([]*models.Event, 0, len(events))
		for _, e := range events {
			props, marshalErr := json.Marshal(e.Properties)
			if marshalErr != nil {
				logging.Warn().Err(marshalErr).Str("fingerprint", e.Fingerprint).Msg("skip event with unmarshalable properties")
				continue
			}
			res, execErr := stmt.ExecContext(ctx,
				e.Fingerprint, e.OrgID, e.ProjectID, e.UserID, e.EventName, e.Timestamp,
				nullableString(e.SessionID), nullableString(e.PageURL), nullableString(e.UserAgent), nullableString(e.IPAddress),
				string(props), e.ReceivedAt,
			)
			if execErr != nil {
				logging.Warn().Err(execErr).Str("fingerprint", e.Fingerprint).Msg("event insert failed, continuing batch")
				continue
			}
			if n, rowsErr := res.RowsAffected(); rowsErr == nil && n == 0 {
				continue
			}
			written = append(written, e)
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit batch: %w", err)
		}
		return written, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Event), nil
}

// Scan yields events matching filter within the tenant, ordered by timestamp.
func (s *Store) Scan(ctx context.Context, tenant models.Tenant, filter ScanFilter, order ScanOrder, limit int) ([]*models.Event, error) {
	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		var b strings.Builder
		b.WriteString(`SELECT fingerprint, org_id, project_id, user_id, event_name, event_timestamp,
			COALESCE(session_id, ''), COALESCE(page_url, ''), COALESCE(user_agent, ''), COALESCE(ip_address, ''),
			properties, received_at
		FROM events WHERE org_id = ? AND project_id = ?`)
		args := []any{tenant.OrgID, tenant.ProjectID}

		if !filter.Start.IsZero() {
			b.WriteString(" AND event_timestamp >= ?")
			args = append(args, filter.Start)
		}
		if !filter.End.IsZero() {
			b.WriteString(" AND event_timestamp <= ?")
			args = append(args, filter.End)
		}
		if filter.EventName != "" {
			b.WriteString(" AND event_name = ?")
			args = append(args, filter.EventName)
		}
		if filter.UserID != "" {
			b.WriteString(" AND user_id = ?")
			args = append(args, filter.UserID)
		}
		if filter.SessionID != "" {
			b.WriteString(" AND session_id = ?")
			args = append(args, filter.SessionID)
		}

		if order == OrderDescending {
			b.WriteString(" ORDER BY event_timestamp DESC")
		} else {
			b.WriteString(" ORDER BY event_timestamp ASC")
		}
		if limit > 0 {
			fmt.Fprintf(&b, " LIMIT %d", limit)
		}

		rows, err := s.conn.QueryContext(ctx, b.String(), args...)
		if err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		defer rows.Close()

		var events []*models.Event
		for rows.Next() {
			e := &models.Event{}
			var propsJSON string
			if err := rows.Scan(&e.Fingerprint, &e.OrgID, &e.ProjectID, &e.UserID, &e.EventName, &e.Timestamp,
				&e.SessionID, &e.PageURL, &e.UserAgent, &e.IPAddress, &propsJSON, &e.ReceivedAt); err != nil {
				return nil, fmt.Errorf("scan row: %w", err)
			}
			_ = json.Unmarshal([]byte(propsJSON), &e.Properties)
			events = append(events, e)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Event), nil
}

// CountDistinctUsers returns the number of distinct user IDs matching filter
// within the tenant.
func (s *Store) CountDistinctUsers(ctx context.Context, tenant models.Tenant, filter ScanFilter) (int64, error) {
	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		var b strings.Builder
		b.WriteString("SELECT COUNT(DISTINCT user_id) FROM events WHERE org_id = ? AND project_id = ?")
		args := []any{tenant.OrgID, tenant.ProjectID}

		if !filter.Start.IsZero() {
			b.WriteString(" AND event_timestamp >= ?")
			args = append(args, filter.Start)
		}
		if !filter.End.IsZero() {
			b.WriteString(" AND event_timestamp <= ?")
			args = append(args, filter.End)
		}
		if filter.EventName != "" {
			b.WriteString(" AND event_name = ?")
			args = append(args, filter.EventName)
		}

		var count int64
		if err := s.conn.QueryRowContext(ctx, b.String(), args...).Scan(&count); err != nil {
			return nil, fmt.Errorf("count distinct users: %w", err)
		}
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// BucketInterval is the time-bucketing granularity for metrics aggregation.
type BucketInterval string

const (
	IntervalHourly  BucketInterval = "hourly"
	IntervalDaily   BucketInterval = "daily"
	IntervalWeekly  BucketInterval = "weekly"
	IntervalMonthly BucketInterval = "monthly"
)

// Bucket is one grouped-and-aggregated row from Aggregate: a time bucket
// with its event count and distinct-user count.
type Bucket struct {
	Start       time.Time
	Count       int64
	UniqueUsers int64
}

// Aggregate groups events in range by the requested interval, returning
// (bucketStart, count, uniqueUsers) rows ordered ascending by bucket start.
func (s *Store) Aggregate(ctx context.Context, tenant models.Tenant, eventName string, interval BucketInterval, start, end time.Time) ([]Bucket, error) {
	bucketExpr, err := bucketExpression(interval)
	if err != nil {
		return nil, err
	}

	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		query := fmt.Sprintf(`SELECT %s AS bucket, COUNT(*) AS cnt, COUNT(DISTINCT user_id) AS uniq
			FROM events
			WHERE org_id = ? AND project_id = ? AND event_name = ? AND event_timestamp >= ? AND event_timestamp <= ?
			GROUP BY bucket
			ORDER BY bucket ASC`, bucketExpr)

		rows, err := s.conn.QueryContext(ctx, query, tenant.OrgID, tenant.ProjectID, eventName, start, end)
		if err != nil {
			return nil, fmt.Errorf("aggregate query: %w", err)
		}
		defer rows.Close()

		var buckets []Bucket
		for rows.Next() {
			var b Bucket
			if err := rows.Scan(&b.Start, &b.Count, &b.UniqueUsers); err != nil {
				return nil, fmt.Errorf("aggregate scan: %w", err)
			}
			buckets = append(buckets, b)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return buckets, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Bucket), nil
}

func bucketExpression(interval BucketInterval) (string, error) {
	switch interval {
	case IntervalHourly:
		return "date_trunc('hour', event_timestamp)", nil
	case IntervalDaily:
		return "date_trunc('day', event_timestamp)", nil
	case IntervalWeekly:
		return "date_trunc('week', event_timestamp)", nil
	case IntervalMonthly:
		return "date_trunc('month', event_timestamp)", nil
	default:
		return "", fmt.Errorf("unknown bucket interval %q", interval)
	}
}

// EventNameCount is one row of a per-event-name rollup, used by the summary operator.
type EventNameCount struct {
	EventName   string
	Count       int64
	UniqueUsers int64
}

// SummaryByEventName returns per-eventName (count, uniqueUsers) for the
// tenant within [start, end], descending by count.
func (s *Store) SummaryByEventName(ctx context.Context, tenant models.Tenant, start, end time.Time) ([]EventNameCount, error) {
	result, err := s.withBreaker(ctx, func(ctx context.Context) (any, error) {
		rows, err := s.conn.QueryContext(ctx, `SELECT event_name, COUNT(*), COUNT(DISTINCT user_id)
			FROM events
			WHERE org_id = ? AND project_id = ? AND event_timestamp >= ? AND event_timestamp <= ?
			GROUP BY event_name
			ORDER BY COUNT(*) DESC`, tenant.OrgID, tenant.ProjectID, start, end)
		if err != nil {
			return nil, fmt.Errorf("summary query: %w", err)
		}
		defer rows.Close()

		var rollup []EventNameCount
		for rows.Next() {
			var r EventNameCount
			if err := rows.Scan(&r.EventName, &r.Count, &r.UniqueUsers); err != nil {
				return nil, fmt.Errorf("summary scan: %w", err)
			}
			rollup = append(rollup, r)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return rollup, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]EventNameCount), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
