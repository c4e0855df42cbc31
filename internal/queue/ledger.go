// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package queue

import (
	"time"

	"github.com/eventlytics/eventlytics/internal/cache"
)

// JobRecord is a completed or failed job retained for observability.
type JobRecord struct {
	MessageID string
	Topic     string
	Error     string
	At        time.Time
}

// Ledger retains the last N completed and last M failed jobs, evicting the
// oldest entry of each kind once its bound is reached. Backed by the same
// min-heap used elsewhere for bounded, timestamp-ordered retention.
type Ledger struct {
	completed *cache.MinHeap[*JobRecord]
	failed    *cache.MinHeap[*JobRecord]
}

// NewLedger creates a ledger retaining at most completedCap completed jobs
// and failedCap failed jobs.
func NewLedger(completedCap, failedCap int) *Ledger {
	return &Ledger{
		completed: cache.NewMinHeap[*JobRecord](completedCap),
		failed:    cache.NewMinHeap[*JobRecord](failedCap),
	}
}

// RecordCompleted adds a successfully processed job to the completed ledger.
func (l *Ledger) RecordCompleted(messageID, topic string) {
	now := time.Now()
	l.completed.Push(messageID, &JobRecord{MessageID: messageID, Topic: topic, At: now}, now)
}

// RecordFailed adds a permanently failed job to the failed ledger.
func (l *Ledger) RecordFailed(messageID, topic string, err error) {
	now := time.Now()
	l.failed.Push(messageID, &JobRecord{MessageID: messageID, Topic: topic, Error: err.Error(), At: now}, now)
}

// Completed returns the retained completed job records.
func (l *Ledger) Completed() []*JobRecord {
	entries := l.completed.All()
	records := make([]*JobRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.Value)
	}
	return records
}

// Failed returns the retained failed job records.
func (l *Ledger) Failed() []*JobRecord {
	entries := l.failed.All()
	records := make([]*JobRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.Value)
	}
	return records
}
