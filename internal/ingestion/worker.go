// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eventlytics/eventlytics/internal/eventstore"
	"github.com/eventlytics/eventlytics/internal/kv"
	"github.com/eventlytics/eventlytics/internal/logging"
	"github.com/eventlytics/eventlytics/internal/models"
	"github.com/eventlytics/eventlytics/internal/queue"
	"github.com/eventlytics/eventlytics/internal/realtime"
)

// realtimeEventPayload is the shape fanned out to a tenant's realtime room.
type realtimeEventPayload struct {
	EventName  string                 `json:"eventName"`
	UserID     string                 `json:"userId"`
	Timestamp  string                 `json:"timestamp"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Worker consumes flushed batches from the durable queue, persists them to
// the event store, updates per-tenant counters, and fans out each event to
// the realtime bus on a best-effort basis.
type Worker struct {
	store *eventstore.Store
	kv    *kv.Store
	hub   *realtime.Hub
}

// NewWorker builds a Worker over the given event store, KV cache, and
// realtime hub.
func NewWorker(store *eventstore.Store, kvStore *kv.Store, hub *realtime.Hub) *Worker {
	return &Worker{store: store, kv: kvStore, hub: hub}
}

// Handler returns the queue.Handler this worker registers for
// TopicEventsIngest.
func (w *Worker) Handler() queue.Handler {
	return w.handle
}

func (w *Worker) handle(ctx context.Context, payload []byte) error {
	var batch batchPayload
	if err := json.Unmarshal(payload, &batch); err != nil {
		return queue.NewPermanentError("decode ingestion batch", err)
	}
	if len(batch.Events) == 0 {
		return nil
	}

	persisted, err := w.store.InsertMany(ctx, batch.Events)
	if err != nil {
		return fmt.Errorf("persist ingestion batch: %w", err)
	}

	for _, e := range persisted {
		w.bumpCounters(e)
		w.publishRealtime(e)
	}

	logging.Debug().Int("received", len(batch.Events)).Int("persisted", len(persisted)).
		Msg("ingestion: batch processed")
	return nil
}

func (w *Worker) bumpCounters(e *models.Event) {
	if _, err := w.kv.Incr(kv.EventCountKey(e.OrgID, e.ProjectID), 1, 0); err != nil {
		logging.Warn().Err(err).Msg("ingestion: failed to bump tenant event counter")
	}
	if _, err := w.kv.Incr(kv.EventNameCountKey(e.OrgID, e.ProjectID, e.EventName), 1, 0); err != nil {
		logging.Warn().Err(err).Msg("ingestion: failed to bump event-name counter")
	}
}

func (w *Worker) publishRealtime(e *models.Event) {
	if w.hub == nil {
		return
	}
	room := models.Tenant{OrgID: e.OrgID, ProjectID: e.ProjectID}.Key()
	w.hub.Publish(room, realtime.Message{
		Type: "new_event",
		Data: realtimeEventPayload{
			EventName:  e.EventName,
			UserID:     e.UserID,
			Timestamp:  e.Timestamp.Format(timeFormat),
			Properties: e.Properties,
		},
		Timestamp: e.Timestamp,
	})
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"
