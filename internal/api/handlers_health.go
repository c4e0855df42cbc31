// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"
	"time"
)

// Health answers the liveness probe. It never touches the event store, KV
// cache, or queue: a degraded dependency should not flip the process into
// an unhealthy state that an orchestrator would restart over.
func (router *Router) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":      "OK",
		"timestamp":   time.Now().UTC(),
		"uptime":      time.Since(router.startTime).Seconds(),
		"environment": router.environment,
	})
}
