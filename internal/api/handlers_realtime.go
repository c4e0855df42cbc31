// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/eventlytics/eventlytics/internal/logging"
	"github.com/eventlytics/eventlytics/internal/realtime"
)

// upgrader performs the WebSocket handshake for the realtime event stream.
// Origin checking defers to the same allow-list CORS enforces for ordinary
// requests; an empty allow-list means the server isn't meant to be reached
// from a browser at all, so every cross-origin handshake is rejected.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if allowAll {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// RealtimeStream upgrades to a WebSocket connection scoped to the caller's
// tenant room. The client must send a join-room control message naming its
// own tenant key before it receives any broadcast; the client rejects any
// other room so a connection can never cross into another tenant's stream.
func (router *Router) RealtimeStream(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(r)
	if !ok {
		NewResponseWriter(w, r).BadRequest("projectId query parameter is required")
		return
	}

	conn, err := router.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("realtime: websocket upgrade failed")
		return
	}

	client := realtime.NewClient(router.hub, conn, tenant.Key())
	client.Start()
}
