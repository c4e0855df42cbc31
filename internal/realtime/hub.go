// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package realtime implements the WebSocket event bus: a subscription
// registry mapping "{orgId}:{projectId}" rooms to their active
// subscribers, and fire-and-forget publish to a room's subscribers.
package realtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/eventlytics/eventlytics/internal/logging"
)

// Message is a single event delivered to room subscribers.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

type registration struct {
	client *Client
	room   string
}

type publication struct {
	room    string
	message Message
}

// Hub maintains the room subscription registry and delivers published
// messages to each room's subscribers. Registry mutation and delivery for
// every room are serialized through a single run loop; Publish only
// enqueues onto a buffer of 256 pending publications.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool

	register   chan registration
	unregister chan *Client
	publish    chan publication
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan registration),
		unregister: make(chan *Client),
		publish:    make(chan publication, 256),
	}
}

// Subscribe admits client to room. It blocks until the loop run by
// RunWithContext accepts the registration.
func (h *Hub) Subscribe(client *Client, room string) {
	h.register <- registration{client: client, room: room}
}

// Unsubscribe removes client from whichever room it was in.
func (h *Hub) Unsubscribe(client *Client) {
	h.unregister <- client
}

// Publish queues message for delivery to every subscriber of room without
// blocking. When the publish queue is full the message is dropped and a
// warning logged. At delivery, a subscriber whose send buffer is full is
// removed from the room and its send channel closed.
func (h *Hub) Publish(room string, message Message) {
	select {
	case h.publish <- publication{room: room, message: message}:
	default:
		logging.Warn().Str("room", room).Msg("realtime publish queue full, dropping message")
	}
}

// RoomSize reports how many clients currently subscribe to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// RunWithContext drives the hub's registry and delivery loop until ctx is
// canceled, at which point every subscriber is disconnected and the method
// returns ctx.Err(). Designed to run as a supervised service.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			logging.Info().Str("component", "realtime-hub").Msg("realtime hub stopped")
			return ctx.Err()
		case reg := <-h.register:
			h.addClient(reg.client, reg.room)
		case client := <-h.unregister:
			h.removeClient(client)
		case pub := <-h.publish:
			h.deliver(pub.room, pub.message)
		}
	}
}

func (h *Hub) addClient(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.room = room
	subs, ok := h.rooms[room]
	if !ok {
		subs = make(map[*Client]bool)
		h.rooms[room] = subs
	}
	subs[client] = true
	logging.Debug().Str("room", room).Int("subscribers", len(subs)).Msg("realtime client subscribed")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, present := subs[client]; present {
		delete(subs, client)
		close(client.send)
	}
	if len(subs) == 0 {
		delete(h.rooms, client.room)
	}
}

func (h *Hub) deliver(room string, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[room]
	if !ok || len(subs) == 0 {
		return
	}

	clients := make([]*Client, 0, len(subs))
	for c := range subs {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })

	var dropped []*Client
	for _, c := range clients {
		select {
		case c.send <- message:
		default:
			dropped = append(dropped, c)
		}
	}
	for _, c := range dropped {
		close(c.send)
		delete(subs, c)
	}
	if len(subs) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, subs := range h.rooms {
		for client := range subs {
			close(client.send)
		}
		delete(h.rooms, room)
	}
}
