// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package realtime

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eventlytics/eventlytics/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var clientIDCounter atomic.Uint64

// inboundMessage is a message received from a client, used to recognize the
// join-room control message before a subscription exists.
type inboundMessage struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// Client is a single WebSocket connection subscribed to at most one room at
// a time.
type Client struct {
	id          uint64
	hub         *Hub
	conn        *websocket.Conn
	send        chan Message
	room        string
	allowedRoom string
}

// NewClient wraps conn with a send buffer and a deterministic ID used to
// order broadcast delivery. allowedRoom restricts which room the client may
// join via a join-room control message; any other requested room is
// ignored, so a connection can never cross into another tenant's stream.
func NewClient(hub *Hub, conn *websocket.Conn, allowedRoom string) *Client {
	return &Client{
		id:          clientIDCounter.Add(1),
		hub:         hub,
		conn:        conn,
		send:        make(chan Message, 64),
		allowedRoom: allowedRoom,
	}
}

// Start begins the client's read and write pumps. The client does not
// subscribe to any room until it receives a join-room control message.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("realtime: failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error().Err(err).Msg("realtime: unexpected websocket close")
			}
			return
		}

		switch msg.Type {
		case "join-room":
			if msg.Room != "" && msg.Room == c.allowedRoom {
				c.hub.Subscribe(c, msg.Room)
			}
		case "ping":
			select {
			case c.send <- Message{Type: "pong"}:
			default:
			}
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("realtime: failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Error().Err(err).Msg("realtime: failed to write message")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
