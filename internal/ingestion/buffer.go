// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package ingestion

import (
	"sync"
	"time"

	"github.com/eventlytics/eventlytics/internal/models"
)

// tenantBuffer accumulates accepted events for a single tenant until it is
// flushed by size, age, or shutdown.
type tenantBuffer struct {
	mu       sync.Mutex
	events   []*models.Event
	openedAt time.Time
}

func newTenantBuffer() *tenantBuffer {
	return &tenantBuffer{openedAt: time.Now()}
}

// append adds e to the buffer, returning the buffer's length after the
// append so the caller can decide whether a size-triggered flush is due.
func (b *tenantBuffer) append(e *models.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		b.openedAt = time.Now()
	}
	b.events = append(b.events, e)
	return len(b.events)
}

// age reports how long the buffer has held events without being flushed.
func (b *tenantBuffer) age() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Since(b.openedAt)
}

// drain atomically detaches and returns the buffer's events, resetting it
// to empty. Returns nil if the buffer held nothing.
func (b *tenantBuffer) drain() []*models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		b.openedAt = time.Now()
		return nil
	}
	drained := b.events
	b.events = nil
	b.openedAt = time.Now()
	return drained
}

// registry holds one buffer per tenant, created lazily on first use.
type registry struct {
	mu      sync.Mutex
	buffers map[string]*tenantBuffer
}

func newRegistry() *registry {
	return &registry{buffers: make(map[string]*tenantBuffer)}
}

// get returns the tenant's buffer, creating it if absent.
func (r *registry) get(tenantKey string) *tenantBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.buffers[tenantKey]
	if !ok {
		b = newTenantBuffer()
		r.buffers[tenantKey] = b
	}
	return b
}

// all returns a snapshot of (tenantKey, buffer) pairs currently tracked.
func (r *registry) all() map[string]*tenantBuffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[string]*tenantBuffer, len(r.buffers))
	for k, v := range r.buffers {
		snapshot[k] = v
	}
	return snapshot
}
