// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package ingestion

import (
	"context"
	"time"

	"github.com/eventlytics/eventlytics/internal/logging"
)

// sweepInterval is how often the sweeper checks tenant buffers for
// age-based flushing. It runs well under BufferTimeout so a buffer is
// flushed close to its deadline rather than one full interval late.
const sweepInterval = 1 * time.Second

// Sweeper periodically flushes tenant buffers that have aged past the
// pipeline's buffer timeout, and flushes everything once on shutdown.
// Implements suture.Service.
type Sweeper struct {
	pipeline *Pipeline
}

// NewSweeper wraps pipeline as a supervised periodic flush service.
func NewSweeper(pipeline *Pipeline) *Sweeper {
	return &Sweeper{pipeline: pipeline}
}

// Serve runs the sweep loop until ctx is canceled, at which point it flushes
// every remaining buffer before returning.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := s.pipeline.FlushAll(flushCtx); err != nil {
				logging.Error().Err(err).Msg("ingestion: flush on shutdown failed")
			}
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if err := s.pipeline.flushAged(ctx); err != nil {
				logging.Warn().Err(err).Msg("ingestion: age-based flush failed")
			}
		}
	}
}

// String identifies the service for supervisor logging.
func (s *Sweeper) String() string {
	return "ingestion-sweeper"
}
