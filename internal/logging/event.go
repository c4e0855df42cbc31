// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// EventLogger provides specialized logging for the ingestion pipeline and
// durable job queue. Domain-specific methods cover the common points in an
// event's lifecycle: receipt, dedup, buffering, persistence, and queueing.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger creates a logger configured for ingestion/queue processing.
// It derives from the global logger, adding a component field.
func NewEventLogger() *EventLogger {
	return &EventLogger{
		logger: With().Str("component", "ingestion").Logger(),
	}
}

// NewEventLoggerWithLogger creates an EventLogger with a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value (copy-on-write semantics)
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{
		logger: logger.With().Str("component", "ingestion").Logger(),
	}
}

// WithFields returns a new EventLogger with additional default fields.
func (e *EventLogger) WithFields(fields map[string]interface{}) *EventLogger {
	ctx := e.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &EventLogger{logger: ctx.Logger()}
}

// Debug logs a debug message.
func (e *EventLogger) Debug(msg string, fields ...interface{}) {
	event := e.logger.Debug()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Info logs an info message.
func (e *EventLogger) Info(msg string, fields ...interface{}) {
	event := e.logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Warn logs a warning message.
func (e *EventLogger) Warn(msg string, fields ...interface{}) {
	event := e.logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Error logs an error message.
func (e *EventLogger) Error(msg string, fields ...interface{}) {
	event := e.logger.Error()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// DebugContext logs a debug message with context (for correlation ID).
func (e *EventLogger) DebugContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Debug()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// InfoContext logs an info message with context.
func (e *EventLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// WarnContext logs a warning message with context.
func (e *EventLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// ErrorContext logs an error message with context.
func (e *EventLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Error()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// loggerWithContext returns a logger with context fields added.
func (e *EventLogger) loggerWithContext(ctx context.Context) zerolog.Logger {
	logCtx := e.logger.With()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}

	return logCtx.Logger()
}

// ============================================================
// Domain-Specific Event Logging Methods
// ============================================================

// LogEventReceived logs when a raw event payload is accepted for validation.
func (e *EventLogger) LogEventReceived(ctx context.Context, orgID, projectID, eventName string) {
	e.InfoContext(ctx, "event received",
		"org_id", orgID,
		"project_id", projectID,
		"event_name", eventName,
	)
}

// LogEventPersisted logs when an event has been durably stored in the event store.
func (e *EventLogger) LogEventPersisted(ctx context.Context, fingerprint string, durationMs int64) {
	e.InfoContext(ctx, "event persisted",
		"fingerprint", fingerprint,
		"duration_ms", durationMs,
	)
}

// LogEventFailed logs when an event fails validation or persistence.
func (e *EventLogger) LogEventFailed(ctx context.Context, fingerprint string, err error) {
	logger := e.loggerWithContext(ctx)
	event := logger.Error().
		Str("fingerprint", fingerprint).
		Err(err)
	event.Msg("event processing failed")
}

// LogDuplicate logs when a duplicate event is discarded by the dedup cache.
func (e *EventLogger) LogDuplicate(ctx context.Context, fingerprint, reason string) {
	e.DebugContext(ctx, "duplicate event skipped",
		"fingerprint", fingerprint,
		"reason", reason,
	)
}

// LogDLQEntry logs when a job is sent to the dead letter queue after
// exhausting its retry budget.
func (e *EventLogger) LogDLQEntry(ctx context.Context, jobID string, err error, retryCount int) {
	logger := e.loggerWithContext(ctx)
	event := logger.Warn().
		Str("job_id", jobID).
		Err(err).
		Int("retry_count", retryCount)
	event.Msg("job sent to DLQ")
}

// LogBatchFlush logs a tenant buffer flush, whether size- or age-triggered.
func (e *EventLogger) LogBatchFlush(ctx context.Context, count int, durationMs int64) {
	e.InfoContext(ctx, "batch flush completed",
		"event_count", count,
		"duration_ms", durationMs,
	)
}

// LogEventPublished logs when a job is published onto the durable queue.
func (e *EventLogger) LogEventPublished(ctx context.Context, jobID, topic string) {
	e.DebugContext(ctx, "job published",
		"job_id", jobID,
		"topic", topic,
	)
}

// LogSubscriptionStarted logs when a queue consumer subscription is started.
func (e *EventLogger) LogSubscriptionStarted(topic, queue string) {
	e.Info("subscription started",
		"topic", topic,
		"queue", queue,
	)
}

// LogSubscriptionStopped logs when a queue consumer subscription is stopped.
func (e *EventLogger) LogSubscriptionStopped(topic string) {
	e.Info("subscription stopped",
		"topic", topic,
	)
}

// LogRouterStarted logs when the Watermill router starts.
func (e *EventLogger) LogRouterStarted() {
	e.Info("router started")
}

// LogRouterStopped logs when the Watermill router stops.
func (e *EventLogger) LogRouterStopped() {
	e.Info("router stopped")
}
