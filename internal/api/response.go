// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package api provides standardized API response handling.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/logging"
)

// successEnvelope is the wire shape for every successful response.
type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// errorEnvelope is the wire shape for every error response.
type errorEnvelope struct {
	Success    bool        `json:"success"`
	Error      string      `json:"error"`
	Message    string      `json:"message,omitempty"`
	Details    interface{} `json:"details,omitempty"`
	RetryAfter int         `json:"retryAfter,omitempty"`
}

// ResponseWriter writes the standardized success/error envelope to an
// http.ResponseWriter.
type ResponseWriter struct {
	w http.ResponseWriter
	r *http.Request
}

// NewResponseWriter creates a new response writer for a single request.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r}
}

// Success writes a 200 response with a data payload.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, successEnvelope{Success: true, Data: data})
}

// SuccessMessage writes a 200 response with a message and no data payload.
func (rw *ResponseWriter) SuccessMessage(message string) {
	rw.writeJSON(http.StatusOK, successEnvelope{Success: true, Message: message})
}

// Created writes a 201 Created response with a data payload.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.writeJSON(http.StatusCreated, successEnvelope{Success: true, Data: data})
}

// NoContent writes a 204 No Content response.
func (rw *ResponseWriter) NoContent() {
	rw.w.WriteHeader(http.StatusNoContent)
}

// Error writes an apperrors.Error using its category's HTTP status.
func (rw *ResponseWriter) Error(err *apperrors.Error) {
	if err.Category == apperrors.CategoryTransientDependency || err.Category == apperrors.CategoryInternal {
		logging.CtxErr(rw.r.Context(), err).Msg("request failed")
	}

	env := errorEnvelope{
		Success:    false,
		Error:      string(err.Category),
		Message:    err.Message,
		Details:    err.Details,
		RetryAfter: err.RetryAfter,
	}
	rw.writeJSON(err.HTTPStatus(), env)
}

// BadRequest writes a 400 error with the given message.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(apperrors.InvalidInput(message, nil))
}

// BadRequestWithDetails writes a 400 error with field-level details.
func (rw *ResponseWriter) BadRequestWithDetails(message string, details interface{}) {
	rw.Error(apperrors.InvalidInput(message, details))
}

// Unauthorized writes a 401 error.
func (rw *ResponseWriter) Unauthorized(message string) {
	rw.Error(apperrors.Unauthorized(message))
}

// Forbidden writes a 403 error.
func (rw *ResponseWriter) Forbidden(message string) {
	rw.Error(apperrors.Forbidden(message))
}

// NotFound writes a 404 error.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(apperrors.NotFound(message))
}

// Conflict writes a 409 error.
func (rw *ResponseWriter) Conflict(message string) {
	rw.Error(apperrors.Conflict(message))
}

// TooManyRequests writes a 429 error with a Retry-After hint in seconds.
func (rw *ResponseWriter) TooManyRequests(message string, retryAfterSeconds int) {
	rw.Error(apperrors.RateLimited(message, retryAfterSeconds))
}

// InternalError writes a 500 error, logging the underlying cause.
func (rw *ResponseWriter) InternalError(message string, cause error) {
	rw.Error(apperrors.Internal(message, cause))
}

// ServiceUnavailable writes a 503 error for a failing downstream dependency.
func (rw *ResponseWriter) ServiceUnavailable(message string, cause error) {
	rw.Error(apperrors.TransientDependency(message, cause))
}

func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// WriteSuccess is a convenience function for writing success responses.
func WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	NewResponseWriter(w, r).Success(data)
}

// WriteError is a convenience function for writing an apperrors.Error response.
func WriteError(w http.ResponseWriter, r *http.Request, err *apperrors.Error) {
	NewResponseWriter(w, r).Error(err)
}
