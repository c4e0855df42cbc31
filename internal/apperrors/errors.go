// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

// Package apperrors defines the error taxonomy used across the ingestion
// pipeline, analytics engine, and API layer, so every failure carries an
// HTTP status and a machine-readable category regardless of which package
// produced it.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies an error for response mapping and retry policy.
type Category string

// Error categories.
const (
	CategoryInvalidInput         Category = "INVALID_INPUT"
	CategoryUnauthorized         Category = "UNAUTHORIZED"
	CategoryForbidden            Category = "FORBIDDEN"
	CategoryNotFound             Category = "NOT_FOUND"
	CategoryConflict             Category = "CONFLICT"
	CategoryRateLimited          Category = "RATE_LIMITED"
	CategoryTransientDependency  Category = "TRANSIENT_DEPENDENCY"
	CategoryInternal             Category = "INTERNAL"
)

// statusByCategory maps each category to its default HTTP status.
var statusByCategory = map[Category]int{
	CategoryInvalidInput:        http.StatusBadRequest,
	CategoryUnauthorized:        http.StatusUnauthorized,
	CategoryForbidden:           http.StatusForbidden,
	CategoryNotFound:            http.StatusNotFound,
	CategoryConflict:            http.StatusConflict,
	CategoryRateLimited:         http.StatusTooManyRequests,
	CategoryTransientDependency: http.StatusServiceUnavailable,
	CategoryInternal:            http.StatusInternalServerError,
}

// Error is the application-wide error type. It wraps an underlying cause
// with a category, a client-safe message, and optional structured details
// (e.g. per-field validation failures).
type Error struct {
	Category   Category
	Message    string
	Details    interface{}
	RetryAfter int // seconds; only meaningful for CategoryRateLimited
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus returns the HTTP status code for this error's category.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByCategory[e.Category]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New constructs an Error of the given category with no wrapped cause.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Wrap constructs an Error of the given category wrapping cause.
func Wrap(category Category, message string, cause error) *Error {
	return &Error{Category: category, Message: message, cause: cause}
}

// InvalidInput builds a 400 error, optionally carrying field-level details.
func InvalidInput(message string, details interface{}) *Error {
	return &Error{Category: CategoryInvalidInput, Message: message, Details: details}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Category: CategoryUnauthorized, Message: message}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Category: CategoryForbidden, Message: message}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Category: CategoryNotFound, Message: message}
}

// Conflict builds a 409 error.
func Conflict(message string) *Error {
	return &Error{Category: CategoryConflict, Message: message}
}

// RateLimited builds a 429 error carrying a Retry-After hint in seconds.
func RateLimited(message string, retryAfterSeconds int) *Error {
	return &Error{Category: CategoryRateLimited, Message: message, RetryAfter: retryAfterSeconds}
}

// TransientDependency builds a 503 error for a failing downstream dependency
// (event store, cache, queue) that a client may retry.
func TransientDependency(message string, cause error) *Error {
	return &Error{Category: CategoryTransientDependency, Message: message, cause: cause}
}

// Internal builds a 500 error for an unexpected failure.
func Internal(message string, cause error) *Error {
	return &Error{Category: CategoryInternal, Message: message, cause: cause}
}

// As extracts an *Error from err via errors.As, reporting whether one was found.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
