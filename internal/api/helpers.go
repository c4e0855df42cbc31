// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/eventlytics/eventlytics/internal/apperrors"
	"github.com/eventlytics/eventlytics/internal/validation"
)

// errInvalidJSON is returned by body decoders when the request payload is
// not valid JSON for the expected shape.
var errInvalidJSON = errors.New("request body is not valid JSON")

// errInvalidInterval is returned when a metrics query names an unsupported
// bucketing granularity.
var errInvalidInterval = errors.New("interval must be one of hourly, daily, weekly, monthly")

// errInvalidPage and errInvalidLimit are returned by pagination parsing.
var (
	errInvalidPage  = errors.New("page must be a non-negative integer")
	errInvalidLimit = errors.New("limit must be an integer between 1 and 500")
)

// maxBodyBytes bounds how much of a request body a handler will read,
// independent of anything the ingestion pipeline later enforces per-event.
const maxBodyBytes = 5 << 20 // 5 MiB

// decodeRawJSON reads and returns a request body, bounded to maxBodyBytes.
func decodeRawJSON(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, errInvalidJSON
	}
	if len(raw) > maxBodyBytes {
		return nil, errors.New("request body too large")
	}
	if len(skipLeadingSpace(raw)) == 0 {
		return nil, errInvalidJSON
	}
	return raw, nil
}

// skipLeadingSpace trims leading JSON whitespace so callers can sniff the
// first significant byte without unmarshaling twice.
func skipLeadingSpace(raw []byte) []byte {
	i := 0
	for i < len(raw) {
		switch raw[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return raw[i:]
		}
	}
	return raw[i:]
}

// decodeJSON unmarshals raw into dst, translating any syntax error into
// errInvalidJSON so handlers can respond uniformly.
func decodeJSON(raw []byte, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

// parseDateRange reads startParam/endParam as RFC 3339 timestamps, defaulting
// to [now-defaultWindow, now] when absent.
func parseDateRange(r *http.Request, startParam, endParam string, defaultWindow time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := now.Add(-defaultWindow)
	end := now

	if raw := r.URL.Query().Get(startParam); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New(startParam + " must be an RFC3339 timestamp")
		}
		start = parsed
	}
	if raw := r.URL.Query().Get(endParam); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New(endParam + " must be an RFC3339 timestamp")
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New(endParam + " must not precede " + startParam)
	}
	return start, end, nil
}

// writeValidationError translates a struct validation failure into the
// standard 400 error envelope.
func writeValidationError(rw *ResponseWriter, verr *validation.RequestValidationError) {
	rw.BadRequestWithDetails(verr.Error(), verr.ToAPIError().Details)
}

// writeEngineError translates an error returned by the analytics or
// eventstore layers into the standard error envelope, falling back to a
// 500 for anything not already classified.
func writeEngineError(rw *ResponseWriter, err error) {
	if appErr, ok := apperrors.As(err); ok {
		rw.Error(appErr)
		return
	}
	rw.InternalError("process request", err)
}
