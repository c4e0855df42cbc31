// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package queue

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"
)

// PermanentError marks a job failure that must not be retried: the payload
// itself is invalid, and a retry would fail identically.
type PermanentError struct {
	Message string
	Cause   error
}

// NewPermanentError wraps cause as non-retryable.
func NewPermanentError(message string, cause error) *PermanentError {
	return &PermanentError{Message: message, Cause: cause}
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *PermanentError) Unwrap() error { return e.Cause }

// IsPermanent reports whether err should be excluded from retry.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}

// RetryPolicy computes exponential backoff with jitter for job retries.
// Defaults match the documented per-job policy: up to 3 attempts,
// starting at a 2 second backoff. MaxRetries counts the retries after the
// first attempt, so the default of 2 gives 3 attempts in all.
type RetryPolicy struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	JitterFraction    float64

	mu  sync.Mutex
	rng *rand.Rand
}

// DefaultRetryPolicy returns the queue's documented retry policy.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:        2,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
		//nolint:gosec // non-cryptographic jitter
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CalculateBackoff returns the backoff duration before retry attempt
// retryCount (0-indexed), with +/- jitter applied.
func (p *RetryPolicy) CalculateBackoff(retryCount int) time.Duration {
	backoff := float64(p.InitialBackoff) * math.Pow(p.BackoffMultiplier, float64(retryCount))
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	p.mu.Lock()
	jitter := backoff * p.JitterFraction * (p.rng.Float64()*2 - 1)
	p.mu.Unlock()

	return time.Duration(backoff + jitter)
}
