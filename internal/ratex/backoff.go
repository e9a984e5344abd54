// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package ratex paces repeated attempts at an operation.
package ratex

import (
	"context"
	"sync"
	"time"
)

// BackoffLimiter provides a threadsafe exponential backoff between attempts.
type BackoffLimiter struct {
	mu            sync.Mutex
	currentPeriod time.Duration
	minimum       time.Duration
	maximum       time.Duration
}

// NewBackoffLimiter returns a limiter whose period starts at minimum and never
// exceeds maximum. A zero maximum leaves the period unbounded.
func NewBackoffLimiter(minimum, maximum time.Duration) *BackoffLimiter {
	return &BackoffLimiter{
		currentPeriod: minimum,
		minimum:       minimum,
		maximum:       maximum,
	}
}

// Wait blocks for the current period.
// If ctx becomes Done(), Wait will return an error.
func (l *BackoffLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(l.CurrentPeriod())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff will increase the period by 33%.
// This will not take effect until the next Wait.
func (l *BackoffLimiter) Backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentPeriod = l.currentPeriod * 4 / 3
	if l.maximum > 0 {
		l.currentPeriod = min(l.currentPeriod, l.maximum)
	}
}

// Success will decrease the period by 10%.
// This will not take effect until the next Wait.
func (l *BackoffLimiter) Success() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.currentPeriod = max(l.currentPeriod*9/10, l.minimum)
}

func (l *BackoffLimiter) CurrentPeriod() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentPeriod
}
