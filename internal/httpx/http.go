// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package httpx provides a minimal http.Client abstraction and helpers for
// classifying responses.
package httpx

import (
	"fmt"
	"net/http"
)

// BasicClient is a simpler http.Client that only requires a Do method.
type BasicClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ BasicClient = http.DefaultClient

// WithUserAgent is a basic HTTP client that adds a User-Agent header.
type WithUserAgent struct {
	BasicClient
	UserAgent string
}

var _ BasicClient = &WithUserAgent{}

// Do adds the User-Agent header and sends the request.
func (c *WithUserAgent) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.UserAgent)
	return c.BasicClient.Do(req)
}

// StatusError is an unexpected HTTP response status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Retryable reports whether the status may succeed if the request is repeated.
func (e *StatusError) Retryable() bool {
	return Retryable(e.Code)
}

// Retryable reports whether code signals a condition expected to clear:
// throttling, timeouts and server errors.
func Retryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code <= 599
}
