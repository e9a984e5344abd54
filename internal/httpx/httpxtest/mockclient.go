// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package httpxtest provides a scripted httpx.BasicClient for tests.
package httpxtest

import (
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Call is one scripted exchange.
type Call struct {
	// Method and URL, when set, must match the request.
	Method string
	URL    string
	// Header lists request headers that must be present with these values.
	Header   http.Header
	Response *http.Response
	Error    error
}

// MockClient replays Calls in order and records every request it receives.
// Mismatched and unexpected requests fail T when it is set.
type MockClient struct {
	T     *testing.T
	Calls []Call
	// Requests holds the requests received so far.
	Requests []*http.Request

	mu sync.Mutex
}

func (m *MockClient) fail(format string, args ...any) {
	if m.T == nil {
		return
	}
	m.T.Helper()
	m.T.Errorf(format, args...)
}

// Do returns the response of the next scripted call.
func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.Requests)
	m.Requests = append(m.Requests, req)
	if n >= len(m.Calls) {
		m.fail("unexpected request %d: %s %s", n+1, req.Method, req.URL)
		return nil, fmt.Errorf("httpxtest: unexpected request %s %s", req.Method, req.URL)
	}
	call := m.Calls[n]
	if call.Method != "" && call.Method != req.Method {
		m.fail("request %d: method = %s, want %s", n+1, req.Method, call.Method)
	}
	if call.URL != "" {
		if diff := cmp.Diff(call.URL, req.URL.String()); diff != "" {
			m.fail("request %d: URL mismatch (-want +got):\n%s", n+1, diff)
		}
	}
	for name, want := range call.Header {
		if diff := cmp.Diff(want, req.Header.Values(name)); diff != "" {
			m.fail("request %d: header %s mismatch (-want +got):\n%s", n+1, name, diff)
		}
	}
	if call.Response != nil && call.Response.Request == nil {
		call.Response.Request = req
	}
	return call.Response, call.Error
}

// Remaining returns the number of scripted calls not yet made.
func (m *MockClient) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls) - len(m.Requests)
}
