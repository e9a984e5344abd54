// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package httpx

import (
	"net/http"
	"testing"

	"github.com/google/oss-sbomgraph/internal/httpx/httpxtest"
)

func TestWithUserAgent(t *testing.T) {
	mock := &httpxtest.MockClient{
		Calls: []httpxtest.Call{{
			Method:   "GET",
			URL:      "https://example.com/sbom.json",
			Header:   http.Header{"User-Agent": {"sbomgraph/1"}},
			Response: httpxtest.Response(http.StatusOK, "{}"),
		}},
		T: t,
	}
	c := &WithUserAgent{BasicClient: mock, UserAgent: "sbomgraph/1"}
	req, err := http.NewRequest(http.MethodGet, "https://example.com/sbom.json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	resp.Body.Close()
}

func TestRetryable(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		code int
		want bool
	}{
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	} {
		if got := (&StatusError{URL: "u", Code: tc.code}).Retryable(); got != tc.want {
			t.Errorf("Retryable(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
