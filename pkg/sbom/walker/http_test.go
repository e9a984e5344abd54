// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package walker

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/oss-sbomgraph/internal/httpx/httpxtest"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/pkg/errors"
)

const sbomURL = "https://sboms.example.com/app.cdx.json"

func TestHTTPWalker(t *testing.T) {
	ctx := context.Background()
	mock := &httpxtest.MockClient{
		Calls: []httpxtest.Call{
			{Method: "GET", URL: sbomURL, Response: httpxtest.Response(http.StatusOK, doc, "ETag", `"v1"`)},
			{Method: "GET", URL: sbomURL, Response: httpxtest.Response(http.StatusOK, doc)},
			{Method: "GET", URL: sbomURL, Header: http.Header{"If-None-Match": {`"v1"`}}, Response: httpxtest.Response(http.StatusNotModified, "")},
		},
		T: t,
	}
	w := &HTTPWalker{URL: sbomURL, Client: mock}
	marker, err := w.Open(ctx)
	if err != nil {
		t.Fatalf("Open() = %v", err)
	}
	if marker != `"v1"` {
		t.Errorf("Open() marker = %s, want the ETag", marker)
	}
	items := collect(t, w.Walk(ctx))
	it, ok := items[sbomURL]
	if !ok || it.Size != int64(len(doc)) {
		t.Fatalf("Walk() = %v", items)
	}
	for range 2 {
		got, err := it.Load(ctx, 0)
		if err != nil {
			t.Fatalf("Load() = %v", err)
		}
		if string(got) != doc {
			t.Errorf("Load() = %q", got)
		}
	}
	w.Last = marker
	if marker, err = w.Open(ctx); err != nil || marker != `"v1"` {
		t.Fatalf("conditional Open() = %s, %v", marker, err)
	}
	if n := len(collect(t, w.Walk(ctx))); n != 0 {
		t.Errorf("Walk() of an unchanged document yielded %d items", n)
	}
}

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestHTTPWalkerSameETagReleasesBody(t *testing.T) {
	ctx := context.Background()
	body := &trackedBody{Reader: strings.NewReader(doc)}
	resp := httpxtest.Response(http.StatusOK, "", "ETag", `"v1"`)
	resp.Body = body
	mock := &httpxtest.MockClient{
		Calls: []httpxtest.Call{
			{Method: "GET", URL: sbomURL, Header: http.Header{"If-None-Match": {`"v1"`}}, Response: resp},
		},
		T: t,
	}
	w := &HTTPWalker{URL: sbomURL, Client: mock, Last: `"v1"`}
	marker, err := w.Open(ctx)
	if err != nil || marker != `"v1"` {
		t.Fatalf("Open() = %s, %v", marker, err)
	}
	if !body.closed {
		t.Error("Open() kept the body of an unchanged document")
	}
	if n := len(collect(t, w.Walk(ctx))); n != 0 {
		t.Errorf("Walk() of an unchanged document yielded %d items", n)
	}
}

func TestHTTPWalkerClose(t *testing.T) {
	ctx := context.Background()
	body := &trackedBody{Reader: strings.NewReader(doc)}
	resp := httpxtest.Response(http.StatusOK, "", "ETag", `"v2"`)
	resp.Body = body
	mock := &httpxtest.MockClient{
		Calls: []httpxtest.Call{{Method: "GET", URL: sbomURL, Response: resp}},
		T:     t,
	}
	w := &HTTPWalker{URL: sbomURL, Client: mock}
	if _, err := w.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if err := Close(w); err != nil {
		t.Fatal(err)
	}
	if !body.closed {
		t.Error("Close() left the pending body open")
	}
}

func TestHTTPWalkerErrors(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name      string
		call      httpxtest.Call
		kind      sbomerr.Kind
		transient bool
	}{
		{
			name:      "network",
			call:      httpxtest.Call{Error: errors.New("connection refused")},
			kind:      sbomerr.FetchFailure,
			transient: true,
		},
		{
			name:      "unavailable",
			call:      httpxtest.Call{Response: httpxtest.Response(http.StatusServiceUnavailable, "")},
			kind:      sbomerr.FetchFailure,
			transient: true,
		},
		{
			name: "missing",
			call: httpxtest.Call{Response: httpxtest.Response(http.StatusNotFound, "")},
			kind: sbomerr.NotFound,
		},
		{
			name: "forbidden",
			call: httpxtest.Call{Response: httpxtest.Response(http.StatusForbidden, "")},
			kind: sbomerr.FetchFailure,
		},
		{
			name: "unsolicited not modified",
			call: httpxtest.Call{Response: httpxtest.Response(http.StatusNotModified, "")},
			kind: sbomerr.FetchFailure,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mock := &httpxtest.MockClient{Calls: []httpxtest.Call{tc.call}}
			_, err := (&HTTPWalker{URL: sbomURL, Client: mock}).Open(context.Background())
			if got := sbomerr.KindOf(err); got != tc.kind {
				t.Errorf("KindOf(Open()) = %v, want %v", got, tc.kind)
			}
			if got := sbomerr.IsTransient(err); got != tc.transient {
				t.Errorf("IsTransient(Open()) = %v, want %v", got, tc.transient)
			}
			if got := sbomerr.PathOf(err); got != sbomURL {
				t.Errorf("PathOf(Open()) = %q", got)
			}
		})
	}
}
