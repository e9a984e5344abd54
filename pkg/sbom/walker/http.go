// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package walker

import (
	"cmp"
	"context"
	"io"
	"iter"
	"net/http"

	"github.com/google/oss-sbomgraph/internal/httpx"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/pkg/errors"
)

// HTTPWalker yields the single document served at URL.
type HTTPWalker struct {
	URL    string
	Client httpx.BasicClient
	// Last is the marker of the previous run. The request is made
	// conditional on it and Walk yields nothing when the server reports the
	// document unchanged.
	Last string

	pending   *http.Response
	unchanged bool
}

var _ Walker = &HTTPWalker{}

// Open requests the document. The marker is the response ETag, or its
// Last-Modified time when the server sends no ETag. A full response whose
// marker equals Last counts as unchanged and its body is released.
func (w *HTTPWalker) Open(ctx context.Context) (string, error) {
	w.close()
	resp, err := w.get(ctx, w.Last)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		w.unchanged = true
		return w.Last, nil
	}
	marker := cmp.Or(resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))
	if w.Last != "" && marker == w.Last {
		resp.Body.Close()
		w.unchanged = true
		return marker, nil
	}
	w.unchanged = false
	w.pending = resp
	return marker, nil
}

// Close releases a response fetched by Open and never walked.
func (w *HTTPWalker) Close() error {
	w.close()
	return nil
}

func (w *HTTPWalker) client() httpx.BasicClient {
	if w.Client != nil {
		return w.Client
	}
	return http.DefaultClient
}

func (w *HTTPWalker) get(ctx context.Context, etag string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL, nil)
	if err != nil {
		return nil, sbomerr.New(sbomerr.FetchFailure, err).WithPath(w.URL)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	resp, err := w.client().Do(req)
	switch {
	case ctx.Err() != nil:
		return nil, sbomerr.New(sbomerr.Canceled, ctx.Err()).WithPath(w.URL)
	case err != nil:
		return nil, sbomerr.Transient(errors.Wrap(err, "fetching document")).WithPath(w.URL)
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNotModified && etag != "":
		return resp, nil
	}
	resp.Body.Close()
	serr := &httpx.StatusError{URL: w.URL, Code: resp.StatusCode}
	switch {
	case serr.Retryable():
		return nil, sbomerr.Transient(serr).WithPath(w.URL)
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, sbomerr.New(sbomerr.NotFound, serr).WithPath(w.URL)
	default:
		return nil, sbomerr.New(sbomerr.FetchFailure, serr).WithPath(w.URL)
	}
}

func (w *HTTPWalker) close() {
	if w.pending != nil {
		w.pending.Body.Close()
		w.pending = nil
	}
}

// Walk yields the document unless Open found it unchanged. Loading it more
// than once repeats the request.
func (w *HTTPWalker) Walk(ctx context.Context) iter.Seq2[*Item, error] {
	return func(yield func(*Item, error) bool) {
		if w.unchanged {
			return
		}
		size := int64(-1)
		if w.pending != nil && w.pending.ContentLength >= 0 {
			size = w.pending.ContentLength
		}
		yield(NewItem(w.URL, size, w.open), nil)
	}
}

func (w *HTTPWalker) open(ctx context.Context) (io.ReadCloser, error) {
	if resp := w.pending; resp != nil {
		w.pending = nil
		return resp.Body, nil
	}
	resp, err := w.get(ctx, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
