// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package httpxtest

import (
	"bytes"
	"io"
	"net/http"
)

func Body(b string) io.ReadCloser {
	return io.NopCloser(bytes.NewReader([]byte(b)))
}

// Response returns a response with the given status, headers and body.
// Headers are given as alternating names and values.
func Response(code int, body string, headers ...string) *http.Response {
	h := make(http.Header)
	for i := 0; i+1 < len(headers); i += 2 {
		h.Set(headers[i], headers[i+1])
	}
	return &http.Response{
		Status:        http.StatusText(code),
		StatusCode:    code,
		Header:        h,
		Body:          Body(body),
		ContentLength: int64(len(body)),
	}
}
