// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package cli binds act handlers to cobra commands.
package cli

import (
	"encoding/json"
	"io"
)

// IO holds the streams of a command.
type IO struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
