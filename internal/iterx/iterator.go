// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package iterx adapts other iteration styles to range-over-func sequences.
package iterx

import (
	"errors"
	"iter"
)

// Nexter is a Next()-style iterator, as used by the Cloud client libraries.
type Nexter[T any] interface {
	Next() (T, error)
}

// ToSeq2 converts a Next()-style iterator into an iter.Seq2. Iteration stops
// cleanly when Next returns sentinel, and after yielding any other error.
func ToSeq2[T any](it Nexter[T], sentinel error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			val, err := it.Next()
			if errors.Is(err, sentinel) {
				return
			}
			if !yield(val, err) || err != nil {
				return
			}
		}
	}
}

// Collect gathers the values of seq, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
