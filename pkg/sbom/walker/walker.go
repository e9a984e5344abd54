// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package walker enumerates the documents of a source as a lazy sequence.
//
// A Walker yields each candidate document as an *Item whose bytes are only
// read when the consumer calls Load. Errors concerning a single entry are
// yielded as *LoadError and the walk continues; any other error ends it.
package walker

import (
	"context"
	"io"
	"iter"
	"log"

	"github.com/pkg/errors"
)

// ErrCanceled stops a walk without failing it.
var ErrCanceled = errors.New("walk canceled")

// Walker is a source of documents.
type Walker interface {
	// Open brings the source up to date and returns a marker describing its
	// current content. Equal markers mean unchanged content.
	Open(ctx context.Context) (string, error)
	// Walk enumerates the documents found by the last Open.
	Walk(ctx context.Context) iter.Seq2[*Item, error]
}

// Close releases what w holds open, if it holds anything.
func Close(w Walker) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Item is one document found by a walk.
type Item struct {
	// Path identifies the document within its source.
	Path string
	// Size is the size in bytes reported by the source, or -1 if unknown.
	Size int64
	open func(context.Context) (io.ReadCloser, error)
}

// NewItem returns an Item whose content is read by open.
func NewItem(path string, size int64, open func(context.Context) (io.ReadCloser, error)) *Item {
	return &Item{Path: path, Size: size, open: open}
}

// LoadError is a non-fatal failure to enumerate a single entry.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return "loading " + e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Process feeds each item of items to fn until the sequence ends.
//
// Load errors go to onLoadError, or the log when it is nil, and the walk
// continues. The context is checked before every item. Process returns nil
// when the sequence is exhausted, ErrCanceled when ctx is done or fn returns
// ErrCanceled, and otherwise the first fatal walk error or fn error.
func Process(ctx context.Context, items iter.Seq2[*Item, error], onLoadError func(*LoadError), fn func(context.Context, *Item) error) error {
	for it, err := range items {
		if ctx.Err() != nil {
			return ErrCanceled
		}
		if err != nil {
			var le *LoadError
			if !errors.As(err, &le) {
				return err
			}
			if onLoadError != nil {
				onLoadError(le)
			} else {
				log.Printf("Skipping %s: %v", le.Path, le.Err)
			}
			continue
		}
		if err := fn(ctx, it); err != nil {
			if errors.Is(err, ErrCanceled) {
				return ErrCanceled
			}
			return err
		}
	}
	return nil
}
