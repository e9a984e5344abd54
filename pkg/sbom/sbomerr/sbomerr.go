// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package sbomerr defines the error kinds shared by the ingestion pipeline.
package sbomerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// Unknown is any error that was not classified by the pipeline.
	Unknown Kind = iota
	// InvalidIdentity is a malformed canonical identity input.
	InvalidIdentity
	// ParseFailure is a document that does not conform to a supported format.
	ParseFailure
	// FetchFailure is a network or IO failure while acquiring a document.
	FetchFailure
	// SizeExceeded is a document over the configured size ceiling.
	SizeExceeded
	// StorageConflict is a unique key collision. Insert-ignore swallows these.
	StorageConflict
	// StorageFailure is any other storage error.
	StorageFailure
	// Canceled is a cooperative stop.
	Canceled
	// NotFound is a document that vanished between listing and fetch.
	NotFound
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	InvalidIdentity: "invalid-identity",
	ParseFailure:    "parse-failure",
	FetchFailure:    "fetch-failure",
	SizeExceeded:    "size-exceeded",
	StorageConflict: "storage-conflict",
	StorageFailure:  "storage-failure",
	Canceled:        "canceled",
	NotFound:        "not-found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure, optionally bound to the document it concerns.
type Error struct {
	Kind Kind
	// Path identifies the document (file path, URL, node id) when known.
	Path string
	// Transient marks the failure as worth retrying.
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf returns an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// WithPath returns a copy of e bound to path.
func (e *Error) WithPath(path string) *Error {
	c := *e
	c.Path = path
	return &c
}

// Transient returns a retryable FetchFailure wrapping err.
func Transient(err error) *Error {
	return &Error{Kind: FetchFailure, Transient: true, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable marks e as transient and returns it.
func (e *Error) Retryable() *Error {
	e.Transient = true
	return e
}

// IsTransient reports whether the first classified error in err's chain is
// retryable.
func IsTransient(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Transient
}

// PathOf returns the document path recorded in err's chain, if any.
func PathOf(err error) string {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return ""
		}
		if e.Path != "" {
			return e.Path
		}
		err = e.Err
	}
	return ""
}
