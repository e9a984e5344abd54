// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package act expresses commands as functions of a validated input and a
// dependency container, so the same handler can be bound to any surface.
package act

import (
	"context"

	"github.com/pkg/errors"
)

// Input is a command's configuration or request.
type Input interface {
	Validate() error
}

// Deps is a container of the clients a handler uses.
type Deps any

// InitDeps builds the dependencies of a handler.
type InitDeps[D Deps] func(context.Context) (D, error)

// Action is a handler.
type Action[I Input, O any, D Deps] func(context.Context, I, D) (*O, error)

// Run validates in, builds the dependencies and calls action. attach, when
// non-nil, is applied to the dependencies before action runs.
func Run[I Input, O any, D Deps](ctx context.Context, in I, initDeps InitDeps[D], attach func(D), action Action[I, O, D]) (*O, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	deps, err := initDeps(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing dependencies")
	}
	if attach != nil {
		attach(deps)
	}
	return action(ctx, in, deps)
}

// NoDeps is an empty dependency container.
type NoDeps struct{}

// NoDepsInit returns NoDeps.
func NoDepsInit(context.Context) (*NoDeps, error) { return &NoDeps{}, nil }

// NoOutput is the output of handlers that only write to their streams.
type NoOutput struct{}
