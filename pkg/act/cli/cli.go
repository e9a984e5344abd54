// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/google/oss-sbomgraph/pkg/act"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Deps are dependencies that write to the command's streams.
type Deps interface {
	SetIO(IO)
}

// ParseArgs populates an Input from positional arguments.
type ParseArgs[I act.Input] func(in *I, args []string) error

// SkipArgs is a ParseArgs that sets no arguments.
func SkipArgs[I act.Input](*I, []string) error {
	return nil
}

// Positional returns a ParseArgs that assigns args, in order, to the fields
// returned by fields. At least required arguments must be present.
func Positional[I act.Input](required int, fields func(*I) []*string) ParseArgs[I] {
	return func(in *I, args []string) error {
		dst := fields(in)
		if len(args) < required || len(args) > len(dst) {
			if required == len(dst) {
				return errors.Errorf("expected %d arguments, got %d", required, len(args))
			}
			return errors.Errorf("expected %d to %d arguments, got %d", required, len(dst), len(args))
		}
		for i, a := range args {
			*dst[i] = a
		}
		return nil
	}
}

// RunE binds an action to a cobra command. Positional arguments are parsed
// into cfg, which is then validated and passed to action along with
// dependencies attached to the command's streams.
func RunE[I act.Input, O any, D Deps](
	cfg *I,
	parseArgs ParseArgs[I],
	initDeps act.InitDeps[D],
	action act.Action[I, O, D],
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := parseArgs(cfg, args); err != nil {
			return err
		}
		attach := func(deps D) {
			deps.SetIO(IO{In: cmd.InOrStdin(), Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()})
		}
		_, err := act.Run(cmd.Context(), *cfg, initDeps, attach, action)
		return err
	}
}
