// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package deletesbom

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/oss-sbomgraph/pkg/act"
	"github.com/google/oss-sbomgraph/pkg/act/cli"
	"github.com/google/oss-sbomgraph/pkg/sbom/ingest"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/storeurl"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the delete command.
type Config struct {
	Store  string
	SbomID string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Store == "" {
		return errors.New("store is required")
	}
	if _, err := uuid.Parse(c.SbomID); err != nil {
		return errors.Wrap(err, "parsing sbom id")
	}
	return nil
}

// Deps holds dependencies for the command.
type Deps struct {
	IO        cli.IO
	OpenStore func(ctx context.Context, url string, migrate bool) (store.Store, error)
}

func (d *Deps) SetIO(cio cli.IO) { d.IO = cio }

// InitDeps initializes Deps.
func InitDeps(context.Context) (*Deps, error) {
	return &Deps{OpenStore: storeurl.Open}, nil
}

// Handler removes a document and the rows it owns.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	id := uuid.MustParse(cfg.SbomID)
	s, err := deps.OpenStore(ctx, cfg.Store, false)
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	defer s.Close()
	removed, err := ingest.Delete(ctx, s, id)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range removed {
		total += n
	}
	fmt.Fprintf(deps.IO.Out, "Deleted %s (%d rows)\n", id, total)
	return &act.NoOutput{}, nil
}

func parseArgs(cfg *Config) []*string { return []*string{&cfg.SbomID} }

// Command creates a new delete command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "delete --store <url> <sbom-id>",
		Short: "Delete an ingested document",
		Args:  cobra.ExactArgs(1),
		RunE: cli.RunE(
			&cfg,
			cli.Positional(1, parseArgs),
			InitDeps,
			Handler,
		),
	}
	cmd.Flags().AddGoFlagSet(flagSet(cmd.Name(), &cfg))
	return cmd
}

// flagSet returns the command-line flags for the Config struct.
func flagSet(name string, cfg *Config) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.StringVar(&cfg.Store, "store", "", "the store url")
	return set
}
