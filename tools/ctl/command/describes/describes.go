// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package describes

import (
	"context"
	"flag"

	"github.com/google/oss-sbomgraph/pkg/act"
	"github.com/google/oss-sbomgraph/pkg/act/cli"
	"github.com/google/oss-sbomgraph/pkg/sbom/query"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/storeurl"
	"github.com/google/oss-sbomgraph/tools/ctl/render"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the describes command.
type Config struct {
	Store  string
	SbomID string
	Offset int
	Limit  int
	Format string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Store == "" {
		return errors.New("store is required")
	}
	if _, err := uuid.Parse(c.SbomID); err != nil {
		return errors.Wrap(err, "parsing sbom id")
	}
	if c.Offset < 0 || c.Limit < 0 {
		return errors.New("offset and limit must not be negative")
	}
	if _, err := render.ParseFormat(c.Format); err != nil {
		return err
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

// Handler lists the packages a document describes.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	id := uuid.MustParse(cfg.SbomID)
	format, _ := render.ParseFormat(cfg.Format)
	s, err := deps.OpenStore(ctx, cfg.Store, false)
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	defer s.Close()
	page, err := query.New(s).Describes(ctx, id, query.Pagination{Offset: cfg.Offset, Limit: cfg.Limit})
	if err != nil {
		return nil, err
	}
	if err := render.Summaries(deps.IO.Out, format, page); err != nil {
		return nil, err
	}
	return &act.NoOutput{}, nil
}

func parseArgs(cfg *Config) []*string { return []*string{&cfg.SbomID} }

// Command creates a new describes command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "describes --store <url> <sbom-id>",
		Short: "List the packages a document describes",
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
	set.IntVar(&cfg.Offset, "offset", 0, "the number of results to skip")
	set.IntVar(&cfg.Limit, "limit", 0, "the maximum number of results; zero is unbounded")
	set.StringVar(&cfg.Format, "format", "text", "the output format: text or json")
	return set
}
