// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package related

import (
	"context"
	"flag"
	"strconv"

	"github.com/google/oss-sbomgraph/pkg/act"
	"github.com/google/oss-sbomgraph/pkg/act/cli"
	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/query"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/storeurl"
	"github.com/google/oss-sbomgraph/tools/ctl/render"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the related command.
type Config struct {
	Store        string
	SbomID       string
	Relationship string
	// Anchor is a node id or a purl.
	Anchor    string
	Direction string
	// Transitive is "true", "false" or empty for the relationship's default.
	Transitive string
	Sort       string
	Offset     int
	Limit      int
	Format     string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Store == "" {
		return errors.New("store is required")
	}
	if _, err := uuid.Parse(c.SbomID); err != nil {
		return errors.Wrap(err, "parsing sbom id")
	}
	if _, err := model.ParseRelationship(c.Relationship); err != nil {
		return err
	}
	if c.Anchor == "" {
		return errors.New("anchor is required")
	}
	if _, err := parseDirection(c.Direction); err != nil {
		return err
	}
	if _, err := parseTransitive(c.Transitive); err != nil {
		return err
	}
	if _, err := query.ParseSortKey(c.Sort); err != nil {
		return err
	}
	if c.Offset < 0 || c.Limit < 0 {
		return errors.New("offset and limit must not be negative")
	}
	if _, err := render.ParseFormat(c.Format); err != nil {
		return err
	}
	return nil
}

func parseDirection(s string) (query.Direction, error) {
	switch s {
	case "", "out":
		return query.Outgoing, nil
	case "in":
		return query.Incoming, nil
	}
	return 0, errors.Errorf("unknown direction %q: want in or out", s)
}

func parseTransitive(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, errors.Errorf("invalid transitive value %q", s)
	}
	return &b, nil
}

func (c Config) options() (query.Options, error) {
	dir, err := parseDirection(c.Direction)
	if err != nil {
		return query.Options{}, err
	}
	transitive, err := parseTransitive(c.Transitive)
	if err != nil {
		return query.Options{}, err
	}
	sort, err := query.ParseSortKey(c.Sort)
	if err != nil {
		return query.Options{}, err
	}
	return query.Options{
		Direction:  dir,
		Transitive: transitive,
		Sort:       sort,
		Pagination: query.Pagination{Offset: c.Offset, Limit: c.Limit},
	}, nil
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

// Handler lists the nodes related to an anchor.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	rel, err := model.ParseRelationship(cfg.Relationship)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	s, err := deps.OpenStore(ctx, cfg.Store, false)
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	defer s.Close()
	page, err := query.New(s).Related(ctx, uuid.MustParse(cfg.SbomID), rel, cfg.Anchor, opts)
	if err != nil {
		return nil, err
	}
	if err := render.Summaries(deps.IO.Out, format, page); err != nil {
		return nil, err
	}
	return &act.NoOutput{}, nil
}

func parseArgs(cfg *Config) []*string {
	return []*string{&cfg.SbomID, &cfg.Relationship, &cfg.Anchor}
}

// Command creates a new related command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "related --store <url> [--direction in|out] [--transitive true|false] <sbom-id> <relationship> <node-id|purl>",
		Short: "List the nodes related to a node of a document",
		Args:  cobra.ExactArgs(3),
		RunE: cli.RunE(
			&cfg,
			cli.Positional(3, parseArgs),
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
	set.StringVar(&cfg.Direction, "direction", "out", "out follows edges from the anchor, in follows edges into it")
	set.StringVar(&cfg.Transitive, "transitive", "", "follow edges transitively; defaults to true for contains only")
	set.StringVar(&cfg.Sort, "sort", "node_id", "the result order: node_id or name")
	set.IntVar(&cfg.Offset, "offset", 0, "the number of results to skip")
	set.IntVar(&cfg.Limit, "limit", 0, "the maximum number of results; zero is unbounded")
	set.StringVar(&cfg.Format, "format", "text", "the output format: text or json")
	return set
}
