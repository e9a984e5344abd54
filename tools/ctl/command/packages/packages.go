// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package packages

import (
	"context"
	"flag"
	"io"

	"github.com/google/oss-sbomgraph/pkg/act"
	"github.com/google/oss-sbomgraph/pkg/act/cli"
	"github.com/google/oss-sbomgraph/pkg/sbom/query"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/storeurl"
	"github.com/google/oss-sbomgraph/tools/ctl/render"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Config holds all configuration for the packages command.
//
// With no type set the command lists purl types. A type lists its packages,
// a name selects one package and a version one of its versions.
type Config struct {
	Store     string
	Type      string
	Namespace string
	Name      string
	Version   string
	Offset    int
	Limit     int
	Format    string
}

// Validate ensures the configuration is valid.
func (c Config) Validate() error {
	if c.Store == "" {
		return errors.New("store is required")
	}
	if c.Name != "" && c.Type == "" {
		return errors.New("name requires type")
	}
	if c.Namespace != "" && c.Name == "" {
		return errors.New("namespace requires name")
	}
	if c.Version != "" && c.Name == "" {
		return errors.New("version requires name")
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

// Handler browses the package catalog.
func Handler(ctx context.Context, cfg Config, deps *Deps) (*act.NoOutput, error) {
	format, err := render.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	s, err := deps.OpenStore(ctx, cfg.Store, false)
	if err != nil {
		return nil, errors.Wrap(err, "opening store")
	}
	defer s.Close()
	if err := browse(ctx, query.New(s), cfg, format, deps.IO.Out); err != nil {
		return nil, err
	}
	return &act.NoOutput{}, nil
}

func browse(ctx context.Context, e *query.Engine, cfg Config, format render.Format, out io.Writer) error {
	switch {
	case cfg.Type == "":
		types, err := e.PurlTypes(ctx)
		if err != nil {
			return err
		}
		return render.PurlTypes(out, format, types)
	case cfg.Name == "":
		page, err := e.Packages(ctx, cfg.Type, query.Pagination{Offset: cfg.Offset, Limit: cfg.Limit})
		if err != nil {
			return err
		}
		return render.Packages(out, format, page)
	case cfg.Version == "":
		p, err := e.Package(ctx, cfg.Type, cfg.Namespace, cfg.Name)
		if err != nil {
			return err
		}
		return render.Package(out, format, p)
	default:
		v, err := e.PackageVersion(ctx, cfg.Type, cfg.Namespace, cfg.Name, cfg.Version)
		if err != nil {
			return err
		}
		return render.PackageVersion(out, format, v)
	}
}

// Command creates a new packages command instance.
func Command() *cobra.Command {
	cfg := Config{}
	cmd := &cobra.Command{
		Use:   "packages --store <url> [--type npm [--namespace ns] [--name left-pad [--version 1.0.0]]]",
		Short: "Browse the packages referenced by stored documents",
		Args:  cobra.NoArgs,
		RunE: cli.RunE(
			&cfg,
			cli.SkipArgs[Config],
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
	set.StringVar(&cfg.Type, "type", "", "the purl type to list")
	set.StringVar(&cfg.Namespace, "namespace", "", "the purl namespace of the package")
	set.StringVar(&cfg.Name, "name", "", "the package name")
	set.StringVar(&cfg.Version, "version", "", "the package version")
	set.IntVar(&cfg.Offset, "offset", 0, "the number of packages to skip")
	set.IntVar(&cfg.Limit, "limit", 0, "the maximum number of packages; zero is unbounded")
	set.StringVar(&cfg.Format, "format", "text", "the output format: text or json")
	return set
}
