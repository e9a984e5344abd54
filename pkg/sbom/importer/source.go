// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package importer

import (
	"context"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/google/oss-sbomgraph/internal/gitx"
	"github.com/google/oss-sbomgraph/internal/glob"
	"github.com/google/oss-sbomgraph/internal/httpx"
	"github.com/google/oss-sbomgraph/pkg/sbom/walker"
	"github.com/pkg/errors"
)

// Sources builds the walker for an importer.
type Sources struct {
	// Client fetches http sources.
	Client httpx.BasicClient
	// GitDir, when set, keeps a working copy per git importer below it so
	// later runs fetch only new commits. Otherwise git sources clone into
	// memory on every run.
	GitDir string
}

// Walker returns a walker for cfg. last is the marker of the previous run.
func (s *Sources) Walker(ctx context.Context, cfg *Config, last string) (walker.Walker, error) {
	patterns, err := glob.Compile(cfg.Source.Patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "compiling patterns")
	}
	switch cfg.Source.Kind {
	case DirSource:
		return &walker.DirWalker{FS: osfs.New(cfg.Source.Path), Patterns: patterns}, nil
	case GitSource:
		w := &walker.GitWalker{
			URL:      cfg.Source.URL,
			Ref:      cfg.Source.Ref,
			Depth:    cfg.Source.Depth,
			Dir:      cfg.Source.Path,
			Patterns: patterns,
		}
		w.Auth, err = gitx.AuthFor(ctx, cfg.Source.URL)
		if err != nil {
			return nil, errors.Wrap(err, "configuring git auth")
		}
		if s.GitDir != "" {
			dir := filepath.Join(s.GitDir, cfg.Name)
			w.Worktree = osfs.New(dir)
			w.Storer = filesystem.NewStorage(osfs.New(filepath.Join(dir, ".git")), cache.NewObjectLRUDefault())
		}
		return w, nil
	case HTTPSource:
		return &walker.HTTPWalker{URL: cfg.Source.URL, Client: s.Client, Last: last}, nil
	default:
		return nil, errors.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}
