// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package walker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/oss-sbomgraph/internal/glob"
	"github.com/pkg/errors"
)

type entry struct {
	path  string
	name  string
	size  int64
	mtime int64
}

// DirWalker enumerates the files below Root on FS.
type DirWalker struct {
	FS billy.Filesystem
	// Root is the directory to walk. Empty walks the whole filesystem.
	Root string
	// Patterns restricts the walk to matching paths, relative to Root.
	Patterns glob.Set

	entries []entry
	skipped []*LoadError
}

var _ Walker = &DirWalker{}

// Open lists the files to walk. The marker is a digest over the path, size
// and modification time of every listed file.
func (w *DirWalker) Open(ctx context.Context) (string, error) {
	if err := w.list(); err != nil {
		return "", err
	}
	h := sha256.New()
	for _, e := range w.entries {
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", e.path, e.size, e.mtime)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (w *DirWalker) root() string {
	if w.Root == "" {
		return "/"
	}
	return w.Root
}

func (w *DirWalker) list() error {
	root := w.root()
	if _, err := w.FS.Stat(root); err != nil {
		return errors.Wrapf(err, "reading %s", root)
	}
	w.entries, w.skipped = nil, nil
	err := util.Walk(w.FS, root, func(name string, info fs.FileInfo, err error) error {
		rel, relErr := filepath.Rel(root, name)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		switch {
		case err != nil:
			if rel == "." {
				return err
			}
			w.skipped = append(w.skipped, &LoadError{Path: rel, Err: err})
			return nil
		case info.IsDir() && info.Name() == ".git":
			return filepath.SkipDir
		case info.IsDir(), !info.Mode().IsRegular():
			return nil
		case !w.Patterns.Match(rel):
			return nil
		}
		w.entries = append(w.entries, entry{path: rel, name: name, size: info.Size(), mtime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "walking %s", root)
	}
	sort.Slice(w.entries, func(i, j int) bool { return w.entries[i].path < w.entries[j].path })
	return nil
}

// Walk yields the files found by Open, listing them first if Open was not
// called. Files are yielded in path order.
func (w *DirWalker) Walk(ctx context.Context) iter.Seq2[*Item, error] {
	return func(yield func(*Item, error) bool) {
		if w.entries == nil && w.skipped == nil {
			if err := w.list(); err != nil {
				yield(nil, err)
				return
			}
		}
		for _, le := range w.skipped {
			if !yield(nil, le) {
				return
			}
		}
		for _, e := range w.entries {
			if !yield(NewItem(e.path, e.size, w.opener(e.name)), nil) {
				return
			}
		}
	}
}

func (w *DirWalker) opener(name string) func(context.Context) (io.ReadCloser, error) {
	return func(context.Context) (io.ReadCloser, error) {
		f, err := w.FS.Open(name)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}
