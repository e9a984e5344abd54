// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package walker

import (
	"context"
	"iter"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/google/oss-sbomgraph/internal/gitx"
	"github.com/google/oss-sbomgraph/internal/glob"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/pkg/errors"
)

// SyncFunc updates a working copy to the state described by opts.
type SyncFunc func(context.Context, storage.Storer, billy.Filesystem, gitx.SyncOptions) (*gitx.Checkout, error)

// GitWalker enumerates the files of a git repository at a ref.
type GitWalker struct {
	URL string
	// Ref is a branch, tag or commit. Empty selects the default branch.
	Ref string
	// Depth limits the fetched history. Zero fetches everything.
	Depth int
	// Dir is the directory within the tree to walk.
	Dir      string
	Patterns glob.Set
	Auth     transport.AuthMethod
	// Storer and Worktree hold the working copy across runs. They default
	// to memory.
	Storer   storage.Storer
	Worktree billy.Filesystem
	Sync     SyncFunc

	head plumbing.Hash
	dir  *DirWalker
}

var _ Walker = &GitWalker{}

// Open syncs the working copy and lists its files. The marker is the hash of
// the checked out commit.
func (w *GitWalker) Open(ctx context.Context) (string, error) {
	if w.Storer == nil {
		w.Storer = memory.NewStorage()
	}
	if w.Worktree == nil {
		w.Worktree = memfs.New()
	}
	sync := w.Sync
	if sync == nil {
		sync = gitx.Sync
	}
	co, err := sync(ctx, w.Storer, w.Worktree, gitx.SyncOptions{URL: w.URL, Ref: w.Ref, Depth: w.Depth, Auth: w.Auth})
	if err != nil {
		return "", syncError(err).WithPath(w.URL)
	}
	w.head = co.Head
	w.dir = &DirWalker{FS: w.Worktree, Root: w.Dir, Patterns: w.Patterns}
	if _, err := w.dir.Open(ctx); err != nil {
		return "", err
	}
	return co.Head.String(), nil
}

// syncError classifies a sync failure. Misconfiguration is not worth a retry.
func syncError(err error) *sbomerr.Error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return sbomerr.New(sbomerr.Canceled, err)
	case errors.Is(err, gitx.ErrRemoteNotTracked), errors.Is(err, plumbing.ErrReferenceNotFound):
		return sbomerr.New(sbomerr.FetchFailure, err)
	default:
		return sbomerr.Transient(err)
	}
}

// Head returns the commit checked out by the last Open.
func (w *GitWalker) Head() plumbing.Hash {
	return w.head
}

// Walk yields the files of the commit checked out by Open.
func (w *GitWalker) Walk(ctx context.Context) iter.Seq2[*Item, error] {
	if w.dir == nil {
		return func(yield func(*Item, error) bool) {
			yield(nil, errors.New("git walker not opened"))
		}
	}
	return w.dir.Walk(ctx)
}
