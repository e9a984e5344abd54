// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package gitx

import (
	"context"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage"
	"github.com/pkg/errors"
)

// ErrRemoteNotTracked is returned when an existing repository does not track the requested remote.
var ErrRemoteNotTracked = errors.New("existing repository does not track desired remote")

// SyncOptions describes the remote state a working copy should reflect.
type SyncOptions struct {
	URL string
	// Ref is a branch, tag or commit hash. Empty selects the remote's default branch.
	Ref string
	// Depth limits history fetched from branch tips. Zero fetches everything.
	Depth int
	Auth  transport.AuthMethod
	// Clone overrides the function used for the initial clone.
	Clone CloneFunc
}

// Checkout is the result of a Sync.
type Checkout struct {
	Repo *git.Repository
	Head plumbing.Hash
	// Updated is false when the working copy already matched the remote.
	Updated bool
}

// Sync brings the repository in s and fs up to date with opts, cloning it
// when s holds no repository yet. A remote with no new commits is success.
func Sync(ctx context.Context, s storage.Storer, fs billy.Filesystem, opts SyncOptions) (*Checkout, error) {
	var before plumbing.Hash
	repo, err := git.Open(s, fs)
	switch {
	case err == git.ErrRepositoryNotExists:
		clone := opts.Clone
		if clone == nil {
			clone = Clone
		}
		repo, err = clone(ctx, s, fs, &git.CloneOptions{URL: opts.URL, Depth: opts.Depth, Auth: opts.Auth, NoCheckout: true})
		if err != nil {
			return nil, errors.Wrapf(err, "cloning %s", opts.URL)
		}
	case err != nil:
		return nil, errors.Wrap(err, "opening repository")
	default:
		if err := checkRemote(repo, opts.URL); err != nil {
			return nil, err
		}
		if head, err := repo.Head(); err == nil {
			before = head.Hash()
		}
		err := repo.FetchContext(ctx, &git.FetchOptions{Depth: opts.Depth, Auth: opts.Auth, Force: true})
		if err != nil && err != git.NoErrAlreadyUpToDate {
			return nil, errors.Wrapf(err, "fetching %s", opts.URL)
		}
	}
	target, err := resolve(repo, opts.Ref)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "getting worktree")
	}
	if err := wt.Reset(&git.ResetOptions{Commit: target, Mode: git.HardReset}); err != nil {
		return nil, errors.Wrapf(err, "resetting to %s", target)
	}
	return &Checkout{Repo: repo, Head: target, Updated: target != before}, nil
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(u), "/"), ".git")
}

func checkRemote(repo *git.Repository, url string) error {
	cfg, err := repo.Config()
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	if remote, ok := cfg.Remotes[git.DefaultRemoteName]; ok {
		for _, u := range remote.URLs {
			if normalizeURL(u) == normalizeURL(url) {
				return nil
			}
		}
	}
	return ErrRemoteNotTracked
}

// resolve finds the commit for ref, preferring remote branches over tags.
func resolve(repo *git.Repository, ref string) (plumbing.Hash, error) {
	if ref == "" {
		head, err := repo.Storer.Reference(plumbing.HEAD)
		if err != nil {
			return plumbing.ZeroHash, errors.Wrap(err, "reading HEAD")
		}
		if head.Type() != plumbing.SymbolicReference {
			return head.Hash(), nil
		}
		ref = head.Target().Short()
	}
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewRemoteReferenceName(git.DefaultRemoteName, ref),
		plumbing.NewTagReferenceName(ref),
		plumbing.NewBranchReferenceName(ref),
	} {
		if h, err := repo.ResolveRevision(plumbing.Revision(name)); err == nil {
			return *h, nil
		}
	}
	if plumbing.IsHash(ref) {
		h := plumbing.NewHash(ref)
		if _, err := repo.CommitObject(h); err == nil {
			return h, nil
		}
	}
	return plumbing.ZeroHash, errors.Wrapf(plumbing.ErrReferenceNotFound, "ref %q", ref)
}
