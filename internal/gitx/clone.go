// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package gitx keeps local working copies of remote git repositories.
package gitx

import (
	"cmp"
	"context"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/google/oss-sbomgraph/internal/billyx"
	"github.com/pkg/errors"
)

// CloneFunc clones a git repo into s and fs.
type CloneFunc func(context.Context, storage.Storer, billy.Filesystem, *git.CloneOptions) (*git.Repository, error)

var (
	_ CloneFunc = Clone
	_ CloneFunc = NativeClone
)

// NativeGitAvailable reports whether a git binary is on PATH.
var NativeGitAvailable = sync.OnceValue(func() bool {
	_, err := exec.LookPath("git")
	return err == nil
})

// Clone uses the git binary for unauthenticated clones into on-disk storage
// and go-git for everything else.
func Clone(ctx context.Context, s storage.Storer, fs billy.Filesystem, opt *git.CloneOptions) (*git.Repository, error) {
	if _, onDisk := s.(*filesystem.Storage); onDisk && opt.Auth == nil && NativeGitAvailable() {
		log.Printf("Cloning %s using git", opt.URL)
		return NativeClone(ctx, s, fs, opt)
	}
	return git.CloneContext(ctx, s, fs, opt)
}

// cloneArgs renders opt as the arguments of a bare `git clone` into dir.
func cloneArgs(opt *git.CloneOptions, dir string) ([]string, error) {
	if opt.Auth != nil || opt.InsecureSkipTLS {
		return nil, errors.New("native git clone does not support auth or TLS options")
	}
	args := []string{"clone", "--bare"}
	if opt.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(opt.Depth))
	}
	if opt.SingleBranch {
		args = append(args, "--single-branch")
	}
	if opt.ReferenceName != "" {
		args = append(args, "--branch", opt.ReferenceName.Short())
	}
	if opt.Tags == git.NoTags {
		args = append(args, "--no-tags")
	}
	// A bare clone maps remote branches onto local heads. Track them as
	// remote refs, as go-git does.
	remote := cmp.Or(opt.RemoteName, git.DefaultRemoteName)
	if opt.RemoteName != "" {
		args = append(args, "--origin", remote)
	}
	if !opt.ReferenceName.IsTag() {
		branch := "*"
		if opt.SingleBranch && opt.ReferenceName != "" {
			branch = opt.ReferenceName.Short()
		}
		args = append(args, "-c", "remote."+remote+".fetch=+refs/heads/"+branch+":refs/remotes/"+remote+"/"+branch)
	}
	return append(args, opt.URL, dir), nil
}

// diskRoot returns the OS directory backing bfs, or false when bfs is not
// visible to the OS.
func diskRoot(bfs billy.Filesystem) (string, bool) {
	probe, err := bfs.TempFile("", ".gitx-probe-*")
	if err != nil {
		return "", false
	}
	name := probe.Name()
	probe.Close()
	defer bfs.Remove(name)
	if _, err := os.Stat(filepath.Join(bfs.Root(), name)); err != nil {
		return "", false
	}
	return bfs.Root(), true
}

// NativeClone clones with the git binary. The clone is bare and fs, when
// set, is checked out with go-git. Storage the binary cannot write to is
// filled from a temporary directory.
func NativeClone(ctx context.Context, s storage.Storer, fs billy.Filesystem, opt *git.CloneOptions) (*git.Repository, error) {
	var dir string
	sfs, onDisk := s.(*filesystem.Storage)
	if onDisk {
		dir, onDisk = diskRoot(sfs.Filesystem())
	}
	if !onDisk {
		tmp, err := os.MkdirTemp("", "gitx-clone-*")
		if err != nil {
			return nil, errors.Wrap(err, "creating staging directory")
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	args, err := cloneArgs(opt, dir)
	if err != nil {
		return nil, err
	}
	if out, err := exec.CommandContext(ctx, "git", args...).CombinedOutput(); err != nil {
		return nil, errors.Wrapf(err, "git clone: %s", out)
	}
	if !onDisk {
		staged := osfs.New(dir)
		if sfs != nil {
			err = billyx.CopyFS(sfs.Filesystem(), staged)
		} else {
			err = CopyStorer(s, filesystem.NewStorage(staged, cache.NewObjectLRUDefault()))
		}
		if err != nil {
			return nil, errors.Wrap(err, "copying staged clone")
		}
	}
	repo, err := git.Open(s, fs)
	if err != nil {
		return nil, errors.Wrap(err, "opening cloned repository")
	}
	if fs == nil || opt.NoCheckout {
		return repo, nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, errors.Wrap(err, "getting worktree")
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: opt.ReferenceName, Force: true}); err != nil {
		return nil, errors.Wrap(err, "checking out worktree")
	}
	return repo, nil
}
