// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package gitx

import (
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/go-cmp/cmp"
)

func TestCloneArgs(t *testing.T) {
	const url = "https://example.com/sboms.git"
	for _, tc := range []struct {
		name string
		opt  git.CloneOptions
		want []string
	}{
		{
			name: "default",
			opt:  git.CloneOptions{URL: url},
			want: []string{"clone", "--bare", "-c", "remote.origin.fetch=+refs/heads/*:refs/remotes/origin/*", url, "/dst"},
		},
		{
			name: "shallow branch",
			opt:  git.CloneOptions{URL: url, Depth: 1, SingleBranch: true, ReferenceName: plumbing.NewBranchReferenceName("main")},
			want: []string{"clone", "--bare", "--depth", "1", "--single-branch", "--branch", "main", "-c", "remote.origin.fetch=+refs/heads/main:refs/remotes/origin/main", url, "/dst"},
		},
		{
			name: "tag",
			opt:  git.CloneOptions{URL: url, ReferenceName: plumbing.NewTagReferenceName("v1"), Tags: git.NoTags},
			want: []string{"clone", "--bare", "--branch", "v1", "--no-tags", url, "/dst"},
		},
		{
			name: "remote name",
			opt:  git.CloneOptions{URL: url, RemoteName: "upstream"},
			want: []string{"clone", "--bare", "--origin", "upstream", "-c", "remote.upstream.fetch=+refs/heads/*:refs/remotes/upstream/*", url, "/dst"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := cloneArgs(&tc.opt, "/dst")
			if err != nil {
				t.Fatalf("cloneArgs() = %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("cloneArgs() (-want +got):\n%s", diff)
			}
		})
	}
	if _, err := cloneArgs(&git.CloneOptions{URL: url, Auth: &http.BasicAuth{Username: "u"}}, "/dst"); err == nil {
		t.Error("cloneArgs() with auth succeeded")
	}
}
