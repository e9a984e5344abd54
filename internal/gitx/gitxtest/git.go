// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package gitxtest builds git repositories from YAML commit histories.
package gitxtest

import (
	"bytes"
	"io"
	"path"
	"slices"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileContent maps paths to contents. An empty content deletes the path.
type FileContent map[string]string

type Commit struct {
	ID      string      `yaml:"id"`
	Message string      `yaml:"message"`
	Author  string      `yaml:"author,omitempty"`
	Parent  string      `yaml:"parent,omitempty"`
	Parents []string    `yaml:"parents,omitempty"`
	Branch  string      `yaml:"branch,omitempty"`
	Tag     string      `yaml:"tag,omitempty"`
	Tags    []string    `yaml:"tags,omitempty"`
	Files   FileContent `yaml:"files"`
}

type GitHistory struct {
	Commits []Commit `yaml:"commits"`
}

// Repository is a test repository with its commits indexed by ID.
type Repository struct {
	*git.Repository
	Commits map[string]plumbing.Hash
}

type RepositoryOptions struct {
	Storer   storage.Storer
	Worktree billy.Filesystem
}

// ParseHistory decodes a YAML history, rejecting unknown fields.
func ParseHistory(content string) ([]Commit, error) {
	var history GitHistory
	d := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	d.KnownFields(true)
	if err := d.Decode(&history); err != nil {
		return nil, err
	}
	return history.Commits, nil
}

func CreateRepoFromYAML(content string, opts *RepositoryOptions) (*Repository, error) {
	commits, err := ParseHistory(content)
	if err != nil {
		return nil, err
	}
	return CreateRepo(commits, opts)
}

// CreateRepo initializes a repository, in memory unless opts say otherwise,
// and applies commits to it.
func CreateRepo(commits []Commit, opts *RepositoryOptions) (*Repository, error) {
	var s storage.Storer = memory.NewStorage()
	var wfs billy.Filesystem = memfs.New()
	if opts != nil && opts.Storer != nil {
		s = opts.Storer
	}
	if opts != nil && opts.Worktree != nil {
		wfs = opts.Worktree
	}
	r, err := git.Init(s, wfs)
	if err != nil {
		return nil, errors.Wrap(err, "initializing repo")
	}
	repo := &Repository{Repository: r, Commits: make(map[string]plumbing.Hash)}
	if err := repo.Apply(commits); err != nil {
		return nil, err
	}
	return repo, nil
}

// ApplyYAML applies a YAML history on top of the repository.
func (repo *Repository) ApplyYAML(content string) error {
	commits, err := ParseHistory(content)
	if err != nil {
		return err
	}
	return repo.Apply(commits)
}

// Apply creates commits in order. Parents refer to IDs of earlier commits.
func (repo *Repository) Apply(commits []Commit) error {
	w, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "accessing worktree")
	}
	for _, c := range commits {
		if err := writeFiles(w, c.Files); err != nil {
			return errors.Wrapf(err, "writing files of %s", c.ID)
		}
		var parents []plumbing.Hash
		for _, id := range c.Parents {
			parents = append(parents, repo.Commits[id])
		}
		if len(parents) == 0 && c.Parent != "" {
			parents = append(parents, repo.Commits[c.Parent])
		}
		author := "Place Holder"
		if c.Author != "" {
			author = c.Author
		}
		h, err := w.Commit(c.Message, &git.CommitOptions{
			Author:            &object.Signature{Name: author},
			AllowEmptyCommits: true,
			Parents:           parents,
		})
		if err != nil {
			return errors.Wrapf(err, "committing %s", c.ID)
		}
		repo.Commits[c.ID] = h
		if c.Branch != "" {
			if _, err := repo.Branch(c.Branch); err == git.ErrBranchNotFound {
				if err := repo.CreateBranch(&config.Branch{Name: c.Branch}); err != nil {
					return errors.Wrap(err, "creating branch")
				}
			} else if err != nil {
				return errors.Wrap(err, "getting branch")
			}
			ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(c.Branch), h)
			if err := repo.Storer.SetReference(ref); err != nil {
				return errors.Wrap(err, "setting branch")
			}
		}
		tags := slices.Clone(c.Tags)
		if c.Tag != "" {
			tags = append(tags, c.Tag)
		}
		for _, tag := range tags {
			if _, err := repo.CreateTag(tag, h, nil); err != nil {
				return errors.Wrapf(err, "creating tag %s", tag)
			}
		}
	}
	return nil
}

func writeFiles(w *git.Worktree, files FileContent) error {
	for name, content := range files {
		if content == "" {
			if _, err := w.Remove(name); err != nil {
				return err
			}
			continue
		}
		if err := w.Filesystem.MkdirAll(path.Dir(name), 0755); err != nil {
			return err
		}
		f, err := w.Filesystem.Create(name)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(f, content); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if _, err := w.Add(name); err != nil {
			return err
		}
	}
	return nil
}
