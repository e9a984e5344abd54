// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
)

// FSStore stores blobs in a billy.Filesystem.
type FSStore struct {
	fs          billy.Filesystem
	compression Compression
}

// NewFSStore returns a store rooted at the top of fs.
func NewFSStore(fs billy.Filesystem, c Compression) *FSStore {
	return &FSStore{fs: fs, compression: c}
}

var _ Store = &FSStore{}

// Put implements Store.
func (s *FSStore) Put(ctx context.Context, data []byte) (Digest, error) {
	d := Sum(data)
	if ok, err := s.Exists(ctx, d); err != nil {
		return "", err
	} else if ok {
		return d, nil
	}
	stored, err := encode(s.compression, data)
	if err != nil {
		return "", errors.Wrapf(err, "encoding %s", d.Key())
	}
	dir := path.Dir(d.Key())
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}
	// Write then rename so readers never observe a partial object.
	f, err := util.TempFile(s.fs, dir, ".put-")
	if err != nil {
		return "", errors.Wrap(err, "creating temp file")
	}
	if _, err := f.Write(stored); err != nil {
		f.Close()
		s.fs.Remove(f.Name())
		return "", errors.Wrapf(err, "writing %s", d.Key())
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(f.Name())
		return "", errors.Wrapf(err, "closing %s", d.Key())
	}
	if err := s.fs.Rename(f.Name(), d.Key()); err != nil {
		s.fs.Remove(f.Name())
		return "", errors.Wrapf(err, "renaming %s", d.Key())
	}
	return d, nil
}

// Get implements Store.
func (s *FSStore) Get(ctx context.Context, d Digest) ([]byte, error) {
	f, err := s.fs.Open(d.Key())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = stderrors.Join(err, ErrNotFound)
		}
		return nil, errors.Wrapf(err, "opening %s", d.Key())
	}
	defer f.Close()
	stored, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", d.Key())
	}
	return verify(d, stored)
}

// Exists implements Store.
func (s *FSStore) Exists(ctx context.Context, d Digest) (bool, error) {
	_, err := s.fs.Stat(d.Key())
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, errors.Wrapf(err, "stat %s", d.Key())
	}
}
