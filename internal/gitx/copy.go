// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package gitx

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage"
	"github.com/pkg/errors"
)

// CopyStorer copies objects, references, config and shallow commits from
// src to dst. It walks every object and is slow for large repositories.
func CopyStorer(dst, src storage.Storer) error {
	objs, err := src.IterEncodedObjects(plumbing.AnyObject)
	if err != nil {
		return errors.Wrap(err, "iterating objects")
	}
	err = objs.ForEach(func(obj plumbing.EncodedObject) error {
		_, err := dst.SetEncodedObject(obj)
		return err
	})
	objs.Close()
	if err != nil {
		return errors.Wrap(err, "copying objects")
	}
	refs, err := src.IterReferences()
	if err != nil {
		return errors.Wrap(err, "iterating references")
	}
	err = refs.ForEach(dst.SetReference)
	refs.Close()
	if err != nil {
		return errors.Wrap(err, "copying references")
	}
	cfg, err := src.Config()
	if err != nil {
		return errors.Wrap(err, "reading config")
	}
	if err := dst.SetConfig(cfg); err != nil {
		return errors.Wrap(err, "writing config")
	}
	if shallow, err := src.Shallow(); err == nil && len(shallow) > 0 {
		if err := dst.SetShallow(shallow); err != nil {
			return errors.Wrap(err, "writing shallow commits")
		}
	}
	return nil
}
