// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package billyx holds helpers shared by code that moves files between billy filesystems.
package billyx

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/pkg/errors"
)

// CopyFile copies one regular file from src to dst, creating parent
// directories in dst as needed. The destination is truncated if it exists.
func CopyFile(dst, src billy.Filesystem, name string, mode fs.FileMode) error {
	in, err := src.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()
	if dir := filepath.Dir(name); dir != "." && dir != "/" {
		if err := dst.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	out, err := dst.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copying %s", name)
	}
	return out.Close()
}

// CopyFS mirrors every directory and regular file of src into dst.
func CopyFS(dst, src billy.Filesystem) error {
	return util.Walk(src, "/", func(name string, info fs.FileInfo, err error) error {
		switch {
		case err != nil:
			return err
		case name == "/" || name == "":
			return nil
		case info.IsDir():
			return dst.MkdirAll(name, info.Mode().Perm()|0700)
		case !info.Mode().IsRegular():
			return nil
		}
		return CopyFile(dst, src, name, info.Mode().Perm())
	})
}
