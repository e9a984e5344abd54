// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package walker

import (
	"compress/bzip2"
	"context"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Compressed documents are recognized by extension.
const (
	gzipExt  = ".gz"
	bzip2Ext = ".bz2"
	zstdExt  = ".zst"
)

// Name returns the path of the item with any compression extension removed.
func (it *Item) Name() string {
	for _, ext := range []string{gzipExt, bzip2Ext, zstdExt} {
		if strings.HasSuffix(it.Path, ext) {
			return strings.TrimSuffix(it.Path, ext)
		}
	}
	return it.Path
}

// Load reads and decompresses the document. A positive limit caps both the
// size reported by the source and the decompressed size.
func (it *Item) Load(ctx context.Context, limit int64) ([]byte, error) {
	if limit > 0 && it.Size > limit {
		return nil, sbomerr.Errorf(sbomerr.SizeExceeded, "size %d exceeds limit %d", it.Size, limit).WithPath(it.Path)
	}
	rc, err := it.open(ctx)
	if err != nil {
		return nil, classify(err).WithPath(it.Path)
	}
	defer rc.Close()
	r, err := decompress(path.Ext(it.Path), rc)
	if err != nil {
		return nil, sbomerr.New(sbomerr.ParseFailure, err).WithPath(it.Path)
	}
	defer r.Close()
	if limit > 0 {
		// Read one byte past the limit to detect oversized content.
		data, err := io.ReadAll(io.LimitReader(r, limit+1))
		if err != nil {
			return nil, classify(err).WithPath(it.Path)
		}
		if int64(len(data)) > limit {
			return nil, sbomerr.Errorf(sbomerr.SizeExceeded, "content exceeds limit %d", limit).WithPath(it.Path)
		}
		return data, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, classify(err).WithPath(it.Path)
	}
	return data, nil
}

func classify(err error) *sbomerr.Error {
	var e *sbomerr.Error
	var corrupt bzip2.StructuralError
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, fs.ErrNotExist):
		return sbomerr.New(sbomerr.NotFound, err)
	case errors.As(err, &corrupt), errors.Is(err, gzip.ErrChecksum), errors.Is(err, gzip.ErrHeader), errors.Is(err, zstd.ErrMagicMismatch):
		return sbomerr.New(sbomerr.ParseFailure, err)
	default:
		return sbomerr.New(sbomerr.FetchFailure, err)
	}
}

type zstdReader struct{ *zstd.Decoder }

func (z zstdReader) Close() error {
	z.Decoder.Close()
	return nil
}

func decompress(ext string, r io.Reader) (io.ReadCloser, error) {
	switch ext {
	case gzipExt:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "opening gzip stream")
		}
		return zr, nil
	case bzip2Ext:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case zstdExt:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "opening zstd stream")
		}
		return zstdReader{zr}, nil
	default:
		return io.NopCloser(r), nil
	}
}
