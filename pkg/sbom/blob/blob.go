// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package blob stores raw documents by the sha256 digest of their content.
package blob

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"io"
	"sync"

	"github.com/google/oss-sbomgraph/internal/hashext"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// ErrNotFound is joined with backend errors when a digest has no object.
var ErrNotFound = errors.New("blob not found")

// ErrCorrupt is returned when stored content does not match its digest.
var ErrCorrupt = errors.New("blob content does not match digest")

// Digest is the lower-case hex sha256 of a blob's uncompressed content.
type Digest string

// Sum returns the Digest of data.
func Sum(data []byte) Digest {
	h := hashext.NewTypedHash(crypto.SHA256)
	h.Write(data)
	return Digest(h.Hex())
}

// ParseDigest validates a hex sha256 digest.
func ParseDigest(s string) (Digest, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != crypto.SHA256.Size() {
		return "", errors.Errorf("invalid sha256 digest %q", s)
	}
	return Digest(hex.EncodeToString(raw)), nil
}

// Key is the object name of the digest.
func (d Digest) Key() string {
	return "sha256/" + string(d)
}

// Compression is the encoding applied to objects on Put.
type Compression string

const (
	None Compression = "none"
	Gzip Compression = "gzip"
	Zstd Compression = "zstd"
)

// ParseCompression accepts "", "none", "gzip" and "zstd".
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(s); c {
	case "":
		return None, nil
	case None, Gzip, Zstd:
		return c, nil
	default:
		return "", errors.Errorf("unknown compression %q", s)
	}
}

// Store is a content-addressed blob store. Put is idempotent.
type Store interface {
	Put(ctx context.Context, data []byte) (Digest, error)
	Get(ctx context.Context, d Digest) ([]byte, error)
	Exists(ctx context.Context, d Digest) (bool, error)
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

var zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil)
})

var zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil)
})

func encode(c Compression, data []byte) ([]byte, error) {
	switch c {
	case "", None:
		return data, nil
	case Gzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Zstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, err
		}
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, errors.Errorf("unknown compression %q", c)
	}
}

// decode reverses encode, recognizing the encoding from the stored bytes so
// objects stay readable after the store's compression is changed. Stored
// documents are never themselves compressed.
func decode(stored []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(stored, gzipMagic):
		r, err := gzip.NewReader(bytes.NewReader(stored))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case bytes.HasPrefix(stored, zstdMagic):
		dec, err := zstdDecoder()
		if err != nil {
			return nil, err
		}
		return dec.DecodeAll(stored, nil)
	default:
		return stored, nil
	}
}

// verify decodes stored and checks it against d.
func verify(d Digest, stored []byte) ([]byte, error) {
	data, err := decode(stored)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", d.Key())
	}
	if Sum(data) != d {
		return nil, errors.Wrap(ErrCorrupt, d.Key())
	}
	return data, nil
}
