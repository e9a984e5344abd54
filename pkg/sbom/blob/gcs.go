// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSStore stores blobs in a GCS bucket under an optional prefix.
type GCSStore struct {
	client      *gcs.Client
	bucket      string
	prefix      string
	compression Compression
}

// NewGCSStore creates a store for a "gs://bucket/prefix" location.
func NewGCSStore(ctx context.Context, location string, c Compression, opts ...option.ClientOption) (*GCSStore, error) {
	if !strings.HasPrefix(location, "gs://") {
		return nil, errors.Errorf("invalid GCS location %q", location)
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(location, "gs://"), "/")
	if bucket == "" {
		return nil, errors.Errorf("invalid GCS location %q", location)
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating GCS client")
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix, compression: c}, nil
}

var _ Store = &GCSStore{}

func (s *GCSStore) object(d Digest) *gcs.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(path.Join(s.prefix, d.Key()))
}

// Put implements Store. Objects are written with a does-not-exist
// precondition; losing that race to a concurrent writer is success.
func (s *GCSStore) Put(ctx context.Context, data []byte) (Digest, error) {
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
	w := s.object(d).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := w.Write(stored); err != nil {
		w.Close()
		return "", errors.Wrapf(err, "writing %s", d.Key())
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return d, nil
		}
		return "", errors.Wrapf(err, "writing %s", d.Key())
	}
	return d, nil
}

// Get implements Store.
func (s *GCSStore) Get(ctx context.Context, d Digest) ([]byte, error) {
	r, err := s.object(d).NewReader(ctx)
	if err != nil {
		if err == gcs.ErrObjectNotExist {
			err = stderrors.Join(err, ErrNotFound)
		}
		return nil, errors.Wrapf(err, "creating GCS reader for %s", d.Key())
	}
	defer r.Close()
	stored, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", d.Key())
	}
	return verify(d, stored)
}

// Exists implements Store.
func (s *GCSStore) Exists(ctx context.Context, d Digest) (bool, error) {
	_, err := s.object(d).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case err == gcs.ErrObjectNotExist:
		return false, nil
	default:
		return false, errors.Wrapf(err, "stat %s", d.Key())
	}
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
