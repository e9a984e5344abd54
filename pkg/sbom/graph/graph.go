// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package graph turns one canonicalized document into ordered, chunked,
// conflict-tolerant storage writes.
//
// Three accumulators share the work: Identities collects the canonical
// identity rows shared across documents, Builder collects the document's
// nodes and their package, reference and license rows, and Relationships
// collects the edges. Each accumulates in memory only and writes during
// Commit, inside the caller's transaction.
package graph

import (
	"context"

	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/pkg/errors"
)

// DefaultChunkSize is the number of rows per insert statement when the
// transaction's parameter limit allows it.
const DefaultChunkSize = 1000

// rowSet is an insertion-ordered set of rows keyed by their unique key.
type rowSet[R store.Row] struct {
	seen map[string]bool
	rows []R
}

func (s *rowSet[R]) add(key string, r R) bool {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.rows = append(s.rows, r)
	return true
}

func (s *rowSet[R]) len() int { return len(s.rows) }

// chunkRows is the number of rows of t written per statement.
func chunkRows(tx store.Tx, t *store.Table, chunkSize int) int {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if limit := tx.BatchLimit() / len(t.Columns); limit < chunkSize {
		chunkSize = limit
	}
	return max(chunkSize, 1)
}

// insertChunked writes rows in chunks with one insert-ignore per chunk.
// Any error aborts the remaining chunks; the caller rolls back the transaction.
func insertChunked[R store.Row](ctx context.Context, tx store.Tx, t *store.Table, rows []R, chunkSize int) error {
	per := chunkRows(tx, t, chunkSize)
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := make([]store.Row, 0, end-start)
		for _, r := range rows[start:end] {
			chunk = append(chunk, r)
		}
		if err := tx.Insert(ctx, t, chunk); err != nil {
			if sbomerr.KindOf(err) == sbomerr.Unknown {
				err = sbomerr.New(sbomerr.StorageFailure, err)
			}
			return errors.Wrapf(err, "writing %s rows [%d, %d)", t.Name, start, end)
		}
	}
	return nil
}
