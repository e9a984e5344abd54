// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Delete removes a document instance and every row it owns, in one
// transaction. Canonical identity rows are shared across documents and stay.
// The archived raw bytes, if any, are left in the blob store.
// It returns the number of rows removed per table.
func Delete(ctx context.Context, b store.Beginner, sbomID uuid.UUID) (map[string]int64, error) {
	removed := make(map[string]int64)
	err := store.InTx(ctx, b, func(tx store.Tx) error {
		n, err := tx.Count(ctx, store.Query{Table: entity.SbomTable, Where: []store.Cond{store.Eq("id", sbomID)}})
		if err != nil {
			return sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "looking up document"))
		}
		if n == 0 {
			return sbomerr.Errorf(sbomerr.NotFound, "document %s", sbomID)
		}
		schema := entity.Schema()
		// Referencing tables come last in the schema, so walk it backwards.
		for i := len(schema) - 1; i >= 0; i-- {
			t := schema[i]
			var where []store.Cond
			switch {
			case t == entity.SbomTable:
				where = []store.Cond{store.Eq("id", sbomID)}
			case t.Index("sbom_id") >= 0:
				where = []store.Cond{store.Eq("sbom_id", sbomID)}
			default:
				continue
			}
			n, err := tx.Delete(ctx, t, where)
			if err != nil {
				return errors.Wrapf(err, "deleting %s rows", t.Name)
			}
			removed[t.Name] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
