// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
)

// Relationships collects the edges of one document.
type Relationships struct {
	ChunkSize int

	sbomID uuid.UUID
	edges  rowSet[*entity.Relationship]
}

// NewRelationships returns an edge accumulator for the document sbomID.
func NewRelationships(sbomID uuid.UUID) *Relationships {
	return &Relationships{sbomID: sbomID}
}

// Add records the edge left -rel-> right. Duplicate edges are collapsed.
func (r *Relationships) Add(left string, rel model.Relationship, right string) {
	key := left + "\x00" + string(rel) + "\x00" + right
	r.edges.add(key, &entity.Relationship{SbomID: r.sbomID, Left: left, Relationship: string(rel), Right: right})
}

// Len returns the number of distinct edges.
func (r *Relationships) Len() int { return r.edges.len() }

// Commit writes the edges. Both endpoints must already be written.
func (r *Relationships) Commit(ctx context.Context, tx store.Tx) error {
	return insertChunked(ctx, tx, entity.RelationshipTable, r.edges.rows, r.ChunkSize)
}
