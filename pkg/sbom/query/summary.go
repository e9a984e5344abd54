// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"slices"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// summarize builds the summaries of ids, in the order given.
func (e *Engine) summarize(ctx context.Context, sbomID uuid.UUID, ids []string) ([]PackageSummary, error) {
	where := []store.Cond{store.Eq("sbom_id", sbomID), store.In("node_id", anyOf(ids)...)}
	var (
		nodes     []*entity.Node
		packages  []*entity.Package
		purls     []*entity.PurlRef
		cpeRefs   []*entity.CpeRef
		checksums []*entity.NodeChecksum
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		nodes, err = store.SelectAs[*entity.Node](gctx, e.r, store.Query{Table: entity.NodeTable, Where: where})
		return err
	})
	g.Go(func() (err error) {
		packages, err = store.SelectAs[*entity.Package](gctx, e.r, store.Query{Table: entity.PackageTable, Where: where})
		return err
	})
	g.Go(func() (err error) {
		purls, err = store.SelectAs[*entity.PurlRef](gctx, e.r, store.Query{Table: entity.PurlRefTable, Where: where, OrderBy: []string{"purl"}})
		return err
	})
	g.Go(func() (err error) {
		cpeRefs, err = store.SelectAs[*entity.CpeRef](gctx, e.r, store.Query{Table: entity.CpeRefTable, Where: where})
		return err
	})
	g.Go(func() (err error) {
		checksums, err = store.SelectAs[*entity.NodeChecksum](gctx, e.r, store.Query{Table: entity.NodeChecksumTable, Where: where})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading package details"))
	}
	cpes, err := e.cpes(ctx, cpeRefs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*PackageSummary, len(ids))
	for _, n := range nodes {
		byID[n.NodeID] = &PackageSummary{NodeID: n.NodeID, Name: n.Name}
	}
	for _, p := range packages {
		if s := byID[p.NodeID]; s != nil {
			s.Group, s.Version, s.Type = deref(p.Group), deref(p.Version), deref(p.PackageType)
		}
	}
	for _, r := range purls {
		if s := byID[r.NodeID]; s != nil {
			s.Purls = append(s.Purls, r.Purl)
		}
	}
	for _, r := range cpeRefs {
		if s := byID[r.NodeID]; s != nil {
			if c, ok := cpes[r.CpeID]; ok {
				s.Cpes = append(s.Cpes, c)
			}
		}
	}
	for _, c := range checksums {
		if s := byID[c.NodeID]; s != nil {
			s.Checksums = append(s.Checksums, Checksum{Algorithm: c.Algorithm, Value: c.Value})
		}
	}
	out := make([]PackageSummary, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			// The edge table guarantees both endpoints exist.
			return nil, sbomerr.Errorf(sbomerr.StorageFailure, "node %q missing from document %s", id, sbomID)
		}
		slices.Sort(s.Cpes)
		out = append(out, *s)
	}
	return out, nil
}

func (e *Engine) cpes(ctx context.Context, refs []*entity.CpeRef) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string)
	if len(refs) == 0 {
		return out, nil
	}
	var ids []any
	for _, r := range refs {
		ids = append(ids, r.CpeID)
	}
	rows, err := store.SelectAs[*entity.Cpe](ctx, e.r, store.Query{Table: entity.CpeTable, Where: []store.Cond{store.In("id", ids...)}})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading cpes"))
	}
	for _, c := range rows {
		out[c.ID] = c.Canonical
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
