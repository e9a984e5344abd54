// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package query answers read-side questions over committed graphs: what a
// document describes, which nodes are related to a package and which
// packages the catalog of canonical identities holds.
package query

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/identity"
	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Page is one window of an ordered result. Total counts the whole result.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// Pagination selects a window of a result. A zero Limit is unbounded.
type Pagination struct {
	Offset int
	Limit  int
}

func (p Pagination) validate() error {
	if p.Offset < 0 || p.Limit < 0 {
		return errors.Errorf("invalid pagination offset=%d limit=%d", p.Offset, p.Limit)
	}
	return nil
}

// Direction selects which end of an edge the anchor sits on.
type Direction int

const (
	// Outgoing follows edges from left to right: nodes the anchor relates to.
	Outgoing Direction = iota
	// Incoming follows edges from right to left: nodes relating to the anchor.
	Incoming
)

// SortKey orders results.
type SortKey string

const (
	ByNodeID SortKey = "node_id"
	ByName   SortKey = "name"
)

// ParseSortKey accepts "node_id", "name" or an empty string for the default.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", ByNodeID:
		return ByNodeID, nil
	case ByName:
		return ByName, nil
	}
	return "", errors.Errorf("unknown sort key %q", s)
}

// Options tune a Related query.
type Options struct {
	Direction Direction
	// Transitive overrides the relationship's default traversal.
	Transitive *bool
	Sort       SortKey
	Pagination
}

// Checksum is a normalized digest of a node.
type Checksum struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// PackageSummary describes one node of a document.
type PackageSummary struct {
	NodeID    string     `json:"node_id"`
	Name      string     `json:"name"`
	Group     string     `json:"group,omitempty"`
	Version   string     `json:"version,omitempty"`
	Type      string     `json:"type,omitempty"`
	Purls     []string   `json:"purls,omitempty"`
	Cpes      []string   `json:"cpes,omitempty"`
	Checksums []Checksum `json:"checksums,omitempty"`
}

// Engine runs queries against a store.
type Engine struct {
	r store.Reader
}

// New returns an Engine reading from r.
func New(r store.Reader) *Engine {
	return &Engine{r: r}
}

func (e *Engine) checkDocument(ctx context.Context, sbomID uuid.UUID) error {
	_, err := e.document(ctx, sbomID)
	return err
}

func (e *Engine) document(ctx context.Context, sbomID uuid.UUID) (*entity.Sbom, error) {
	rows, err := store.SelectAs[*entity.Sbom](ctx, e.r, store.Query{Table: entity.SbomTable, Where: []store.Cond{store.Eq("id", sbomID)}})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "looking up document"))
	}
	if len(rows) == 0 {
		return nil, sbomerr.Errorf(sbomerr.NotFound, "document %s", sbomID)
	}
	return rows[0], nil
}

func (e *Engine) edges(ctx context.Context, sbomID uuid.UUID, rel model.Relationship) ([]*entity.Relationship, error) {
	edges, err := store.SelectAs[*entity.Relationship](ctx, e.r, store.Query{
		Table: entity.RelationshipTable,
		Where: []store.Cond{store.Eq("sbom_id", sbomID), store.Eq("relationship", string(rel))},
	})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrapf(err, "reading %s edges", rel))
	}
	return edges, nil
}

// Describes returns the nodes the document declares as its subject: the
// right ends of describes edges leaving the document node. Documents without
// a document node fall back to every describes edge.
func (e *Engine) Describes(ctx context.Context, sbomID uuid.UUID, page Pagination) (*Page[PackageSummary], error) {
	if err := page.validate(); err != nil {
		return nil, err
	}
	doc, err := e.document(ctx, sbomID)
	if err != nil {
		return nil, err
	}
	edges, err := e.edges(ctx, sbomID, model.Describes)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, edge := range edges {
		if doc.NodeID != "" && edge.Left != doc.NodeID {
			continue
		}
		ids = append(ids, edge.Right)
	}
	slices.Sort(ids)
	return e.page(ctx, sbomID, slices.Compact(ids), ByNodeID, page)
}

// Related returns the nodes connected to anchor by edges of kind rel. The
// anchor is a node id or a package URL referenced by the document; a purl
// referenced by several nodes anchors all of them. Traversal is transitive
// when the relationship is transitive by default or opts.Transitive says so.
// Each node appears once and the anchors themselves are excluded.
func (e *Engine) Related(ctx context.Context, sbomID uuid.UUID, rel model.Relationship, anchor string, opts Options) (*Page[PackageSummary], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	sortKey, err := ParseSortKey(string(opts.Sort))
	if err != nil {
		return nil, err
	}
	if err := e.checkDocument(ctx, sbomID); err != nil {
		return nil, err
	}
	anchors, err := e.resolveAnchor(ctx, sbomID, anchor)
	if err != nil {
		return nil, err
	}
	edges, err := e.edges(ctx, sbomID, rel)
	if err != nil {
		return nil, err
	}
	adjacent := make(map[string][]string)
	for _, edge := range edges {
		from, to := edge.Left, edge.Right
		if opts.Direction == Incoming {
			from, to = to, from
		}
		adjacent[from] = append(adjacent[from], to)
	}
	transitive := rel.TransitiveByDefault()
	if opts.Transitive != nil {
		transitive = *opts.Transitive
	}
	ids := traverse(adjacent, anchors, transitive)
	slices.Sort(ids)
	return e.page(ctx, sbomID, ids, sortKey, opts.Pagination)
}

// traverse walks adjacent breadth first from start and returns every node
// reached, each once. start nodes are never returned.
func traverse(adjacent map[string][]string, start []string, transitive bool) []string {
	visited := make(map[string]bool)
	for _, s := range start {
		visited[s] = true
	}
	var out []string
	frontier := slices.Clone(start)
	for len(frontier) > 0 {
		var next []string
		for _, n := range frontier {
			for _, m := range adjacent[n] {
				if visited[m] {
					continue
				}
				visited[m] = true
				out = append(out, m)
				next = append(next, m)
			}
		}
		if !transitive {
			break
		}
		frontier = next
	}
	return out
}

func (e *Engine) resolveAnchor(ctx context.Context, sbomID uuid.UUID, anchor string) ([]string, error) {
	if anchor == "" {
		return nil, sbomerr.Errorf(sbomerr.InvalidIdentity, "empty anchor")
	}
	n, err := e.r.Count(ctx, store.Query{
		Table: entity.NodeTable,
		Where: []store.Cond{store.Eq("sbom_id", sbomID), store.Eq("node_id", anchor)},
	})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "looking up anchor"))
	}
	if n > 0 {
		return []string{anchor}, nil
	}
	if !strings.HasPrefix(strings.ToLower(anchor), "pkg:") {
		return nil, sbomerr.Errorf(sbomerr.NotFound, "node %q in document %s", anchor, sbomID)
	}
	p, err := identity.ParsePurl(anchor)
	if err != nil {
		return nil, err
	}
	refs, err := store.SelectAs[*entity.PurlRef](ctx, e.r, store.Query{
		Table: entity.PurlRefTable,
		Where: []store.Cond{store.Eq("sbom_id", sbomID), store.Eq("qualified_purl_id", p.Qualified().ID)},
	})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "resolving anchor"))
	}
	if len(refs) == 0 {
		return nil, sbomerr.Errorf(sbomerr.NotFound, "package %s in document %s", p, sbomID)
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.NodeID)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// page orders ids, cuts the requested window and summarizes it. ids must be
// distinct and sorted.
func (e *Engine) page(ctx context.Context, sbomID uuid.UUID, ids []string, sortKey SortKey, p Pagination) (*Page[PackageSummary], error) {
	out := &Page[PackageSummary]{Total: len(ids), Items: []PackageSummary{}}
	if len(ids) == 0 {
		return out, nil
	}
	if sortKey == ByName {
		nodes, err := e.nodes(ctx, sbomID, ids)
		if err != nil {
			return nil, err
		}
		names := make(map[string]string, len(nodes))
		for _, n := range nodes {
			names[n.NodeID] = n.Name
		}
		slices.SortStableFunc(ids, func(a, b string) int {
			return cmp.Or(cmp.Compare(names[a], names[b]), cmp.Compare(a, b))
		})
	}
	window := store.Paginate(ids, p.Offset, p.Limit)
	if len(window) == 0 {
		return out, nil
	}
	summaries, err := e.summarize(ctx, sbomID, window)
	if err != nil {
		return nil, err
	}
	out.Items = summaries
	return out, nil
}

func (e *Engine) nodes(ctx context.Context, sbomID uuid.UUID, ids []string) ([]*entity.Node, error) {
	nodes, err := store.SelectAs[*entity.Node](ctx, e.r, store.Query{
		Table: entity.NodeTable,
		Where: []store.Cond{store.Eq("sbom_id", sbomID), store.In("node_id", anyOf(ids)...)},
	})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading nodes"))
	}
	return nodes, nil
}

func anyOf[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func (o Options) validate() error {
	if o.Direction != Outgoing && o.Direction != Incoming {
		return errors.Errorf("invalid direction %d", o.Direction)
	}
	return o.Pagination.validate()
}
