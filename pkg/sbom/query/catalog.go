// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"cmp"
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/identity"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// PurlType counts the packages of one purl type.
type PurlType struct {
	Type     string `json:"type"`
	Packages int    `json:"packages"`
}

// PackageRef names a versionless package.
type PackageRef struct {
	Type      string `json:"type"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
	Purl      string `json:"purl"`
}

// Package is a versionless package and every version seen of it.
type Package struct {
	PackageRef
	Versions []VersionRef `json:"versions"`
}

// VersionRef names one version of a package.
type VersionRef struct {
	Version string `json:"version"`
	Purl    string `json:"purl"`
}

// QualifiedRef is one qualified variant of a version.
type QualifiedRef struct {
	Purl       string            `json:"purl"`
	Qualifiers map[string]string `json:"qualifiers,omitempty"`
}

// PackageVersion is one version of a package with its qualified variants,
// the licenses asserted for it and the documents that reference it.
type PackageVersion struct {
	PackageRef
	Version   string         `json:"version"`
	Qualified []QualifiedRef `json:"qualified"`
	Licenses  []string       `json:"licenses,omitempty"`
	Sboms     []uuid.UUID    `json:"sboms,omitempty"`
}

// PurlTypes lists the purl types of the catalog with their package counts,
// by type.
func (e *Engine) PurlTypes(ctx context.Context) ([]PurlType, error) {
	rows, err := store.SelectAs[*entity.BasePurl](ctx, e.r, store.Query{Table: entity.BasePurlTable})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading packages"))
	}
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Type]++
	}
	out := []PurlType{}
	for _, t := range slices.Sorted(maps.Keys(counts)) {
		out = append(out, PurlType{Type: t, Packages: counts[t]})
	}
	return out, nil
}

// Packages lists the packages of a purl type by namespace and name.
func (e *Engine) Packages(ctx context.Context, typ string, page Pagination) (*Page[PackageRef], error) {
	if err := page.validate(); err != nil {
		return nil, err
	}
	q := store.Query{
		Table:   entity.BasePurlTable,
		Where:   []store.Cond{store.Eq("type", strings.ToLower(typ))},
		OrderBy: []string{"namespace", "name"},
		Offset:  page.Offset,
		Limit:   page.Limit,
	}
	var total int64
	var rows []*entity.BasePurl
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, err = e.r.Count(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		rows, err = store.SelectAs[*entity.BasePurl](gctx, e.r, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "listing packages"))
	}
	out := &Page[PackageRef]{Total: int(total), Items: []PackageRef{}}
	for _, r := range rows {
		ref, err := packageRef(r)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, ref)
	}
	return out, nil
}

// Package returns a package with its versions. An empty namespace matches
// packages without one.
func (e *Engine) Package(ctx context.Context, typ, namespace, name string) (*Package, error) {
	p, err := purlOf(typ, namespace, name, "")
	if err != nil {
		return nil, err
	}
	base, err := e.basePurl(ctx, p)
	if err != nil {
		return nil, err
	}
	ref, err := packageRef(base)
	if err != nil {
		return nil, err
	}
	versions, err := store.SelectAs[*entity.VersionedPurl](ctx, e.r, store.Query{
		Table:   entity.VersionedPurlTable,
		Where:   []store.Cond{store.Eq("base_purl_id", base.ID)},
		OrderBy: []string{"version"},
	})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading versions"))
	}
	out := &Package{PackageRef: ref, Versions: []VersionRef{}}
	for _, v := range versions {
		vp := *p
		vp.Version = v.Version
		out.Versions = append(out.Versions, VersionRef{Version: v.Version, Purl: vp.String()})
	}
	return out, nil
}

// PackageVersion returns one version of a package.
func (e *Engine) PackageVersion(ctx context.Context, typ, namespace, name, version string) (*PackageVersion, error) {
	if version == "" {
		return nil, sbomerr.Errorf(sbomerr.InvalidIdentity, "empty version")
	}
	p, err := purlOf(typ, namespace, name, version)
	if err != nil {
		return nil, err
	}
	base, err := e.basePurl(ctx, p)
	if err != nil {
		return nil, err
	}
	ref, err := packageRef(base)
	if err != nil {
		return nil, err
	}
	vid := p.Versioned().ID
	n, err := e.r.Count(ctx, store.Query{Table: entity.VersionedPurlTable, Where: []store.Cond{store.Eq("id", vid)}})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "looking up version"))
	}
	if n == 0 {
		return nil, sbomerr.Errorf(sbomerr.NotFound, "package %s", p)
	}
	var (
		qualified []*entity.QualifiedPurl
		asserted  []*entity.PurlLicense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		qualified, err = store.SelectAs[*entity.QualifiedPurl](gctx, e.r, store.Query{
			Table:   entity.QualifiedPurlTable,
			Where:   []store.Cond{store.Eq("versioned_purl_id", vid)},
			OrderBy: []string{"purl"},
		})
		return err
	})
	g.Go(func() (err error) {
		asserted, err = store.SelectAs[*entity.PurlLicense](gctx, e.r, store.Query{
			Table: entity.PurlLicenseTable,
			Where: []store.Cond{store.Eq("versioned_purl_id", vid)},
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading version details"))
	}
	out := &PackageVersion{PackageRef: ref, Version: p.Version, Qualified: []QualifiedRef{}}
	var qids []any
	for _, q := range qualified {
		var quals map[string]string
		if q.Qualifiers != "" {
			if err := json.Unmarshal([]byte(q.Qualifiers), &quals); err != nil {
				return nil, errors.Wrapf(err, "decoding qualifiers of %s", q.Purl)
			}
		}
		if len(quals) == 0 {
			quals = nil
		}
		out.Qualified = append(out.Qualified, QualifiedRef{Purl: q.Purl, Qualifiers: quals})
		qids = append(qids, q.ID)
	}
	if out.Licenses, err = e.licenses(ctx, asserted); err != nil {
		return nil, err
	}
	if out.Sboms, err = e.referencing(ctx, qids); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) licenses(ctx context.Context, asserted []*entity.PurlLicense) ([]string, error) {
	if len(asserted) == 0 {
		return nil, nil
	}
	var ids []any
	for _, a := range asserted {
		ids = append(ids, a.LicenseID)
	}
	rows, err := store.SelectAs[*entity.License](ctx, e.r, store.Query{Table: entity.LicenseTable, Where: []store.Cond{store.In("id", ids...)}})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading licenses"))
	}
	var out []string
	for _, l := range rows {
		out = append(out, l.Text)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// referencing returns the documents with a node referencing any of the
// qualified purls.
func (e *Engine) referencing(ctx context.Context, qualifiedIDs []any) ([]uuid.UUID, error) {
	if len(qualifiedIDs) == 0 {
		return nil, nil
	}
	refs, err := store.SelectAs[*entity.PurlRef](ctx, e.r, store.Query{
		Table: entity.PurlRefTable,
		Where: []store.Cond{store.In("qualified_purl_id", qualifiedIDs...)},
	})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "reading references"))
	}
	var out []uuid.UUID
	for _, r := range refs {
		out = append(out, r.SbomID)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int { return cmp.Compare(a.String(), b.String()) })
	return slices.Compact(out), nil
}

func (e *Engine) basePurl(ctx context.Context, p *identity.Purl) (*entity.BasePurl, error) {
	rows, err := store.SelectAs[*entity.BasePurl](ctx, e.r, store.Query{
		Table: entity.BasePurlTable,
		Where: []store.Cond{store.Eq("id", p.Base().ID)},
	})
	if err != nil {
		return nil, sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "looking up package"))
	}
	if len(rows) == 0 {
		base := *p
		base.Version = ""
		return nil, sbomerr.Errorf(sbomerr.NotFound, "package %s", base.String())
	}
	return rows[0], nil
}

// purlOf canonicalizes a package coordinate the way ingested purls are.
func purlOf(typ, namespace, name, version string) (*identity.Purl, error) {
	if typ == "" || name == "" {
		return nil, sbomerr.Errorf(sbomerr.InvalidIdentity, "package type and name are required")
	}
	p := identity.Purl{Type: typ, Namespace: namespace, Name: name, Version: version}
	return identity.ParsePurl(p.String())
}

func packageRef(r *entity.BasePurl) (PackageRef, error) {
	p, err := purlOf(r.Type, deref(r.Namespace), r.Name, "")
	if err != nil {
		return PackageRef{}, errors.Wrapf(err, "stored package %s", r.ID)
	}
	return PackageRef{Type: p.Type, Namespace: p.Namespace, Name: p.Name, Purl: p.String()}, nil
}
