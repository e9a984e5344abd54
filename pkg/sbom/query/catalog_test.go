// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/identity"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/memstore"
	"github.com/google/uuid"
)

const upgradeDoc = `{
  "spdxVersion": "SPDX-2.3",
  "SPDXID": "SPDXRef-DOCUMENT",
  "name": "app-next",
  "documentNamespace": "https://example.com/app-next",
  "packages": [
    {"SPDXID": "P1", "name": "left-pad", "versionInfo": "1.1.0",
     "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/left-pad@1.1.0"}]},
    {"SPDXID": "P2", "name": "left-pad", "versionInfo": "1.0.0",
     "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/left-pad@1.0.0?os=linux"}]}
  ]
}`

func setupCatalog(t *testing.T) (*Engine, []uuid.UUID) {
	t.Helper()
	s := memstore.New(entity.Schema()...)
	ids := []uuid.UUID{ingestDoc(t, s, graphDoc), ingestDoc(t, s, upgradeDoc)}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return New(s), ids
}

func TestPurlTypes(t *testing.T) {
	t.Parallel()
	e, _ := setupCatalog(t)
	got, err := e.PurlTypes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []PurlType{{Type: "generic", Packages: 1}, {Type: "npm", Packages: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PurlTypes() (-want +got):\n%s", diff)
	}
}

func TestPackages(t *testing.T) {
	t.Parallel()
	e, _ := setupCatalog(t)
	got, err := e.Packages(context.Background(), "NPM", Pagination{})
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, p := range got.Items {
		names = append(names, p.Namespace+"/"+p.Name)
	}
	if diff := cmp.Diff([]string{"/app", "/left-pad", "@scope/core"}, names); diff != "" {
		t.Errorf("Packages() (-want +got):\n%s", diff)
	}
	if got.Items[1].Purl != "pkg:npm/left-pad" {
		t.Errorf("Purl = %q", got.Items[1].Purl)
	}
	page, err := e.Packages(context.Background(), "npm", Pagination{Offset: 2, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Items) != 1 || page.Items[0].Name != "core" {
		t.Errorf("Packages() page = %+v", page)
	}
	empty, err := e.Packages(context.Background(), "cargo", Pagination{})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Total != 0 || len(empty.Items) != 0 {
		t.Errorf("Packages(cargo) = %+v", empty)
	}
}

func TestPackage(t *testing.T) {
	t.Parallel()
	e, _ := setupCatalog(t)
	got, err := e.Package(context.Background(), "npm", "", "left-pad")
	if err != nil {
		t.Fatal(err)
	}
	want := &Package{
		PackageRef: PackageRef{Type: "npm", Name: "left-pad", Purl: "pkg:npm/left-pad"},
		Versions: []VersionRef{
			{Version: "1.0.0", Purl: "pkg:npm/left-pad@1.0.0"},
			{Version: "1.1.0", Purl: "pkg:npm/left-pad@1.1.0"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Package() (-want +got):\n%s", diff)
	}
	if _, err := e.Package(context.Background(), "npm", "", "right-pad"); !sbomerr.Is(err, sbomerr.NotFound) {
		t.Errorf("Package() of an unknown package = %v, want NotFound", err)
	}
	if _, err := e.Package(context.Background(), "", "", "left-pad"); !sbomerr.Is(err, sbomerr.InvalidIdentity) {
		t.Errorf("Package() without a type = %v, want InvalidIdentity", err)
	}
}

func TestPackageVersion(t *testing.T) {
	t.Parallel()
	e, docs := setupCatalog(t)
	got, err := e.PackageVersion(context.Background(), "npm", "", "left-pad", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	mit, err := identity.ParseLicense("MIT")
	if err != nil {
		t.Fatal(err)
	}
	want := &PackageVersion{
		PackageRef: PackageRef{Type: "npm", Name: "left-pad", Purl: "pkg:npm/left-pad"},
		Version:    "1.0.0",
		Qualified: []QualifiedRef{
			{Purl: "pkg:npm/left-pad@1.0.0"},
			{Purl: "pkg:npm/left-pad@1.0.0?os=linux", Qualifiers: map[string]string{"os": "linux"}},
		},
		Licenses: []string{mit.Identity().Canonical},
		Sboms:    docs,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PackageVersion() (-want +got):\n%s", diff)
	}
	if _, err := e.PackageVersion(context.Background(), "npm", "", "left-pad", "9.9.9"); !sbomerr.Is(err, sbomerr.NotFound) {
		t.Errorf("PackageVersion() of an unknown version = %v, want NotFound", err)
	}
}
