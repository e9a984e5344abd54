// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/google/go-cmp/cmp"
	"github.com/google/oss-sbomgraph/pkg/sbom/blob"
	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/memstore"
)

const spdxTemplate = `{
  "spdxVersion": "SPDX-2.3",
  "SPDXID": "SPDXRef-DOCUMENT",
  "name": %q,
  "documentNamespace": "https://example.com/%s",
  "creationInfo": {"created": "2024-05-01T10:00:00Z"},
  "packages": [{
    "SPDXID": "SPDXRef-a",
    "name": "a",
    "versionInfo": "1.0",
    "licenseDeclared": "Apache-2.0",
    "checksums": [{"algorithm": "SHA1", "checksumValue": "f48dd853820860816c75d54d0f584dc863327a7c"}],
    "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": %q}]
  }],
  "relationships": [
    {"spdxElementId": "SPDXRef-DOCUMENT", "relationshipType": "DESCRIBES", "relatedSpdxElement": %q}
  ]
}`

func spdx(name, purl string) []byte {
	return []byte(fmt.Sprintf(spdxTemplate, name, name, purl, "SPDXRef-a"))
}

var ingested = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newIngestor() *Ingestor {
	return &Ingestor{Now: func() time.Time { return ingested }}
}

func counts(t *testing.T, r store.Reader) map[string]int64 {
	t.Helper()
	out := map[string]int64{}
	for _, tbl := range entity.Schema() {
		n, err := r.Count(context.Background(), store.Query{Table: tbl})
		if err != nil {
			t.Fatal(err)
		}
		out[tbl.Name] = n
	}
	return out
}

var oneDocument = map[string]int64{
	"sbom":                       1,
	"base_purl":                  1,
	"versioned_purl":             1,
	"qualified_purl":             1,
	"cpe":                        0,
	"license":                    1,
	"sbom_node":                  2,
	"sbom_node_checksum":         1,
	"sbom_package":               1,
	"sbom_package_purl_ref":      1,
	"sbom_package_cpe_ref":       0,
	"purl_license_assertion":     1,
	"cpe_license_assertion":      0,
	"package_relates_to_package": 1,
}

func TestIngestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(entity.Schema()...)
	in := newIngestor()
	data := spdx("d1", "pkg:maven/com.test/a@1.0")
	first, err := in.Ingest(ctx, s, data, Options{})
	if err != nil {
		t.Fatalf("first Ingest() = %v", err)
	}
	if first.Existing {
		t.Error("first Ingest() reported an existing document")
	}
	if diff := cmp.Diff(oneDocument, counts(t, s)); diff != "" {
		t.Errorf("row counts after first ingest (-want +got):\n%s", diff)
	}
	second, err := in.Ingest(ctx, s, data, Options{})
	if err != nil {
		t.Fatalf("second Ingest() = %v", err)
	}
	if !second.Existing || second.SbomID != first.SbomID {
		t.Errorf("second Ingest() = %+v, want existing %s", second, first.SbomID)
	}
	if diff := cmp.Diff(oneDocument, counts(t, s)); diff != "" {
		t.Errorf("row counts after second ingest (-want +got):\n%s", diff)
	}
}

func TestSharedPackageIdentity(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(entity.Schema()...)
	in := newIngestor()
	for _, name := range []string{"d1", "d2"} {
		if _, err := in.Ingest(ctx, s, spdx(name, "pkg:maven/com.test/a@1.0"), Options{}); err != nil {
			t.Fatalf("Ingest(%s) = %v", name, err)
		}
	}
	got := counts(t, s)
	for tbl, want := range map[string]int64{"sbom": 2, "qualified_purl": 1, "license": 1, "sbom_package": 2, "purl_license_assertion": 2} {
		if got[tbl] != want {
			t.Errorf("%s rows = %d, want %d", tbl, got[tbl], want)
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(entity.Schema()...)
	in := newIngestor()
	var ids []Result
	for _, name := range []string{"d1", "d2"} {
		res, err := in.Ingest(ctx, s, spdx(name, "pkg:maven/com.test/a@1.0"), Options{})
		if err != nil {
			t.Fatalf("Ingest(%s) = %v", name, err)
		}
		ids = append(ids, *res)
	}
	removed, err := Delete(ctx, s, ids[0].SbomID)
	if err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	want := map[string]int64{
		"sbom":                       1,
		"sbom_node":                  2,
		"sbom_node_checksum":         1,
		"sbom_package":               1,
		"sbom_package_purl_ref":      1,
		"sbom_package_cpe_ref":       0,
		"purl_license_assertion":     1,
		"cpe_license_assertion":      0,
		"package_relates_to_package": 1,
	}
	if diff := cmp.Diff(want, removed); diff != "" {
		t.Errorf("Delete() removed (-want +got):\n%s", diff)
	}
	// The remaining document and the shared identities are untouched.
	if diff := cmp.Diff(oneDocument, counts(t, s)); diff != "" {
		t.Errorf("row counts after delete (-want +got):\n%s", diff)
	}
	if _, err := Delete(ctx, s, ids[0].SbomID); !sbomerr.Is(err, sbomerr.NotFound) {
		t.Errorf("second Delete() = %v, want NotFound", err)
	}
	// The deleted document can be ingested again.
	res, err := in.Ingest(ctx, s, spdx("d1", "pkg:maven/com.test/a@1.0"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Existing || res.SbomID != ids[0].SbomID {
		t.Errorf("re-Ingest() = %+v, want a new commit of %s", res, ids[0].SbomID)
	}
}

func TestDocumentRow(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(entity.Schema()...)
	data := spdx("d1", "pkg:maven/com.test/a@1.0")
	res, err := newIngestor().Ingest(ctx, s, data, Options{Source: "dir:/sboms/d1.json", Labels: map[string]string{"team": "infra"}})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := store.SelectAs[*entity.Sbom](ctx, s, store.Query{Table: entity.SbomTable})
	if err != nil {
		t.Fatal(err)
	}
	published := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	want := []*entity.Sbom{{
		ID:              res.SbomID,
		Name:            "d1",
		DocumentVersion: "SPDX-2.3",
		Namespace:       "https://example.com/d1",
		NodeID:          "SPDXRef-DOCUMENT",
		Digest:          string(blob.Sum(data)),
		Source:          "dir:/sboms/d1.json",
		Labels:          `{"team":"infra"}`,
		Size:            int64(len(data)),
		Published:       &published,
		Ingested:        ingested,
	}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("sbom rows (-want +got):\n%s", diff)
	}
	if res.Rows["sbom_node"] != 2 {
		t.Errorf("Rows[sbom_node] = %d, want 2", res.Rows["sbom_node"])
	}
}

func TestDanglingEdge(t *testing.T) {
	data := []byte(fmt.Sprintf(spdxTemplate, "d1", "d1", "pkg:maven/com.test/a@1.0", "SPDXRef-missing"))
	_, err := newIngestor().Prepare(data, Options{})
	if !sbomerr.Is(err, sbomerr.ParseFailure) {
		t.Errorf("Prepare() = %v, want ParseFailure", err)
	}
}

func TestInvalidIdentityPolicy(t *testing.T) {
	ctx := context.Background()
	data := spdx("d1", "not-a-purl")
	if _, err := newIngestor().Prepare(data, Options{}); !sbomerr.Is(err, sbomerr.InvalidIdentity) {
		t.Errorf("Prepare() with Reject = %v, want InvalidIdentity", err)
	}
	in := newIngestor()
	in.Policy = Skip
	p, err := in.Prepare(data, Options{})
	if err != nil {
		t.Fatalf("Prepare() with Skip = %v", err)
	}
	if len(p.Dropped) != 1 || p.Dropped[0].Node != "SPDXRef-a" || p.Dropped[0].Value != "not-a-purl" {
		t.Errorf("Dropped = %+v", p.Dropped)
	}
	s := memstore.New(entity.Schema()...)
	if _, err := p.Commit(ctx, s); err != nil {
		t.Fatal(err)
	}
	got := counts(t, s)
	if got["sbom_package"] != 1 || got["sbom_package_purl_ref"] != 0 || got["license"] != 1 {
		t.Errorf("row counts = %v", got)
	}
}

type failingTx struct {
	store.Tx
	table string
}

func (f *failingTx) Insert(ctx context.Context, t *store.Table, rows []store.Row) error {
	if t.Name == f.table {
		return errors.New("connection reset")
	}
	return f.Tx.Insert(ctx, t, rows)
}

type failingStore struct {
	*memstore.Store
	table string
}

func (f *failingStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := f.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, table: f.table}, nil
}

func TestFailedCommitLeavesNoRows(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(entity.Schema()...)
	fs := &failingStore{Store: s, table: entity.RelationshipTable.Name}
	_, err := newIngestor().Ingest(ctx, fs, spdx("d1", "pkg:maven/com.test/a@1.0"), Options{})
	if !sbomerr.Is(err, sbomerr.StorageFailure) {
		t.Fatalf("Ingest() = %v, want StorageFailure", err)
	}
	for tbl, n := range counts(t, s) {
		if n != 0 {
			t.Errorf("%s has %d rows after a failed commit", tbl, n)
		}
	}
}

func TestCommitJoinsTransaction(t *testing.T) {
	ctx := context.Background()
	s := memstore.New(entity.Schema()...)
	p, err := newIngestor().Prepare(spdx("d1", "pkg:maven/com.test/a@1.0"), Options{})
	if err != nil {
		t.Fatal(err)
	}
	abort := errors.New("abort")
	err = store.InTx(ctx, s, func(tx store.Tx) error {
		if _, err := p.Commit(ctx, tx); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("InTx() = %v", err)
	}
	if n := counts(t, s)["sbom"]; n != 0 {
		t.Errorf("sbom rows = %d after the outer transaction rolled back", n)
	}
}

func TestArchivesDocument(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewFSStore(memfs.New(), blob.Zstd)
	in := newIngestor()
	in.Blobs = blobs
	data := spdx("d1", "pkg:maven/com.test/a@1.0")
	res, err := in.Ingest(ctx, memstore.New(entity.Schema()...), data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := blobs.Get(ctx, blob.Digest(res.Digest))
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if string(got) != string(data) {
		t.Error("archived bytes differ from the input")
	}
}
