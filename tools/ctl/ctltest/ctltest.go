// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package ctltest provides stores seeded with documents for command tests.
package ctltest

import (
	"context"
	"testing"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/ingest"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/oss-sbomgraph/pkg/sbom/store/memstore"
	"github.com/google/uuid"
)

// App is an SPDX document describing app, which contains left-pad and
// depends on zlib. left-pad contains core.
const App = `{
  "spdxVersion": "SPDX-2.3",
  "SPDXID": "SPDXRef-DOCUMENT",
  "name": "app",
  "documentNamespace": "https://example.com/app",
  "documentDescribes": ["app"],
  "packages": [
    {"SPDXID": "app", "name": "app", "versionInfo": "2.0",
     "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/app@2.0"}]},
    {"SPDXID": "zlib", "name": "zlib", "versionInfo": "1.3",
     "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:generic/zlib@1.3"}]},
    {"SPDXID": "left-pad", "name": "left-pad", "versionInfo": "1.0.0", "licenseDeclared": "MIT",
     "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/left-pad@1.0.0"}]},
    {"SPDXID": "core", "name": "core", "versionInfo": "1.0.0",
     "externalRefs": [{"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:npm/%40scope/core@1.0.0"}]}
  ],
  "relationships": [
    {"spdxElementId": "app", "relationshipType": "CONTAINS", "relatedSpdxElement": "left-pad"},
    {"spdxElementId": "left-pad", "relationshipType": "CONTAINS", "relatedSpdxElement": "core"},
    {"spdxElementId": "app", "relationshipType": "DEPENDS_ON", "relatedSpdxElement": "zlib"}
  ]
}`

// Seed returns a memory store holding docs and their ids, in order.
func Seed(t *testing.T, docs ...string) (store.Store, []uuid.UUID) {
	t.Helper()
	s := memstore.New(entity.Schema()...)
	var ids []uuid.UUID
	for _, d := range docs {
		prepared, err := (&ingest.Ingestor{}).Prepare([]byte(d), ingest.Options{Source: "ctltest"})
		if err != nil {
			t.Fatalf("Prepare() = %v", err)
		}
		res, err := prepared.Commit(context.Background(), s)
		if err != nil {
			t.Fatalf("Commit() = %v", err)
		}
		ids = append(ids, res.SbomID)
	}
	return s, ids
}

// Opener returns a store opener that always yields s.
func Opener(s store.Store) func(context.Context, string, bool) (store.Store, error) {
	return func(context.Context, string, bool) (store.Store, error) {
		return s, nil
	}
}
