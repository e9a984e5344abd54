// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/in-toto/in-toto-golang/in_toto"
	"github.com/secure-systems-lab/go-securesystemslib/dsse"
)

const spdxDoc = `{
  "spdxVersion": "SPDX-2.3",
  "SPDXID": "SPDXRef-DOCUMENT",
  "name": "example",
  "documentNamespace": "https://example.com/spdx/example-1",
  "creationInfo": {"created": "2024-05-01T10:00:00Z"},
  "documentDescribes": ["SPDXRef-app"],
  "packages": [
    {
      "SPDXID": "SPDXRef-app",
      "name": "app",
      "versionInfo": "1.0",
      "primaryPackagePurpose": "APPLICATION",
      "licenseDeclared": "MIT",
      "licenseConcluded": "NOASSERTION",
      "externalRefs": [
        {"referenceCategory": "PACKAGE-MANAGER", "referenceType": "purl", "referenceLocator": "pkg:generic/app@1.0"}
      ]
    },
    {
      "SPDXID": "SPDXRef-lib",
      "name": "lib",
      "versionInfo": "NOASSERTION",
      "primaryPackagePurpose": "SOURCE",
      "checksums": [{"algorithm": "SHA1", "checksumValue": "f48dd853820860816c75d54d0f584dc863327a7c"}],
      "externalRefs": [
        {"referenceCategory": "SECURITY", "referenceType": "cpe23Type", "referenceLocator": "cpe:2.3:a:acme:lib:*:*:*:*:*:*:*:*"}
      ]
    }
  ],
  "files": [{"SPDXID": "SPDXRef-file", "fileName": "./main.go"}],
  "relationships": [
    {"spdxElementId": "SPDXRef-DOCUMENT", "relationshipType": "DESCRIBES", "relatedSpdxElement": "SPDXRef-app"},
    {"spdxElementId": "SPDXRef-lib", "relationshipType": "DEPENDENCY_OF", "relatedSpdxElement": "SPDXRef-app"},
    {"spdxElementId": "SPDXRef-file", "relationshipType": "CONTAINED_BY", "relatedSpdxElement": "SPDXRef-app"},
    {"spdxElementId": "SPDXRef-app", "relationshipType": "DEPENDS_ON", "relatedSpdxElement": "NONE"},
    {"spdxElementId": "SPDXRef-app", "relationshipType": "AMENDS", "relatedSpdxElement": "SPDXRef-lib"},
    {"spdxElementId": "SPDXRef-app", "relationshipType": "DEPENDS_ON", "relatedSpdxElement": "DocumentRef-other:SPDXRef-x"}
  ]
}`

var spdxWant = &model.Document{
	Name:      "example",
	Version:   "SPDX-2.3",
	Namespace: "https://example.com/spdx/example-1",
	Created:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	Root:      "SPDXRef-DOCUMENT",
	Nodes: []model.Node{
		{ID: "SPDXRef-DOCUMENT", Name: "example"},
		{
			ID:   "SPDXRef-app",
			Name: "app",
			Package: &model.Package{
				Version:  "1.0",
				Type:     model.Application,
				Purls:    []string{"pkg:generic/app@1.0"},
				Licenses: []string{"MIT"},
			},
		},
		{
			ID:        "SPDXRef-lib",
			Name:      "lib",
			Checksums: []model.Checksum{{Algorithm: "SHA1", Value: "f48dd853820860816c75d54d0f584dc863327a7c"}},
			Package:   &model.Package{Cpes: []string{"cpe:2.3:a:acme:lib:*:*:*:*:*:*:*:*"}},
		},
		{ID: "SPDXRef-file", Name: "./main.go"},
	},
	Relationships: []model.Edge{
		{Left: "SPDXRef-DOCUMENT", Relationship: model.Describes, Right: "SPDXRef-app"},
		{Left: "SPDXRef-DOCUMENT", Relationship: model.Describes, Right: "SPDXRef-app"},
		{Left: "SPDXRef-app", Relationship: model.DependsOn, Right: "SPDXRef-lib"},
		{Left: "SPDXRef-app", Relationship: model.Contains, Right: "SPDXRef-file"},
		{Left: "SPDXRef-app", Relationship: model.OtherRelationship, Right: "SPDXRef-lib"},
	},
}

const cdxDoc = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "serialNumber": "urn:uuid:3e671687-395b-41f5-a30f-a58921a69b79",
  "version": 2,
  "metadata": {
    "timestamp": "2024-05-01T10:00:00Z",
    "component": {"bom-ref": "root", "type": "application", "name": "shop", "version": "2.0"}
  },
  "components": [
    {
      "bom-ref": "lib",
      "type": "library",
      "group": "com.acme",
      "name": "lib",
      "version": "1.2",
      "purl": "pkg:maven/com.acme/lib@1.2",
      "hashes": [{"alg": "SHA-256", "content": "916f0027a575074ce72a331777c3478d6513f786a591bd892da1a577bf2335f9"}],
      "licenses": [{"license": {"id": "Apache-2.0"}}, {"expression": "MIT OR BSD-3-Clause"}],
      "components": [{"type": "file", "name": "lib.jar"}]
    }
  ],
  "dependencies": [{"ref": "root", "dependsOn": ["lib"]}]
}`

var cdxWant = &model.Document{
	Name:      "shop",
	Version:   "2",
	Namespace: "urn:uuid:3e671687-395b-41f5-a30f-a58921a69b79",
	Created:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	Root:      CycloneDXRoot,
	Nodes: []model.Node{
		{ID: CycloneDXRoot, Name: "shop"},
		{ID: "root", Name: "shop", Package: &model.Package{Version: "2.0", Type: model.Application}},
		{
			ID:        "lib",
			Name:      "lib",
			Checksums: []model.Checksum{{Algorithm: "SHA-256", Value: "916f0027a575074ce72a331777c3478d6513f786a591bd892da1a577bf2335f9"}},
			Package: &model.Package{
				Group:    "com.acme",
				Version:  "1.2",
				Type:     model.Library,
				Purls:    []string{"pkg:maven/com.acme/lib@1.2"},
				Licenses: []string{"Apache-2.0", "MIT OR BSD-3-Clause"},
			},
		},
		{ID: "components/0/0", Name: "lib.jar", Package: &model.Package{Type: model.File}},
	},
	Relationships: []model.Edge{
		{Left: CycloneDXRoot, Relationship: model.Describes, Right: "root"},
		{Left: "lib", Relationship: model.Contains, Right: "components/0/0"},
		{Left: "root", Relationship: model.DependsOn, Right: "lib"},
	},
}

func envelope(t *testing.T, payload []byte) []byte {
	t.Helper()
	b, err := json.Marshal(&dsse.Envelope{
		PayloadType: InTotoPayloadType,
		Payload:     base64.StdEncoding.EncodeToString(payload),
		Signatures:  []dsse.Signature{{Sig: base64.StdEncoding.EncodeToString([]byte("mock-sig"))}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func statementEnvelope(t *testing.T, predicateType string, predicate string) []byte {
	t.Helper()
	st := statement{
		StatementHeader: in_toto.StatementHeader{
			Type:          in_toto.StatementInTotoV1,
			PredicateType: predicateType,
			Subject:       []in_toto.Subject{{Name: "app", Digest: map[string]string{"sha256": "abcd"}}},
		},
		Predicate: json.RawMessage(predicate),
	}
	b, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	return envelope(t, b)
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name   string
		input  []byte
		want   *model.Document
		wantMD *Metadata
	}{
		{
			name:   "spdx",
			input:  []byte(spdxDoc),
			want:   spdxWant,
			wantMD: &Metadata{Format: SPDX, SpecVersion: "2.3"},
		},
		{
			name:   "cyclonedx",
			input:  []byte(cdxDoc),
			want:   cdxWant,
			wantMD: &Metadata{Format: CycloneDX, SpecVersion: "1.5"},
		},
		{
			name:   "spdx in statement",
			input:  statementEnvelope(t, "https://spdx.dev/Document", spdxDoc),
			want:   spdxWant,
			wantMD: &Metadata{Format: SPDX, SpecVersion: "2.3", PayloadType: InTotoPayloadType, PredicateType: "https://spdx.dev/Document"},
		},
		{
			name:   "signed cyclonedx",
			input:  envelope(t, []byte(cdxDoc)),
			want:   cdxWant,
			wantMD: &Metadata{Format: CycloneDX, SpecVersion: "1.5", PayloadType: InTotoPayloadType},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc, md, err := NewAuto().Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse() = %v", err)
			}
			if diff := cmp.Diff(tc.want, doc); diff != "" {
				t.Errorf("document diff (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantMD, md); diff != "" {
				t.Errorf("metadata diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
	}{
		{"not json", "<bom/>"},
		{"array", "[]"},
		{"unknown format", `{"hello": "world"}`},
		{"spdx 3", `{"spdxVersion": "SPDX-3.0"}`},
		{"bad creation time", `{"spdxVersion": "SPDX-2.3", "creationInfo": {"created": "yesterday"}}`},
		{"unknown purpose", `{"spdxVersion": "SPDX-2.3", "packages": [{"SPDXID": "SPDXRef-a", "primaryPackagePurpose": "GADGET"}]}`},
		{"package without id", `{"spdxVersion": "SPDX-2.3", "packages": [{"name": "a"}]}`},
		{"unknown component type", `{"bomFormat": "CycloneDX", "components": [{"bom-ref": "a", "type": "widget"}]}`},
		{"bad envelope payload", `{"payloadType": "x", "payload": "!!!"}`},
		{"empty envelope payload", `{"payloadType": "x", "payload": ""}`},
		{"unknown statement", string(envelope(t, []byte(`{"_type": "https://example.com/Statement"}`)))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := NewAuto().Parse([]byte(tc.input))
			if !sbomerr.Is(err, sbomerr.ParseFailure) {
				t.Errorf("Parse() = %v, want ParseFailure", err)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	for input, want := range map[string]Format{
		` {"spdxVersion": "SPDX-2.2"}`: SPDX,
		`{"bomFormat": "CycloneDX"}`:   CycloneDX,
	} {
		got, err := Detect([]byte(input))
		if err != nil {
			t.Errorf("Detect(%q) = %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("Detect(%q) = %s, want %s", input, got, want)
		}
	}
}
