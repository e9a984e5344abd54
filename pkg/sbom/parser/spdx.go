// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/pkg/errors"
)

type spdxDocument struct {
	SPDXVersion       string `json:"spdxVersion"`
	SPDXID            string `json:"SPDXID"`
	Name              string `json:"name"`
	DocumentNamespace string `json:"documentNamespace"`
	CreationInfo      struct {
		Created string `json:"created"`
	} `json:"creationInfo"`
	DocumentDescribes []string           `json:"documentDescribes"`
	Packages          []spdxPackage      `json:"packages"`
	Files             []spdxFile         `json:"files"`
	Relationships     []spdxRelationship `json:"relationships"`
}

type spdxChecksum struct {
	Algorithm     string `json:"algorithm"`
	ChecksumValue string `json:"checksumValue"`
}

type spdxExternalRef struct {
	ReferenceCategory string `json:"referenceCategory"`
	ReferenceType     string `json:"referenceType"`
	ReferenceLocator  string `json:"referenceLocator"`
}

type spdxPackage struct {
	SPDXID                string            `json:"SPDXID"`
	Name                  string            `json:"name"`
	VersionInfo           string            `json:"versionInfo"`
	Supplier              string            `json:"supplier"`
	Checksums             []spdxChecksum    `json:"checksums"`
	LicenseConcluded      string            `json:"licenseConcluded"`
	LicenseDeclared       string            `json:"licenseDeclared"`
	ExternalRefs          []spdxExternalRef `json:"externalRefs"`
	PrimaryPackagePurpose string            `json:"primaryPackagePurpose"`
}

type spdxFile struct {
	SPDXID    string         `json:"SPDXID"`
	FileName  string         `json:"fileName"`
	Checksums []spdxChecksum `json:"checksums"`
}

type spdxRelationship struct {
	SPDXElementID      string `json:"spdxElementId"`
	RelationshipType   string `json:"relationshipType"`
	RelatedSPDXElement string `json:"relatedSpdxElement"`
}

// spdxRelationships maps SPDX relationship types to the forward kind. Inverse
// types swap their endpoints.
var spdxRelationships = map[string]struct {
	kind    model.Relationship
	inverse bool
}{
	"CONTAINS":               {model.Contains, false},
	"CONTAINED_BY":           {model.Contains, true},
	"DEPENDS_ON":             {model.DependsOn, false},
	"DEPENDENCY_OF":          {model.DependsOn, true},
	"DEV_DEPENDENCY_OF":      {model.DevDependsOn, true},
	"OPTIONAL_DEPENDENCY_OF": {model.OptionalDependsOn, true},
	"PROVIDED_DEPENDENCY_OF": {model.ProvidedDependsOn, true},
	"TEST_DEPENDENCY_OF":     {model.TestDependsOn, true},
	"RUNTIME_DEPENDENCY_OF":  {model.RuntimeDependsOn, true},
	"DESCRIBES":              {model.Describes, false},
	"DESCRIBED_BY":           {model.Describes, true},
	"GENERATED_FROM":         {model.GeneratedFrom, false},
	"GENERATES":              {model.GeneratedFrom, true},
	"ANCESTOR_OF":            {model.AncestorOf, false},
	"DESCENDANT_OF":          {model.AncestorOf, true},
	"VARIANT_OF":             {model.VariantOf, false},
	"BUILD_TOOL_OF":          {model.BuildToolOf, false},
	"DEV_TOOL_OF":            {model.DevToolOf, false},
	"EXAMPLE_OF":             {model.ExampleOf, false},
	"PACKAGE_OF":             {model.PackageOf, false},
}

// SPDX purposes without a package type equivalent.
var spdxUnclassified = map[string]bool{"SOURCE": true, "ARCHIVE": true, "INSTALL": true, "OTHER": true}

// SPDXParser parses SPDX 2.x JSON documents.
type SPDXParser struct{}

func (SPDXParser) Format() Format { return SPDX }

func spdxValue(s string) string {
	switch strings.TrimSpace(s) {
	case "NOASSERTION", "NONE":
		return ""
	default:
		return strings.TrimSpace(s)
	}
}

func spdxChecksums(in []spdxChecksum) []model.Checksum {
	var out []model.Checksum
	for _, c := range in {
		out = append(out, model.Checksum{Algorithm: c.Algorithm, Value: c.ChecksumValue})
	}
	return out
}

// external reports whether id names an element of another document.
func external(id string) bool {
	return strings.HasPrefix(id, "DocumentRef-")
}

// Parse implements FormatParser.
func (SPDXParser) Parse(data []byte) (*model.Document, string, error) {
	var in spdxDocument
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, "", sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "decoding spdx"))
	}
	if !strings.HasPrefix(in.SPDXVersion, "SPDX-2.") {
		return nil, "", sbomerr.Errorf(sbomerr.ParseFailure, "unsupported spdx version %q", in.SPDXVersion)
	}
	root := in.SPDXID
	if root == "" {
		root = "SPDXRef-DOCUMENT"
	}
	doc := &model.Document{
		Name:      in.Name,
		Version:   in.SPDXVersion,
		Namespace: in.DocumentNamespace,
		Root:      root,
	}
	if in.CreationInfo.Created != "" {
		created, err := time.Parse(time.RFC3339, in.CreationInfo.Created)
		if err != nil {
			return nil, "", sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "parsing creation time"))
		}
		doc.Created = created.UTC()
	}
	doc.Nodes = append(doc.Nodes, model.Node{ID: root, Name: in.Name})
	for _, p := range in.Packages {
		if p.SPDXID == "" {
			return nil, "", sbomerr.Errorf(sbomerr.ParseFailure, "package %q has no SPDXID", p.Name)
		}
		pkg := &model.Package{Version: spdxValue(p.VersionInfo)}
		if purpose := strings.TrimSpace(p.PrimaryPackagePurpose); purpose != "" && !spdxUnclassified[purpose] {
			t, err := model.ParsePackageType(strings.ReplaceAll(purpose, "_", "-"))
			if err != nil {
				return nil, "", sbomerr.New(sbomerr.ParseFailure, errors.Wrapf(err, "package %s", p.SPDXID))
			}
			pkg.Type = t
		}
		for _, ref := range p.ExternalRefs {
			switch ref.ReferenceType {
			case "purl":
				pkg.Purls = append(pkg.Purls, ref.ReferenceLocator)
			case "cpe22Type", "cpe23Type":
				pkg.Cpes = append(pkg.Cpes, ref.ReferenceLocator)
			}
		}
		for _, l := range []string{spdxValue(p.LicenseDeclared), spdxValue(p.LicenseConcluded)} {
			if l != "" && (len(pkg.Licenses) == 0 || pkg.Licenses[0] != l) {
				pkg.Licenses = append(pkg.Licenses, l)
			}
		}
		doc.Nodes = append(doc.Nodes, model.Node{ID: p.SPDXID, Name: p.Name, Checksums: spdxChecksums(p.Checksums), Package: pkg})
	}
	for _, f := range in.Files {
		if f.SPDXID == "" {
			return nil, "", sbomerr.Errorf(sbomerr.ParseFailure, "file %q has no SPDXID", f.FileName)
		}
		doc.Nodes = append(doc.Nodes, model.Node{ID: f.SPDXID, Name: f.FileName, Checksums: spdxChecksums(f.Checksums)})
	}
	for _, id := range in.DocumentDescribes {
		doc.Relationships = append(doc.Relationships, model.Edge{Left: root, Relationship: model.Describes, Right: id})
	}
	for _, r := range in.Relationships {
		left, right := r.SPDXElementID, r.RelatedSPDXElement
		if spdxValue(right) == "" || external(left) || external(right) {
			continue
		}
		m, ok := spdxRelationships[strings.ToUpper(r.RelationshipType)]
		if !ok {
			m.kind = model.OtherRelationship
		}
		if m.inverse {
			left, right = right, left
		}
		doc.Relationships = append(doc.Relationships, model.Edge{Left: left, Relationship: m.kind, Right: right})
	}
	return doc, strings.TrimPrefix(in.SPDXVersion, "SPDX-"), nil
}
