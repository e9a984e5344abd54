// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/pkg/errors"
)

// CycloneDXRoot is the node id of the document itself in CycloneDX input,
// which has no element for it.
const CycloneDXRoot = "CycloneDX-doc-ref"

type cdxBOM struct {
	BOMFormat    string `json:"bomFormat"`
	SpecVersion  string `json:"specVersion"`
	SerialNumber string `json:"serialNumber"`
	Version      int    `json:"version"`
	Metadata     struct {
		Timestamp string        `json:"timestamp"`
		Component *cdxComponent `json:"component"`
	} `json:"metadata"`
	Components   []cdxComponent  `json:"components"`
	Dependencies []cdxDependency `json:"dependencies"`
}

type cdxHash struct {
	Alg     string `json:"alg"`
	Content string `json:"content"`
}

type cdxLicenseChoice struct {
	License *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"license"`
	Expression string `json:"expression"`
}

type cdxComponent struct {
	BOMRef     string             `json:"bom-ref"`
	Type       string             `json:"type"`
	Group      string             `json:"group"`
	Name       string             `json:"name"`
	Version    string             `json:"version"`
	Purl       string             `json:"purl"`
	CPE        string             `json:"cpe"`
	Hashes     []cdxHash          `json:"hashes"`
	Licenses   []cdxLicenseChoice `json:"licenses"`
	Components []cdxComponent     `json:"components"`
}

type cdxDependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn"`
}

// CycloneDXParser parses CycloneDX 1.x JSON documents.
type CycloneDXParser struct{}

func (CycloneDXParser) Format() Format { return CycloneDX }

// ref returns the node id of c. Components without a bom-ref are identified
// by their purl, then by their position in the document.
func (c *cdxComponent) ref(path string) string {
	switch {
	case c.BOMRef != "":
		return c.BOMRef
	case c.Purl != "":
		return c.Purl
	default:
		return path
	}
}

func (c *cdxComponent) node(id string) (model.Node, error) {
	pkg := &model.Package{Group: c.Group, Version: c.Version}
	if c.Type != "" {
		t, err := model.ParsePackageType(c.Type)
		if err != nil {
			return model.Node{}, errors.Wrapf(err, "component %s", id)
		}
		pkg.Type = t
	}
	if c.Purl != "" {
		pkg.Purls = []string{c.Purl}
	}
	if c.CPE != "" {
		pkg.Cpes = []string{c.CPE}
	}
	for _, l := range c.Licenses {
		switch {
		case l.Expression != "":
			pkg.Licenses = append(pkg.Licenses, l.Expression)
		case l.License != nil && l.License.ID != "":
			pkg.Licenses = append(pkg.Licenses, l.License.ID)
		case l.License != nil && l.License.Name != "":
			pkg.Licenses = append(pkg.Licenses, l.License.Name)
		}
	}
	n := model.Node{ID: id, Name: c.Name, Package: pkg}
	for _, h := range c.Hashes {
		n.Checksums = append(n.Checksums, model.Checksum{Algorithm: h.Alg, Value: h.Content})
	}
	return n, nil
}

// Parse implements FormatParser.
func (CycloneDXParser) Parse(data []byte) (*model.Document, string, error) {
	var in cdxBOM
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, "", sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "decoding cyclonedx"))
	}
	if in.BOMFormat != "CycloneDX" {
		return nil, "", sbomerr.Errorf(sbomerr.ParseFailure, "bomFormat is %q", in.BOMFormat)
	}
	doc := &model.Document{
		Name:      in.SerialNumber,
		Version:   strconv.Itoa(in.Version),
		Namespace: in.SerialNumber,
		Root:      CycloneDXRoot,
	}
	if in.Metadata.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, in.Metadata.Timestamp)
		if err != nil {
			return nil, "", sbomerr.New(sbomerr.ParseFailure, errors.Wrap(err, "parsing metadata timestamp"))
		}
		doc.Created = ts.UTC()
	}
	if mc := in.Metadata.Component; mc != nil && mc.Name != "" {
		doc.Name = mc.Name
	}
	doc.Nodes = append(doc.Nodes, model.Node{ID: CycloneDXRoot, Name: doc.Name})
	var walk func(parent string, path string, cs []cdxComponent) error
	walk = func(parent, path string, cs []cdxComponent) error {
		for i := range cs {
			c := &cs[i]
			p := fmt.Sprintf("%s/%d", path, i)
			id := c.ref(p)
			n, err := c.node(id)
			if err != nil {
				return err
			}
			doc.Nodes = append(doc.Nodes, n)
			if parent != "" {
				doc.Relationships = append(doc.Relationships, model.Edge{Left: parent, Relationship: model.Contains, Right: id})
			}
			if err := walk(id, p, c.Components); err != nil {
				return err
			}
		}
		return nil
	}
	if mc := in.Metadata.Component; mc != nil {
		if err := walk("", "metadata", []cdxComponent{*mc}); err != nil {
			return nil, "", sbomerr.New(sbomerr.ParseFailure, err)
		}
		doc.Relationships = append(doc.Relationships, model.Edge{Left: CycloneDXRoot, Relationship: model.Describes, Right: mc.ref("metadata/0")})
	}
	if err := walk("", "components", in.Components); err != nil {
		return nil, "", sbomerr.New(sbomerr.ParseFailure, err)
	}
	for _, d := range in.Dependencies {
		for _, dep := range d.DependsOn {
			doc.Relationships = append(doc.Relationships, model.Edge{Left: d.Ref, Relationship: model.DependsOn, Right: dep})
		}
	}
	return doc, in.SpecVersion, nil
}
