// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package entity defines the persisted row model of the graph.
//
// Canonical identity tables (base_purl, versioned_purl, qualified_purl, cpe,
// license) are shared by every document and never deleted. The sbom_* tables
// and the assertion tables are owned by a single document and cascade with it.
package entity

import (
	"encoding/json"
	"time"

	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
)

func col(name string, typ store.ColumnType) store.Column {
	return store.Column{Name: name, Type: typ}
}

func nullable(name string, typ store.ColumnType) store.Column {
	return store.Column{Name: name, Type: typ, Nullable: true}
}

func owned(cols ...string) store.ForeignKey {
	return store.ForeignKey{Columns: cols, Table: "sbom", Cascade: true}
}

var (
	SbomTable = &store.Table{
		Name: "sbom",
		Columns: []store.Column{
			col("id", store.UUID),
			col("name", store.Text),
			col("document_version", store.String),
			col("namespace", store.Text),
			col("node_id", store.String),
			col("digest", store.String),
			col("source", store.Text),
			col("labels", store.Text),
			col("size", store.Int),
			nullable("published", store.Time),
			col("ingested", store.Time),
		},
		Key: []string{"id"},
	}
	BasePurlTable = &store.Table{
		Name: "base_purl",
		Columns: []store.Column{
			col("id", store.UUID),
			col("type", store.String),
			nullable("namespace", store.Text),
			col("name", store.Text),
		},
		Key: []string{"id"},
	}
	VersionedPurlTable = &store.Table{
		Name: "versioned_purl",
		Columns: []store.Column{
			col("id", store.UUID),
			col("base_purl_id", store.UUID),
			col("version", store.Text),
		},
		Key:         []string{"id"},
		ForeignKeys: []store.ForeignKey{{Columns: []string{"base_purl_id"}, Table: "base_purl"}},
	}
	QualifiedPurlTable = &store.Table{
		Name: "qualified_purl",
		Columns: []store.Column{
			col("id", store.UUID),
			col("versioned_purl_id", store.UUID),
			col("qualifiers", store.Text),
			col("purl", store.Text),
		},
		Key:         []string{"id"},
		ForeignKeys: []store.ForeignKey{{Columns: []string{"versioned_purl_id"}, Table: "versioned_purl"}},
	}
	CpeTable = &store.Table{
		Name: "cpe",
		Columns: []store.Column{
			col("id", store.UUID),
			col("part", store.String),
			col("vendor", store.Text),
			col("product", store.Text),
			col("version", store.Text),
			col("canonical", store.Text),
		},
		Key: []string{"id"},
	}
	LicenseTable = &store.Table{
		Name: "license",
		Columns: []store.Column{
			col("id", store.UUID),
			col("text", store.Text),
		},
		Key: []string{"id"},
	}
	NodeTable = &store.Table{
		Name: "sbom_node",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("node_id", store.String),
			col("name", store.Text),
		},
		Key:         []string{"sbom_id", "node_id"},
		ForeignKeys: []store.ForeignKey{owned("sbom_id")},
	}
	NodeChecksumTable = &store.Table{
		Name: "sbom_node_checksum",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("node_id", store.String),
			col("algorithm", store.String),
			col("value", store.String),
		},
		Key: []string{"sbom_id", "node_id", "algorithm", "value"},
		ForeignKeys: []store.ForeignKey{
			{Columns: []string{"sbom_id", "node_id"}, Table: "sbom_node", Cascade: true},
		},
	}
	PackageTable = &store.Table{
		Name: "sbom_package",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("node_id", store.String),
			nullable("group", store.Text),
			nullable("version", store.Text),
			nullable("package_type", store.String),
		},
		Key: []string{"sbom_id", "node_id"},
		ForeignKeys: []store.ForeignKey{
			{Columns: []string{"sbom_id", "node_id"}, Table: "sbom_node", Cascade: true},
		},
	}
	PurlRefTable = &store.Table{
		Name: "sbom_package_purl_ref",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("node_id", store.String),
			col("qualified_purl_id", store.UUID),
			col("purl", store.Text),
		},
		Key: []string{"sbom_id", "node_id", "qualified_purl_id"},
		ForeignKeys: []store.ForeignKey{
			{Columns: []string{"sbom_id", "node_id"}, Table: "sbom_package", Cascade: true},
			{Columns: []string{"qualified_purl_id"}, Table: "qualified_purl"},
		},
	}
	CpeRefTable = &store.Table{
		Name: "sbom_package_cpe_ref",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("node_id", store.String),
			col("cpe_id", store.UUID),
		},
		Key: []string{"sbom_id", "node_id", "cpe_id"},
		ForeignKeys: []store.ForeignKey{
			{Columns: []string{"sbom_id", "node_id"}, Table: "sbom_package", Cascade: true},
			{Columns: []string{"cpe_id"}, Table: "cpe"},
		},
	}
	PurlLicenseTable = &store.Table{
		Name: "purl_license_assertion",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("license_id", store.UUID),
			col("versioned_purl_id", store.UUID),
		},
		Key: []string{"sbom_id", "license_id", "versioned_purl_id"},
		ForeignKeys: []store.ForeignKey{
			owned("sbom_id"),
			{Columns: []string{"license_id"}, Table: "license"},
			{Columns: []string{"versioned_purl_id"}, Table: "versioned_purl"},
		},
	}
	CpeLicenseTable = &store.Table{
		Name: "cpe_license_assertion",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("license_id", store.UUID),
			col("cpe_id", store.UUID),
		},
		Key: []string{"sbom_id", "license_id", "cpe_id"},
		ForeignKeys: []store.ForeignKey{
			owned("sbom_id"),
			{Columns: []string{"license_id"}, Table: "license"},
			{Columns: []string{"cpe_id"}, Table: "cpe"},
		},
	}
	RelationshipTable = &store.Table{
		Name: "package_relates_to_package",
		Columns: []store.Column{
			col("sbom_id", store.UUID),
			col("left_node_id", store.String),
			col("relationship", store.String),
			col("right_node_id", store.String),
		},
		Key: []string{"sbom_id", "left_node_id", "relationship", "right_node_id"},
		ForeignKeys: []store.ForeignKey{
			{Columns: []string{"sbom_id", "left_node_id"}, Table: "sbom_node", Cascade: true},
			{Columns: []string{"sbom_id", "right_node_id"}, Table: "sbom_node", Cascade: true},
		},
	}
)

// Schema returns every table, referenced tables before referencing ones.
func Schema() []*store.Table {
	return []*store.Table{
		SbomTable,
		BasePurlTable,
		VersionedPurlTable,
		QualifiedPurlTable,
		CpeTable,
		LicenseTable,
		NodeTable,
		NodeChecksumTable,
		PackageTable,
		PurlRefTable,
		CpeRefTable,
		PurlLicenseTable,
		CpeLicenseTable,
		RelationshipTable,
	}
}

func init() {
	SbomTable.New = func() store.Row { return &Sbom{} }
	BasePurlTable.New = func() store.Row { return &BasePurl{} }
	VersionedPurlTable.New = func() store.Row { return &VersionedPurl{} }
	QualifiedPurlTable.New = func() store.Row { return &QualifiedPurl{} }
	CpeTable.New = func() store.Row { return &Cpe{} }
	LicenseTable.New = func() store.Row { return &License{} }
	NodeTable.New = func() store.Row { return &Node{} }
	NodeChecksumTable.New = func() store.Row { return &NodeChecksum{} }
	PackageTable.New = func() store.Row { return &Package{} }
	PurlRefTable.New = func() store.Row { return &PurlRef{} }
	CpeRefTable.New = func() store.Row { return &CpeRef{} }
	PurlLicenseTable.New = func() store.Row { return &PurlLicense{} }
	CpeLicenseTable.New = func() store.Row { return &CpeLicense{} }
	RelationshipTable.New = func() store.Row { return &Relationship{} }
}

// Sbom is one ingested document instance.
type Sbom struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	DocumentVersion string    `json:"document_version"`
	Namespace       string    `json:"namespace"`
	// NodeID is the node standing for the document itself, empty when the
	// format has none.
	NodeID string `json:"node_id"`
	// Digest is the hex sha256 of the raw document bytes.
	Digest string `json:"digest"`
	Source string `json:"source"`
	// Labels is a JSON object of string labels.
	Labels    string     `json:"labels"`
	Size      int64      `json:"size"`
	Published *time.Time `json:"published,omitempty"`
	Ingested  time.Time  `json:"ingested"`
}

func (*Sbom) Table() *store.Table { return SbomTable }

func (r *Sbom) Values() []any {
	return []any{r.ID, r.Name, r.DocumentVersion, r.Namespace, r.NodeID, r.Digest, r.Source, r.Labels, r.Size, r.Published, r.Ingested}
}

func (r *Sbom) Fields() []any {
	return []any{&r.ID, &r.Name, &r.DocumentVersion, &r.Namespace, &r.NodeID, &r.Digest, &r.Source, &r.Labels, &r.Size, &r.Published, &r.Ingested}
}

// LabelMap decodes Labels.
func (r *Sbom) LabelMap() (map[string]string, error) {
	labels := map[string]string{}
	if r.Labels == "" {
		return labels, nil
	}
	err := json.Unmarshal([]byte(r.Labels), &labels)
	return labels, err
}

// SetLabels encodes labels into Labels.
func (r *Sbom) SetLabels(labels map[string]string) error {
	if labels == nil {
		labels = map[string]string{}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	r.Labels = string(b)
	return nil
}

// BasePurl is the versionless package identity (type, namespace, name).
type BasePurl struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Namespace *string   `json:"namespace,omitempty"`
	Name      string    `json:"name"`
}

func (*BasePurl) Table() *store.Table { return BasePurlTable }
func (r *BasePurl) Values() []any     { return []any{r.ID, r.Type, r.Namespace, r.Name} }
func (r *BasePurl) Fields() []any     { return []any{&r.ID, &r.Type, &r.Namespace, &r.Name} }

// VersionedPurl is a base identity at a version.
type VersionedPurl struct {
	ID         uuid.UUID `json:"id"`
	BasePurlID uuid.UUID `json:"base_purl_id"`
	Version    string    `json:"version"`
}

func (*VersionedPurl) Table() *store.Table { return VersionedPurlTable }
func (r *VersionedPurl) Values() []any     { return []any{r.ID, r.BasePurlID, r.Version} }
func (r *VersionedPurl) Fields() []any     { return []any{&r.ID, &r.BasePurlID, &r.Version} }

// QualifiedPurl is a versioned identity with its qualifiers.
type QualifiedPurl struct {
	ID              uuid.UUID `json:"id"`
	VersionedPurlID uuid.UUID `json:"versioned_purl_id"`
	// Qualifiers is a JSON object of the canonical qualifiers.
	Qualifiers string `json:"qualifiers"`
	Purl       string `json:"purl"`
}

func (*QualifiedPurl) Table() *store.Table { return QualifiedPurlTable }
func (r *QualifiedPurl) Values() []any {
	return []any{r.ID, r.VersionedPurlID, r.Qualifiers, r.Purl}
}
func (r *QualifiedPurl) Fields() []any {
	return []any{&r.ID, &r.VersionedPurlID, &r.Qualifiers, &r.Purl}
}

// Cpe is a canonical CPE identity.
type Cpe struct {
	ID        uuid.UUID `json:"id"`
	Part      string    `json:"part"`
	Vendor    string    `json:"vendor"`
	Product   string    `json:"product"`
	Version   string    `json:"version"`
	Canonical string    `json:"canonical"`
}

func (*Cpe) Table() *store.Table { return CpeTable }
func (r *Cpe) Values() []any {
	return []any{r.ID, r.Part, r.Vendor, r.Product, r.Version, r.Canonical}
}
func (r *Cpe) Fields() []any {
	return []any{&r.ID, &r.Part, &r.Vendor, &r.Product, &r.Version, &r.Canonical}
}

// License is a canonical license expression.
type License struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

func (*License) Table() *store.Table { return LicenseTable }
func (r *License) Values() []any     { return []any{r.ID, r.Text} }
func (r *License) Fields() []any     { return []any{&r.ID, &r.Text} }

// Node is a vertex of a document's graph.
type Node struct {
	SbomID uuid.UUID `json:"sbom_id"`
	NodeID string    `json:"node_id"`
	Name   string    `json:"name"`
}

func (*Node) Table() *store.Table { return NodeTable }
func (r *Node) Values() []any     { return []any{r.SbomID, r.NodeID, r.Name} }
func (r *Node) Fields() []any     { return []any{&r.SbomID, &r.NodeID, &r.Name} }

// NodeChecksum attaches a normalized checksum to a node.
type NodeChecksum struct {
	SbomID    uuid.UUID `json:"sbom_id"`
	NodeID    string    `json:"node_id"`
	Algorithm string    `json:"algorithm"`
	Value     string    `json:"value"`
}

func (*NodeChecksum) Table() *store.Table { return NodeChecksumTable }
func (r *NodeChecksum) Values() []any {
	return []any{r.SbomID, r.NodeID, r.Algorithm, r.Value}
}
func (r *NodeChecksum) Fields() []any {
	return []any{&r.SbomID, &r.NodeID, &r.Algorithm, &r.Value}
}

// Package holds the package attributes of a node.
type Package struct {
	SbomID      uuid.UUID `json:"sbom_id"`
	NodeID      string    `json:"node_id"`
	Group       *string   `json:"group,omitempty"`
	Version     *string   `json:"version,omitempty"`
	PackageType *string   `json:"package_type,omitempty"`
}

func (*Package) Table() *store.Table { return PackageTable }
func (r *Package) Values() []any {
	return []any{r.SbomID, r.NodeID, r.Group, r.Version, r.PackageType}
}
func (r *Package) Fields() []any {
	return []any{&r.SbomID, &r.NodeID, &r.Group, &r.Version, &r.PackageType}
}

// PurlRef links a package node to a qualified purl identity.
type PurlRef struct {
	SbomID          uuid.UUID `json:"sbom_id"`
	NodeID          string    `json:"node_id"`
	QualifiedPurlID uuid.UUID `json:"qualified_purl_id"`
	// Purl is the canonical purl string, subpath included.
	Purl string `json:"purl"`
}

func (*PurlRef) Table() *store.Table { return PurlRefTable }
func (r *PurlRef) Values() []any {
	return []any{r.SbomID, r.NodeID, r.QualifiedPurlID, r.Purl}
}
func (r *PurlRef) Fields() []any {
	return []any{&r.SbomID, &r.NodeID, &r.QualifiedPurlID, &r.Purl}
}

// CpeRef links a package node to a CPE identity.
type CpeRef struct {
	SbomID uuid.UUID `json:"sbom_id"`
	NodeID string    `json:"node_id"`
	CpeID  uuid.UUID `json:"cpe_id"`
}

func (*CpeRef) Table() *store.Table { return CpeRefTable }
func (r *CpeRef) Values() []any     { return []any{r.SbomID, r.NodeID, r.CpeID} }
func (r *CpeRef) Fields() []any     { return []any{&r.SbomID, &r.NodeID, &r.CpeID} }

// PurlLicense asserts, within a document, that a versioned purl carries a license.
type PurlLicense struct {
	SbomID          uuid.UUID `json:"sbom_id"`
	LicenseID       uuid.UUID `json:"license_id"`
	VersionedPurlID uuid.UUID `json:"versioned_purl_id"`
}

func (*PurlLicense) Table() *store.Table { return PurlLicenseTable }
func (r *PurlLicense) Values() []any {
	return []any{r.SbomID, r.LicenseID, r.VersionedPurlID}
}
func (r *PurlLicense) Fields() []any {
	return []any{&r.SbomID, &r.LicenseID, &r.VersionedPurlID}
}

// CpeLicense asserts, within a document, that a CPE carries a license.
type CpeLicense struct {
	SbomID    uuid.UUID `json:"sbom_id"`
	LicenseID uuid.UUID `json:"license_id"`
	CpeID     uuid.UUID `json:"cpe_id"`
}

func (*CpeLicense) Table() *store.Table { return CpeLicenseTable }
func (r *CpeLicense) Values() []any     { return []any{r.SbomID, r.LicenseID, r.CpeID} }
func (r *CpeLicense) Fields() []any     { return []any{&r.SbomID, &r.LicenseID, &r.CpeID} }

// Relationship is a directed, typed edge between two nodes of a document.
type Relationship struct {
	SbomID       uuid.UUID `json:"sbom_id"`
	Left         string    `json:"left_node_id"`
	Relationship string    `json:"relationship"`
	Right        string    `json:"right_node_id"`
}

func (*Relationship) Table() *store.Table { return RelationshipTable }
func (r *Relationship) Values() []any {
	return []any{r.SbomID, r.Left, r.Relationship, r.Right}
}
func (r *Relationship) Fields() []any {
	return []any{&r.SbomID, &r.Left, &r.Relationship, &r.Right}
}
