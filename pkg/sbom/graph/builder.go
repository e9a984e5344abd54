// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/identity"
	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// NodeInfo describes one node. Package is nil for nodes that are not packages.
type NodeInfo struct {
	ID      string
	Name    string
	Package *PackageInfo
}

// PackageInfo holds the package attributes of a node.
type PackageInfo struct {
	Group   string
	Version string
	Type    model.PackageType
}

// Reference links a package node to exactly one canonical identity.
type Reference struct {
	Purl *identity.Purl
	CPE  *identity.CPE
}

// Builder accumulates the rows of one document's nodes. It is not safe for
// concurrent use; each document gets its own Builder.
type Builder struct {
	ChunkSize int

	sbomID       uuid.UUID
	nodes        rowSet[*entity.Node]
	checksums    rowSet[*entity.NodeChecksum]
	packages     rowSet[*entity.Package]
	purlRefs     rowSet[*entity.PurlRef]
	cpeRefs      rowSet[*entity.CpeRef]
	purlLicenses rowSet[*entity.PurlLicense]
	cpeLicenses  rowSet[*entity.CpeLicense]
}

// NewBuilder returns a Builder for the document instance sbomID.
func NewBuilder(sbomID uuid.UUID) *Builder {
	return &Builder{sbomID: sbomID}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Add records a node with its references, license identities and checksums.
// It performs no I/O. References and licenses are only meaningful on package
// nodes; license assertions pair every license with every reference.
func (b *Builder) Add(node NodeInfo, refs []Reference, licenses []*identity.License, checksums []identity.Checksum) error {
	if node.ID == "" {
		return errors.New("node without id")
	}
	if node.Package == nil && (len(refs) > 0 || len(licenses) > 0) {
		return errors.Errorf("node %s: references on a node that is not a package", node.ID)
	}
	b.nodes.add(node.ID, &entity.Node{SbomID: b.sbomID, NodeID: node.ID, Name: node.Name})
	for _, c := range checksums {
		b.checksums.add(node.ID+"\x00"+c.String(), &entity.NodeChecksum{SbomID: b.sbomID, NodeID: node.ID, Algorithm: c.Algorithm, Value: c.Value})
	}
	if node.Package == nil {
		return nil
	}
	pkg := &entity.Package{
		SbomID:  b.sbomID,
		NodeID:  node.ID,
		Group:   optional(node.Package.Group),
		Version: optional(node.Package.Version),
	}
	if node.Package.Type.IsSet() {
		pkg.PackageType = optional(node.Package.Type.String())
	}
	b.packages.add(node.ID, pkg)
	for _, ref := range refs {
		switch {
		case ref.Purl != nil:
			q := ref.Purl.Qualified()
			b.purlRefs.add(node.ID+"\x00"+q.ID.String(), &entity.PurlRef{SbomID: b.sbomID, NodeID: node.ID, QualifiedPurlID: q.ID, Purl: ref.Purl.String()})
			v := ref.Purl.Versioned().ID
			for _, l := range licenses {
				lid := l.Identity().ID
				b.purlLicenses.add(lid.String()+"\x00"+v.String(), &entity.PurlLicense{SbomID: b.sbomID, LicenseID: lid, VersionedPurlID: v})
			}
		case ref.CPE != nil:
			c := ref.CPE.Identity().ID
			b.cpeRefs.add(node.ID+"\x00"+c.String(), &entity.CpeRef{SbomID: b.sbomID, NodeID: node.ID, CpeID: c})
			for _, l := range licenses {
				lid := l.Identity().ID
				b.cpeLicenses.add(lid.String()+"\x00"+c.String(), &entity.CpeLicense{SbomID: b.sbomID, LicenseID: lid, CpeID: c})
			}
		default:
			return errors.Errorf("node %s: empty reference", node.ID)
		}
	}
	return nil
}

// HasNode reports whether a node with id was added.
func (b *Builder) HasNode(id string) bool {
	return b.nodes.seen[id]
}

// Counts returns the number of buffered rows per table.
func (b *Builder) Counts() map[string]int {
	return map[string]int{
		entity.NodeTable.Name:         b.nodes.len(),
		entity.NodeChecksumTable.Name: b.checksums.len(),
		entity.PackageTable.Name:      b.packages.len(),
		entity.PurlRefTable.Name:      b.purlRefs.len(),
		entity.CpeRefTable.Name:       b.cpeRefs.len(),
		entity.PurlLicenseTable.Name:  b.purlLicenses.len(),
		entity.CpeLicenseTable.Name:   b.cpeLicenses.len(),
	}
}

// Commit writes the buffered rows through tx in dependency order: nodes with
// their checksums, packages, purl and cpe references, license assertions.
// The document row and the canonical identities must already be written in
// the same transaction.
func (b *Builder) Commit(ctx context.Context, tx store.Tx) error {
	steps := []func() error{
		func() error {
			if err := insertChunked(ctx, tx, entity.NodeTable, b.nodes.rows, b.ChunkSize); err != nil {
				return err
			}
			return insertChunked(ctx, tx, entity.NodeChecksumTable, b.checksums.rows, b.ChunkSize)
		},
		func() error {
			return insertChunked(ctx, tx, entity.PackageTable, b.packages.rows, b.ChunkSize)
		},
		func() error {
			if err := insertChunked(ctx, tx, entity.PurlRefTable, b.purlRefs.rows, b.ChunkSize); err != nil {
				return err
			}
			return insertChunked(ctx, tx, entity.CpeRefTable, b.cpeRefs.rows, b.ChunkSize)
		},
		func() error {
			if err := insertChunked(ctx, tx, entity.PurlLicenseTable, b.purlLicenses.rows, b.ChunkSize); err != nil {
				return err
			}
			return insertChunked(ctx, tx, entity.CpeLicenseTable, b.cpeLicenses.rows, b.ChunkSize)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
