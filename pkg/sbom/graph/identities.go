// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"encoding/json"

	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/identity"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/pkg/errors"
)

// Identities collects the canonical identity rows a document references.
type Identities struct {
	ChunkSize int

	base      rowSet[*entity.BasePurl]
	versioned rowSet[*entity.VersionedPurl]
	qualified rowSet[*entity.QualifiedPurl]
	cpes      rowSet[*entity.Cpe]
	licenses  rowSet[*entity.License]
}

// AddPurl records the base, versioned and qualified identities of p. Nothing
// is recorded when its qualifiers cannot be encoded.
func (c *Identities) AddPurl(p *identity.Purl) error {
	base, versioned, qualified := p.Base(), p.Versioned(), p.Qualified()
	quals, err := json.Marshal(p.QualifierMap())
	if err != nil {
		return sbomerr.New(sbomerr.InvalidIdentity, errors.Wrapf(err, "encoding qualifiers of %s", qualified.Canonical))
	}
	var ns *string
	if p.Namespace != "" {
		ns = &p.Namespace
	}
	c.base.add(base.ID.String(), &entity.BasePurl{ID: base.ID, Type: p.Type, Namespace: ns, Name: p.Name})
	c.versioned.add(versioned.ID.String(), &entity.VersionedPurl{ID: versioned.ID, BasePurlID: base.ID, Version: p.Version})
	c.qualified.add(qualified.ID.String(), &entity.QualifiedPurl{
		ID:              qualified.ID,
		VersionedPurlID: versioned.ID,
		Qualifiers:      string(quals),
		Purl:            qualified.Canonical,
	})
	return nil
}

// AddCPE records the identity of cpe.
func (c *Identities) AddCPE(cpe *identity.CPE) {
	id := cpe.Identity()
	c.cpes.add(id.ID.String(), &entity.Cpe{
		ID:        id.ID,
		Part:      cpe.Part,
		Vendor:    cpe.Vendor,
		Product:   cpe.Product,
		Version:   cpe.Version,
		Canonical: id.Canonical,
	})
}

// AddLicense records the identity of l.
func (c *Identities) AddLicense(l *identity.License) {
	id := l.Identity()
	c.licenses.add(id.ID.String(), &entity.License{ID: id.ID, Text: id.Canonical})
}

// Len returns the number of distinct identity rows collected.
func (c *Identities) Len() int {
	return c.base.len() + c.versioned.len() + c.qualified.len() + c.cpes.len() + c.licenses.len()
}

// Counts returns the number of collected rows per table.
func (c *Identities) Counts() map[string]int {
	return map[string]int{
		entity.BasePurlTable.Name:      c.base.len(),
		entity.VersionedPurlTable.Name: c.versioned.len(),
		entity.QualifiedPurlTable.Name: c.qualified.len(),
		entity.CpeTable.Name:           c.cpes.len(),
		entity.LicenseTable.Name:       c.licenses.len(),
	}
}

// Commit writes the identity rows, referenced before referencing.
func (c *Identities) Commit(ctx context.Context, tx store.Tx) error {
	if err := insertChunked(ctx, tx, entity.BasePurlTable, c.base.rows, c.ChunkSize); err != nil {
		return err
	}
	if err := insertChunked(ctx, tx, entity.VersionedPurlTable, c.versioned.rows, c.ChunkSize); err != nil {
		return err
	}
	if err := insertChunked(ctx, tx, entity.QualifiedPurlTable, c.qualified.rows, c.ChunkSize); err != nil {
		return err
	}
	if err := insertChunked(ctx, tx, entity.CpeTable, c.cpes.rows, c.ChunkSize); err != nil {
		return err
	}
	return insertChunked(ctx, tx, entity.LicenseTable, c.licenses.rows, c.ChunkSize)
}
