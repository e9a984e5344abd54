// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package ingest turns raw SBOM bytes into committed graph rows.
//
// Ingestion is split in two phases. Prepare parses and canonicalizes a
// document entirely in memory; Commit writes the result inside a single
// transaction, so a failed document never leaves partial rows behind.
package ingest

import (
	"context"
	"log"
	"time"

	"github.com/google/oss-sbomgraph/pkg/sbom/blob"
	"github.com/google/oss-sbomgraph/pkg/sbom/entity"
	"github.com/google/oss-sbomgraph/pkg/sbom/graph"
	"github.com/google/oss-sbomgraph/pkg/sbom/identity"
	"github.com/google/oss-sbomgraph/pkg/sbom/model"
	"github.com/google/oss-sbomgraph/pkg/sbom/parser"
	"github.com/google/oss-sbomgraph/pkg/sbom/sbomerr"
	"github.com/google/oss-sbomgraph/pkg/sbom/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// InvalidIdentityPolicy decides what happens to a reference, license or
// checksum that cannot be canonicalized.
type InvalidIdentityPolicy int

const (
	// Reject fails the whole document with InvalidIdentity.
	Reject InvalidIdentityPolicy = iota
	// Skip drops the offending value and keeps the rest of the node.
	Skip
)

// Ingestor prepares and commits documents. The zero value parses SPDX and
// CycloneDX and rejects invalid identities.
type Ingestor struct {
	Parser    parser.DocumentParser
	Policy    InvalidIdentityPolicy
	ChunkSize int
	// Blobs, when set, archives every committed document's raw bytes.
	Blobs blob.Store
	Now   func() time.Time
}

// Options describe where a document came from.
type Options struct {
	Source string
	Labels map[string]string
}

// Dropped is a value discarded under the Skip policy.
type Dropped struct {
	Node  string
	Value string
	Err   error
}

// Prepared is a parsed, canonicalized document ready to commit.
type Prepared struct {
	Sbom     *entity.Sbom
	Document *model.Document
	Metadata *parser.Metadata
	Dropped  []Dropped

	raw        []byte
	blobs      blob.Store
	identities *graph.Identities
	builder    *graph.Builder
	edges      *graph.Relationships
}

// Result summarizes a commit.
type Result struct {
	SbomID uuid.UUID
	Digest string
	// Existing is set when the document was already ingested and nothing
	// was written.
	Existing bool
	// Rows counts the rows offered to the store per table, including rows
	// the store ignored as duplicates.
	Rows map[string]int
}

func (in *Ingestor) parser() parser.DocumentParser {
	if in.Parser != nil {
		return in.Parser
	}
	return parser.NewAuto()
}

func (in *Ingestor) now() time.Time {
	if in.Now != nil {
		return in.Now().UTC()
	}
	return time.Now().UTC()
}

// Parsed is a decoded document whose relationships reference declared nodes.
type Parsed struct {
	Document *model.Document
	Metadata *parser.Metadata
	raw      []byte
}

// Parse decodes data and checks its relationships. Any failure is a
// ParseFailure.
func (in *Ingestor) Parse(data []byte) (*Parsed, error) {
	doc, md, err := in.parser().Parse(data)
	if err != nil {
		if sbomerr.KindOf(err) == sbomerr.Unknown {
			err = sbomerr.New(sbomerr.ParseFailure, err)
		}
		return nil, err
	}
	if err := checkEdges(doc); err != nil {
		return nil, err
	}
	return &Parsed{Document: doc, Metadata: md, raw: data}, nil
}

// Prepare parses data and fills the row builders. It performs no I/O.
func (in *Ingestor) Prepare(data []byte, opts Options) (*Prepared, error) {
	parsed, err := in.Parse(data)
	if err != nil {
		return nil, err
	}
	return in.Build(parsed, opts)
}

// Build canonicalizes the identities of a parsed document and fills the row
// builders under the configured policy.
func (in *Ingestor) Build(parsed *Parsed, opts Options) (*Prepared, error) {
	doc, md, data := parsed.Document, parsed.Metadata, parsed.raw
	digest := blob.Sum(data)
	docID, err := identity.DocumentIdentity(string(digest))
	if err != nil {
		return nil, err
	}
	row := &entity.Sbom{
		ID:              docID.ID,
		Name:            doc.Name,
		DocumentVersion: doc.Version,
		Namespace:       doc.Namespace,
		NodeID:          doc.Root,
		Digest:          string(digest),
		Source:          opts.Source,
		Size:            int64(len(data)),
		Ingested:        in.now(),
	}
	if !doc.Created.IsZero() {
		created := doc.Created.UTC()
		row.Published = &created
	}
	if err := row.SetLabels(opts.Labels); err != nil {
		return nil, errors.Wrap(err, "encoding labels")
	}
	p := &Prepared{
		Sbom:       row,
		Document:   doc,
		Metadata:   md,
		raw:        data,
		blobs:      in.Blobs,
		identities: &graph.Identities{ChunkSize: in.ChunkSize},
		builder:    graph.NewBuilder(docID.ID),
		edges:      graph.NewRelationships(docID.ID),
	}
	p.builder.ChunkSize = in.ChunkSize
	p.edges.ChunkSize = in.ChunkSize
	for _, n := range doc.Nodes {
		if err := in.addNode(p, n); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Relationships {
		p.edges.Add(e.Left, e.Relationship, e.Right)
	}
	return p, nil
}

// checkEdges rejects edges whose endpoints are not declared nodes.
func checkEdges(doc *model.Document) error {
	ids := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.ID == "" {
			return sbomerr.Errorf(sbomerr.ParseFailure, "node %q has no id", n.Name)
		}
		ids[n.ID] = true
	}
	for _, e := range doc.Relationships {
		for _, end := range []string{e.Left, e.Right} {
			if !ids[end] {
				return sbomerr.Errorf(sbomerr.ParseFailure, "%s relationship %s -> %s references undeclared node %q", e.Relationship, e.Left, e.Right, end)
			}
		}
	}
	return nil
}

// invalid applies the policy to a canonicalization failure. It returns the
// error to abort with, or nil when the value is dropped.
func (in *Ingestor) invalid(p *Prepared, node, value string, err error) error {
	if in.Policy == Skip {
		log.Printf("Dropping %q on node %s: %v", value, node, err)
		p.Dropped = append(p.Dropped, Dropped{Node: node, Value: value, Err: err})
		return nil
	}
	return errors.Wrapf(err, "node %s", node)
}

func (in *Ingestor) addNode(p *Prepared, n model.Node) error {
	info := graph.NodeInfo{ID: n.ID, Name: n.Name}
	var sums []identity.Checksum
	for _, c := range n.Checksums {
		sum, err := identity.ParseChecksum(c.Algorithm, c.Value)
		if err != nil {
			if err := in.invalid(p, n.ID, c.Algorithm+":"+c.Value, err); err != nil {
				return err
			}
			continue
		}
		sums = append(sums, *sum)
	}
	var refs []graph.Reference
	var licenses []*identity.License
	if pkg := n.Package; pkg != nil {
		info.Package = &graph.PackageInfo{Group: pkg.Group, Version: pkg.Version, Type: pkg.Type}
		for _, raw := range pkg.Purls {
			purl, err := identity.ParsePurl(raw)
			if err != nil {
				if err := in.invalid(p, n.ID, raw, err); err != nil {
					return err
				}
				continue
			}
			if err := p.identities.AddPurl(purl); err != nil {
				if err := in.invalid(p, n.ID, raw, err); err != nil {
					return err
				}
				continue
			}
			refs = append(refs, graph.Reference{Purl: purl})
		}
		for _, raw := range pkg.Cpes {
			cpe, err := identity.ParseCPE(raw)
			if err != nil {
				if err := in.invalid(p, n.ID, raw, err); err != nil {
					return err
				}
				continue
			}
			p.identities.AddCPE(cpe)
			refs = append(refs, graph.Reference{CPE: cpe})
		}
		for _, raw := range pkg.Licenses {
			l, err := identity.ParseLicense(raw)
			if err != nil {
				if err := in.invalid(p, n.ID, raw, err); err != nil {
					return err
				}
				continue
			}
			p.identities.AddLicense(l)
			licenses = append(licenses, l)
		}
	}
	if err := p.builder.Add(info, refs, licenses, sums); err != nil {
		return sbomerr.New(sbomerr.ParseFailure, err)
	}
	return nil
}

// Rows counts the rows Commit will offer per table.
func (p *Prepared) Rows() map[string]int {
	rows := p.builder.Counts()
	rows[entity.SbomTable.Name] = 1
	rows[entity.RelationshipTable.Name] = p.edges.Len()
	for t, n := range p.identities.Counts() {
		rows[t] = n
	}
	return rows
}

// Commit writes the document through b in one transaction: the document row,
// the canonical identities, the node graph and then the edges. A document
// already present is left untouched.
func (p *Prepared) Commit(ctx context.Context, b store.Beginner) (*Result, error) {
	res := &Result{SbomID: p.Sbom.ID, Digest: p.Sbom.Digest}
	err := store.InTx(ctx, b, func(tx store.Tx) error {
		n, err := tx.Count(ctx, store.Query{Table: entity.SbomTable, Where: []store.Cond{store.Eq("id", p.Sbom.ID)}})
		if err != nil {
			return storageFailure(err, "checking for document")
		}
		if n > 0 {
			res.Existing = true
			return nil
		}
		if p.blobs != nil {
			if _, err := p.blobs.Put(ctx, p.raw); err != nil {
				return sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, "archiving document"))
			}
		}
		if err := tx.Insert(ctx, entity.SbomTable, []store.Row{p.Sbom}); err != nil {
			return storageFailure(err, "inserting document")
		}
		if err := p.identities.Commit(ctx, tx); err != nil {
			return err
		}
		if err := p.builder.Commit(ctx, tx); err != nil {
			return err
		}
		return p.edges.Commit(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	if !res.Existing {
		res.Rows = p.Rows()
	}
	return res, nil
}

func storageFailure(err error, msg string) error {
	if sbomerr.KindOf(err) != sbomerr.Unknown {
		return errors.Wrap(err, msg)
	}
	return sbomerr.New(sbomerr.StorageFailure, errors.Wrap(err, msg))
}

// Ingest prepares and commits data.
func (in *Ingestor) Ingest(ctx context.Context, b store.Beginner, data []byte, opts Options) (*Result, error) {
	p, err := in.Prepare(data, opts)
	if err != nil {
		return nil, err
	}
	return p.Commit(ctx, b)
}
