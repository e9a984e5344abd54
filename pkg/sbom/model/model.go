// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package model defines the canonical intermediate form produced by document
// parsers and consumed by the graph builder.
package model

import (
	"iter"
	"time"
)

// Document is one parsed SBOM in canonical form.
type Document struct {
	// Name is the logical document name.
	Name string
	// Version is the source-format document version string.
	Version string
	// Namespace is the source-declared document identity URI.
	Namespace string
	Created   time.Time
	// Root is the node id representing the document itself, if the format has one.
	Root          string
	Nodes         []Node
	Relationships []Edge
}

// Node is a graph vertex declared by the document.
type Node struct {
	ID        string
	Name      string
	Checksums []Checksum
	// Package is set when the node is a package. Other nodes are files or
	// the document root.
	Package *Package
}

// Package holds the package-specific attributes of a node. Identity strings
// are raw and canonicalized during ingestion.
type Package struct {
	Group    string
	Version  string
	Type     PackageType
	Purls    []string
	Cpes     []string
	Licenses []string
}

// Checksum is a raw (algorithm, digest) pair as declared in the document.
type Checksum struct {
	Algorithm string
	Value     string
}

// Edge is a directed relationship between two node ids.
type Edge struct {
	Left         string
	Relationship Relationship
	Right        string
}

// AllNodes iterates over the document's nodes.
func (d *Document) AllNodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range d.Nodes {
			if !yield(n) {
				return
			}
		}
	}
}

// AllEdges iterates over the document's relationships.
func (d *Document) AllEdges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for _, e := range d.Relationships {
			if !yield(e) {
				return
			}
		}
	}
}

// Packages iterates over the nodes that are packages.
func (d *Document) Packages() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, n := range d.Nodes {
			if n.Package == nil {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}
