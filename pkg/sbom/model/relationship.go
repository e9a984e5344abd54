// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Relationship is the kind of a directed edge. Edges are stored in forward
// form: "left <kind> right", e.g. "app contains lib".
type Relationship string

const (
	Contains          Relationship = "contains"
	DependsOn         Relationship = "depends-on"
	DevDependsOn      Relationship = "dev-depends-on"
	OptionalDependsOn Relationship = "optional-depends-on"
	ProvidedDependsOn Relationship = "provided-depends-on"
	TestDependsOn     Relationship = "test-depends-on"
	RuntimeDependsOn  Relationship = "runtime-depends-on"
	Describes         Relationship = "describes"
	GeneratedFrom     Relationship = "generated-from"
	AncestorOf        Relationship = "ancestor-of"
	VariantOf         Relationship = "variant-of"
	BuildToolOf       Relationship = "build-tool-of"
	DevToolOf         Relationship = "dev-tool-of"
	ExampleOf         Relationship = "example-of"
	PackageOf         Relationship = "package-of"
	OtherRelationship Relationship = "other"
)

var relationships = []Relationship{
	Contains, DependsOn, DevDependsOn, OptionalDependsOn, ProvidedDependsOn,
	TestDependsOn, RuntimeDependsOn, Describes, GeneratedFrom, AncestorOf,
	VariantOf, BuildToolOf, DevToolOf, ExampleOf, PackageOf, OtherRelationship,
}

// ErrUnknownRelationship is returned for relationship names outside the closed set.
var ErrUnknownRelationship = errors.New("unknown relationship")

// ParseRelationship parses a relationship name, ignoring case and treating
// '_' as '-'.
func ParseRelationship(s string) (Relationship, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, r := range relationships {
		if string(r) == norm {
			return r, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownRelationship, "%q", s)
}

// TransitiveByDefault reports whether queries over r follow edges
// transitively unless told otherwise.
func (r Relationship) TransitiveByDefault() bool {
	return r == Contains
}
