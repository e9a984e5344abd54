// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePackageType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    PackageType
		wantErr bool
	}{
		{in: "application", want: Application},
		{in: "FiLe", want: File},
		{in: "operating-system", want: OperatingSystem},
		{in: "MACHINE-LEARNING-MODEL", want: MachineLearningModel},
		{in: "cryptographic-asset", want: CryptographicAsset},
		{in: "operating_system", wantErr: true},
		{in: "library ", wantErr: true},
		{in: "", wantErr: true},
		{in: "unknown", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePackageType(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrUnknownPackageType) {
					t.Fatalf("ParsePackageType(%q) error = %v, want ErrUnknownPackageType", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePackageType(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParsePackageType(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestPackageTypeRoundTrip(t *testing.T) {
	t.Parallel()
	types := PackageTypes()
	if len(types) != 13 {
		t.Fatalf("PackageTypes() returned %d values, want 13", len(types))
	}
	for _, pt := range types {
		b, err := pt.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", pt, err)
		}
		var got PackageType
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if got != pt {
			t.Errorf("round trip of %q = %v, want %v", b, got, pt)
		}
	}
	if PackageTypeUnset.String() != "" || PackageTypeUnset.IsSet() {
		t.Error("unset package type should have no name")
	}
}

func TestParseRelationship(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Relationship{
		"contains":           Contains,
		"DEPENDS_ON":         DependsOn,
		"runtime-depends-on": RuntimeDependsOn,
		" Describes ":        Describes,
	} {
		got, err := ParseRelationship(in)
		if err != nil {
			t.Fatalf("ParseRelationship(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseRelationship(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseRelationship("contained-by"); !errors.Is(err, ErrUnknownRelationship) {
		t.Errorf("ParseRelationship(contained-by) error = %v, want ErrUnknownRelationship", err)
	}
	if !Contains.TransitiveByDefault() || DependsOn.TransitiveByDefault() {
		t.Error("only contains should be transitive by default")
	}
}

func TestDocumentIterators(t *testing.T) {
	t.Parallel()
	doc := &Document{
		Nodes: []Node{
			{ID: "doc"},
			{ID: "a", Package: &Package{}},
			{ID: "f"},
			{ID: "b", Package: &Package{}},
		},
		Relationships: []Edge{{Left: "a", Relationship: Contains, Right: "b"}},
	}
	var pkgs []string
	for n := range doc.Packages() {
		pkgs = append(pkgs, n.ID)
	}
	if diff := cmp.Diff([]string{"a", "b"}, pkgs); diff != "" {
		t.Errorf("Packages() unexpected ids, diff\n%s", diff)
	}
	all := slices.Collect(doc.AllNodes())
	if len(all) != 4 {
		t.Errorf("AllNodes() yielded %d nodes, want 4", len(all))
	}
	if edges := slices.Collect(doc.AllEdges()); len(edges) != 1 {
		t.Errorf("AllEdges() yielded %d edges, want 1", len(edges))
	}
}
