// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package glob

import (
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern  string
		path     string
		expected bool
		hasError bool
	}{
		// No **
		{"abc", "abc", true, false},
		{"a*c", "abc", true, false},
		{"a?c", "abc", true, false},
		{"a[b]c", "abc", true, false},
		{"a/*/c", "a/b/c", true, false},
		{"a/*/c", "a/b/d/c", false, false},
		{"*", "a/b", false, false},

		// Whole-pattern **
		{"**", "", true, false},
		{"**", "a/b/c", true, false},
		// Leading and trailing
		{"a/**", "a", true, false},
		{"a/**", "a/b/c", true, false},
		{"a/**", "b/a", false, false},
		{"**/c", "c", true, false},
		{"**/c", "a/b/c", true, false},
		{"**/*.json", "a/b.json", true, false},
		{"**/*.json", "a/b.json/c", false, false},
		// Interior
		{"a/**/c", "a/c", true, false},
		{"a/**/c", "a/b/b/c", true, false},
		{"a/**/c", "a/b/d", false, false},
		{"a/**/c", "a/b/c/d", false, false},
		{"a/**/c/*", "a/b/c/d", true, false},
		// Several
		{"a/**/c/**/d", "a/c/d", true, false},
		{"a/**/c/**/d", "a/b/c/b/b/d", true, false},
		{"a/**/**/d", "a/d", true, false},
		{"**/x/**", "a/x/b", true, false},
		{"**/x/**", "a/y/b", false, false},

		// Invalid patterns
		{"a**b", "", false, true},
		{"a/**b", "", false, true},
		{"***", "", false, true},
		{"a/[", "", false, true},
		{"a/[a]**", "", false, true},
	}
	for _, test := range tests {
		result, err := Match(test.pattern, test.path)
		if (err != nil) != test.hasError {
			t.Errorf("Match(%q, %q) error = %v, hasError = %v", test.pattern, test.path, err, test.hasError)
			continue
		}
		if result != test.expected {
			t.Errorf("Match(%q, %q) = %v, expected %v", test.pattern, test.path, result, test.expected)
		}
	}
}

func TestSet(t *testing.T) {
	s, err := Compile("*.spdx.json", "vendor/**/*.cdx.json")
	if err != nil {
		t.Fatal(err)
	}
	for name, want := range map[string]bool{
		"a.spdx.json":                true,
		"deep/dir/b.spdx.json":       true,
		"vendor/c.cdx.json":          true,
		"vendor/x/y/c.cdx.json":      true,
		"other/c.cdx.json":           false,
		"README.md":                  false,
		"vendor/x/y/c.cdx.json.orig": false,
	} {
		if got := s.Match(name); got != want {
			t.Errorf("Match(%q) = %v, want %v", name, got, want)
		}
	}
	var empty Set
	if !empty.Match("anything") {
		t.Error("empty Set rejected a path")
	}
	for _, bad := range []string{"a**", "[", "a/b**/c"} {
		if _, err := Compile(bad); err == nil {
			t.Errorf("Compile(%q) succeeded", bad)
		}
	}
}
