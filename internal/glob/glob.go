// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

// Package glob matches slash-separated paths against shell patterns with
// support for **.
package glob

import (
	"fmt"
	"path"
	"strings"
)

// Pattern is a compiled slash-separated pattern. A "**" element matches zero
// or more path elements. Other elements are matched with path.Match.
type Pattern struct {
	raw   string
	elems []string
}

// Parse compiles pattern.
func Parse(pattern string) (*Pattern, error) {
	elems := strings.Split(pattern, "/")
	for _, e := range elems {
		if e == "**" {
			continue
		}
		if strings.Contains(e, "**") {
			return nil, fmt.Errorf("invalid pattern %q: ** must be a whole path element", pattern)
		}
		// path.Match validates the whole pattern even when it fails to match.
		if _, err := path.Match(e, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return &Pattern{raw: pattern, elems: elems}, nil
}

func (p *Pattern) String() string { return p.raw }

// Match reports whether the slash-separated name matches p.
func (p *Pattern) Match(name string) bool {
	return matchElems(p.elems, strings.Split(name, "/"))
}

func matchElems(pat, name []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			for len(pat) > 0 && pat[0] == "**" {
				pat = pat[1:]
			}
			if len(pat) == 0 {
				return true
			}
			for i := range len(name) + 1 {
				if matchElems(pat, name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], name[0]); !ok {
			return false
		}
		pat, name = pat[1:], name[1:]
	}
	return len(name) == 0
}

// Match reports whether name matches pattern.
func Match(pattern, name string) (bool, error) {
	p, err := Parse(pattern)
	if err != nil {
		return false, err
	}
	return p.Match(name), nil
}

// Set is a list of patterns. Patterns without a slash match the last path
// element; others match the whole path.
type Set []*Pattern

// Compile parses patterns into a Set.
func Compile(patterns ...string) (Set, error) {
	s := make(Set, 0, len(patterns))
	for _, raw := range patterns {
		p, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		s = append(s, p)
	}
	return s, nil
}

// Match reports whether name matches any pattern. An empty Set matches
// everything.
func (s Set) Match(name string) bool {
	if len(s) == 0 {
		return true
	}
	for _, p := range s {
		target := name
		if len(p.elems) == 1 {
			target = path.Base(name)
		}
		if p.Match(target) {
			return true
		}
	}
	return false
}
