// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"strings"
)

// License is a canonical license expression.
type License struct {
	// Text is the normalized expression: single spaces, upper-case operators.
	Text string
}

var operators = map[string]string{"and": "AND", "or": "OR", "with": "WITH"}

// ParseLicense normalizes a license expression or free-text license name.
// Whitespace is collapsed, parentheses are tokenized and the SPDX operators
// AND, OR and WITH are upper-cased.
func ParseLicense(raw string) (*License, error) {
	var toks []string
	for _, f := range strings.Fields(raw) {
		toks = append(toks, splitParens(f)...)
	}
	if len(toks) == 0 {
		return nil, invalid("empty license expression")
	}
	for i, t := range toks {
		if op, ok := operators[strings.ToLower(t)]; ok {
			toks[i] = op
		}
	}
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && t != ")" && toks[i-1] != "(" {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	return &License{Text: b.String()}, nil
}

func splitParens(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '(' || s[i] == ')' {
			if i > start {
				out = append(out, s[start:i])
			}
			out = append(out, s[i:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Identity is the canonical identity of the license. License ids compare
// case-insensitively, so the identity is derived from the lower-cased text.
func (l *License) Identity() Identity {
	id := newIdentity(KindLicense, strings.ToLower(l.Text))
	id.Canonical = l.Text
	return id
}
