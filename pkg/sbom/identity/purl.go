// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"net/url"
	"slices"
	"strings"
)

// Qualifier is one key=value pair of a package URL.
type Qualifier struct {
	Key   string
	Value string
}

// Purl is a parsed, canonical package URL. Qualifiers are sorted by key.
type Purl struct {
	Type       string
	Namespace  string
	Name       string
	Version    string
	Qualifiers []Qualifier
	Subpath    string
}

// ParsePurl parses and canonicalizes a package URL of the form
// pkg:type/namespace/name@version?qualifiers#subpath.
func ParsePurl(raw string) (*Purl, error) {
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok || !strings.EqualFold(scheme, "pkg") {
		return nil, invalid("purl %q: scheme must be pkg", raw)
	}
	rest = strings.TrimLeft(rest, "/")
	var p Purl
	if before, sub, found := strings.Cut(rest, "#"); found {
		rest = before
		subpath, err := canonicalSubpath(sub)
		if err != nil {
			return nil, invalid("purl %q: subpath: %v", raw, err)
		}
		p.Subpath = subpath
	}
	if before, q, found := strings.Cut(rest, "?"); found {
		rest = before
		quals, err := parseQualifiers(q)
		if err != nil {
			return nil, invalid("purl %q: %v", raw, err)
		}
		p.Qualifiers = quals
	}
	typ, path, ok := strings.Cut(rest, "/")
	if !ok || typ == "" {
		return nil, invalid("purl %q: missing type", raw)
	}
	typ = strings.ToLower(typ)
	if !validType(typ) {
		return nil, invalid("purl %q: invalid type %q", raw, typ)
	}
	p.Type = typ
	// '@' only separates a version after the last segment boundary, so raw
	// npm scopes such as "@angular/core" stay in the namespace.
	if i := strings.LastIndex(path, "@"); i >= 0 && i > strings.LastIndex(path, "/") {
		v, err := url.PathUnescape(path[i+1:])
		if err != nil {
			return nil, invalid("purl %q: version: %v", raw, err)
		}
		p.Version = v
		path = path[:i]
	}
	var segs []string
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		if s == "" {
			continue
		}
		d, err := url.PathUnescape(s)
		if err != nil {
			return nil, invalid("purl %q: %v", raw, err)
		}
		segs = append(segs, d)
	}
	if len(segs) == 0 || segs[len(segs)-1] == "" {
		return nil, invalid("purl %q: missing name", raw)
	}
	for _, s := range segs[:len(segs)-1] {
		if strings.Contains(s, "/") {
			return nil, invalid("purl %q: namespace segment %q contains '/'", raw, s)
		}
	}
	p.Name = segs[len(segs)-1]
	p.Namespace = strings.Join(segs[:len(segs)-1], "/")
	p.applyTypeRules()
	return &p, nil
}

func validType(t string) bool {
	if t[0] >= '0' && t[0] <= '9' {
		return false
	}
	for _, c := range t {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '.', c == '+', c == '-':
		default:
			return false
		}
	}
	return true
}

func (p *Purl) applyTypeRules() {
	switch p.Type {
	case "github", "bitbucket":
		p.Namespace = strings.ToLower(p.Namespace)
		p.Name = strings.ToLower(p.Name)
	case "pypi":
		p.Name = strings.ReplaceAll(strings.ToLower(p.Name), "_", "-")
	}
}

func parseQualifiers(q string) ([]Qualifier, error) {
	var out []Qualifier
	seen := make(map[string]bool)
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, invalid("malformed qualifier %q", pair)
		}
		k = strings.ToLower(k)
		val, err := url.PathUnescape(v)
		if err != nil {
			return nil, invalid("qualifier %q: %v", k, err)
		}
		if val == "" {
			continue
		}
		if seen[k] {
			return nil, invalid("duplicate qualifier %q", k)
		}
		seen[k] = true
		out = append(out, Qualifier{Key: k, Value: val})
	}
	slices.SortFunc(out, func(a, b Qualifier) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func canonicalSubpath(s string) (string, error) {
	var segs []string
	for _, seg := range strings.Split(strings.Trim(s, "/"), "/") {
		d, err := url.PathUnescape(seg)
		if err != nil {
			return "", err
		}
		if d == "" || d == "." || d == ".." {
			continue
		}
		segs = append(segs, escape(d, ""))
	}
	return strings.Join(segs, "/"), nil
}

// escape percent-encodes everything outside the unreserved set, ':' and keep.
func escape(s, keep string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~', c == ':':
			b.WriteByte(c)
		case strings.IndexByte(keep, c) >= 0:
			b.WriteByte(c)
		default:
			const hex = "0123456789ABCDEF"
			b.WriteByte('%')
			b.WriteByte(hex[c>>4])
			b.WriteByte(hex[c&0xf])
		}
	}
	return b.String()
}

func (p *Purl) baseString() string {
	var b strings.Builder
	b.WriteString("pkg:")
	b.WriteString(p.Type)
	b.WriteByte('/')
	if p.Namespace != "" {
		for _, seg := range strings.Split(p.Namespace, "/") {
			b.WriteString(escape(seg, ""))
			b.WriteByte('/')
		}
	}
	b.WriteString(escape(p.Name, ""))
	return b.String()
}

func (p *Purl) versionedString() string {
	s := p.baseString()
	if p.Version != "" {
		s += "@" + escape(p.Version, "")
	}
	return s
}

func (p *Purl) qualifiedString() string {
	s := p.versionedString()
	if len(p.Qualifiers) > 0 {
		parts := make([]string, len(p.Qualifiers))
		for i, q := range p.Qualifiers {
			parts[i] = q.Key + "=" + escape(q.Value, "/")
		}
		s += "?" + strings.Join(parts, "&")
	}
	return s
}

// String returns the canonical package URL, including any subpath.
func (p *Purl) String() string {
	s := p.qualifiedString()
	if p.Subpath != "" {
		s += "#" + p.Subpath
	}
	return s
}

// Base is the identity of the package regardless of version.
func (p *Purl) Base() Identity {
	return newIdentity(KindBasePurl, p.baseString())
}

// Versioned is the identity of the package at its version.
func (p *Purl) Versioned() Identity {
	return newIdentity(KindVersionedPurl, p.versionedString())
}

// Qualified is the identity of the package at its version and qualifiers.
// The subpath does not participate in any identity level.
func (p *Purl) Qualified() Identity {
	return newIdentity(KindQualifiedPurl, p.qualifiedString())
}

// QualifierMap returns the qualifiers as a map.
func (p *Purl) QualifierMap() map[string]string {
	m := make(map[string]string, len(p.Qualifiers))
	for _, q := range p.Qualifiers {
		m[q.Key] = q.Value
	}
	return m
}
