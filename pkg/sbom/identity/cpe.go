// Copyright 2026 Google LLC
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"net/url"
	"strings"
)

// CPE is a canonical Common Platform Enumeration name. Unspecified
// components are "*"; all components are lower case.
type CPE struct {
	Part      string
	Vendor    string
	Product   string
	Version   string
	Update    string
	Edition   string
	Language  string
	SwEdition string
	TargetSw  string
	TargetHw  string
	Other     string
}

func (c *CPE) fields() []*string {
	return []*string{
		&c.Part, &c.Vendor, &c.Product, &c.Version, &c.Update, &c.Edition,
		&c.Language, &c.SwEdition, &c.TargetSw, &c.TargetHw, &c.Other,
	}
}

// ParseCPE accepts a CPE 2.3 formatted string ("cpe:2.3:a:vendor:...") or a
// CPE 2.2 URI ("cpe:/a:vendor:...") and binds it to the canonical 2.3 form.
func ParseCPE(raw string) (*CPE, error) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	var c *CPE
	var err error
	switch {
	case strings.HasPrefix(lower, "cpe:2.3:"):
		c, err = parseFormatted(lower[len("cpe:2.3:"):])
	case strings.HasPrefix(lower, "cpe:/"):
		c, err = parseURI(lower[len("cpe:/"):])
	default:
		return nil, invalid("cpe %q: unrecognized binding", raw)
	}
	if err != nil {
		return nil, invalid("cpe %q: %v", raw, err)
	}
	switch c.Part {
	case "a", "o", "h", "*":
	default:
		return nil, invalid("cpe %q: invalid part %q", raw, c.Part)
	}
	return c, nil
}

// splitEscaped splits s on ':' separators not preceded by a backslash.
func splitEscaped(s string) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			cur.WriteByte(s[i])
			if i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			}
		case ':':
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(out, cur.String())
}

func parseFormatted(s string) (*CPE, error) {
	parts := splitEscaped(s)
	var c CPE
	fields := c.fields()
	if len(parts) > len(fields) {
		return nil, invalid("%d components, at most %d allowed", len(parts), len(fields))
	}
	for i, f := range fields {
		*f = "*"
		if i < len(parts) && parts[i] != "" {
			*f = parts[i]
		}
	}
	return &c, nil
}

func parseURI(s string) (*CPE, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 7 {
		return nil, invalid("%d components, at most 7 allowed", len(parts))
	}
	var c CPE
	for _, f := range c.fields() {
		*f = "*"
	}
	uriFields := []*string{&c.Part, &c.Vendor, &c.Product, &c.Version, &c.Update, &c.Edition, &c.Language}
	for i, p := range parts {
		if p == "" {
			continue
		}
		d, err := url.PathUnescape(p)
		if err != nil {
			return nil, err
		}
		*uriFields[i] = bindValue(d)
	}
	// A packed edition "~edition~sw_edition~target_sw~target_hw~other"
	// carries the 2.3 extended attributes.
	if strings.HasPrefix(c.Edition, "~") {
		packed := strings.Split(c.Edition[1:], "~")
		ext := []*string{&c.Edition, &c.SwEdition, &c.TargetSw, &c.TargetHw, &c.Other}
		for i, f := range ext {
			*f = "*"
			if i < len(packed) && packed[i] != "" {
				*f = packed[i]
			}
		}
	}
	return &c, nil
}

// bindValue maps a decoded 2.2 value to its formatted-string equivalent.
func bindValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '_', ch == '.', ch == '-', ch == '~':
			b.WriteByte(ch)
		default:
			b.WriteByte('\\')
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// String returns the canonical CPE 2.3 formatted string.
func (c *CPE) String() string {
	fields := c.fields()
	vals := make([]string, len(fields))
	for i, f := range fields {
		vals[i] = *f
	}
	return "cpe:2.3:" + strings.Join(vals, ":")
}

// Identity is the canonical identity of the CPE.
func (c *CPE) Identity() Identity {
	return newIdentity(KindCPE, c.String())
}
